package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jbweber/homelab/croft/internal/vm"
)

// PostgresConfig holds the connection settings for the postgres
// backend.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

// DSN returns the postgres connection string.
func (c PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// Postgres is the shared durable store backend for deployments where
// the inventory outlives a single host.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects via pgx and bootstraps the schema.
func OpenPostgres(cfg PostgresConfig) (*Postgres, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	tuneConnectionPool(db)

	if err := ensureSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS machines (
			id TEXT PRIMARY KEY,
			ram BIGINT NOT NULL DEFAULT 0,
			cpu BIGINT NOT NULL DEFAULT 0,
			authorized BOOLEAN NOT NULL DEFAULT false,
			last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS disks (
			id TEXT PRIMARY KEY,
			capacity BIGINT NOT NULL DEFAULT 0,
			machine_id TEXT REFERENCES machines(id)
		)
	`)
	return err
}

// UpsertMachine implements Store.
func (s *Postgres) UpsertMachine(ctx context.Context, m vm.Machine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO machines (id, ram, cpu, authorized) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			ram = excluded.ram,
			cpu = excluded.cpu,
			authorized = excluded.authorized,
			last_seen = CURRENT_TIMESTAMP
	`, m.ID, m.RAM, m.CPU, m.Authorized)
	if err != nil {
		return fmt.Errorf("failed to upsert machine %s: %w", m.ID, err)
	}
	return nil
}

// UpsertDisk implements Store.
func (s *Postgres) UpsertDisk(ctx context.Context, machineID string, d vm.Disk) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disks (id, capacity, machine_id) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			capacity = excluded.capacity,
			machine_id = excluded.machine_id
	`, d.ID, d.Capacity, machineID)
	if err != nil {
		return fmt.Errorf("failed to upsert disk %s: %w", d.ID, err)
	}
	return nil
}

// ListAuthorized implements Store.
func (s *Postgres) ListAuthorized(ctx context.Context) ([]Machine, error) {
	return s.queryMachines(ctx, "SELECT id, ram, cpu, authorized, last_seen FROM machines WHERE authorized ORDER BY id ASC")
}

// ListAll implements Store.
func (s *Postgres) ListAll(ctx context.Context) ([]Machine, error) {
	return s.queryMachines(ctx, "SELECT id, ram, cpu, authorized, last_seen FROM machines ORDER BY id ASC")
}

func (s *Postgres) queryMachines(ctx context.Context, query string) ([]Machine, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	defer closeRows(rows)

	var machines []Machine
	for rows.Next() {
		var m Machine
		var lastSeen sql.NullTime
		if err := rows.Scan(&m.ID, &m.RAM, &m.CPU, &m.Authorized, &lastSeen); err != nil {
			return nil, err
		}
		if lastSeen.Valid {
			m.LastSeen = lastSeen.Time
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

// ListDisks implements Store.
func (s *Postgres) ListDisks(ctx context.Context) ([]Disk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.capacity, m.id
		FROM disks d LEFT JOIN machines m ON d.machine_id = m.id
		ORDER BY d.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list disks: %w", err)
	}
	defer closeRows(rows)

	var disks []Disk
	for rows.Next() {
		var d Disk
		var machineID sql.NullString
		if err := rows.Scan(&d.ID, &d.Capacity, &machineID); err != nil {
			return nil, err
		}
		if machineID.Valid {
			d.MachineID = &machineID.String
		}
		disks = append(disks, d)
	}
	return disks, rows.Err()
}

// Close implements Store.
func (s *Postgres) Close() error {
	return s.db.Close()
}
