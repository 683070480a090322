package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jbweber/homelab/croft/internal/migrations"
	"github.com/jbweber/homelab/croft/internal/vm"
)

// sqliteTimeLayout matches SQLite's CURRENT_TIMESTAMP text format.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLite is the embedded durable store backend, suitable for
// single-node deployments and tests.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the database at path and
// runs migrations. Plain paths get their parent directory created;
// file: DSNs are passed through untouched so tests can use in-memory
// databases.
func OpenSQLite(path string) (*SQLite, error) {
	if len(path) < 5 || path[:5] != "file:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tuneConnectionPool(db)

	if err := applyPragmaOptimizations(db); err != nil {
		return nil, fmt.Errorf("failed to apply performance optimizations: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// tuneConnectionPool applies connection pool limits shared by both
// backends.
func tuneConnectionPool(db *sql.DB) {
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
}

// applyPragmaOptimizations applies SQLite-specific performance pragmas.
func applyPragmaOptimizations(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return err
		}
	}

	return nil
}

func runMigrations(db *sql.DB) error {
	migrator := migrations.NewMigrator(db)
	for _, migration := range migrations.GetInitialMigrations() {
		migrator.AddMigration(migration)
	}
	return migrator.RunMigrations()
}

// UpsertMachine implements Store.
func (s *SQLite) UpsertMachine(ctx context.Context, m vm.Machine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO machines (id, ram, cpu, authorized) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
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
func (s *SQLite) UpsertDisk(ctx context.Context, machineID string, d vm.Disk) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disks (id, capacity, machine_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			capacity = excluded.capacity,
			machine_id = excluded.machine_id
	`, d.ID, d.Capacity, machineID)
	if err != nil {
		return fmt.Errorf("failed to upsert disk %s: %w", d.ID, err)
	}
	return nil
}

// ListAuthorized implements Store.
func (s *SQLite) ListAuthorized(ctx context.Context) ([]Machine, error) {
	return s.queryMachines(ctx, "SELECT id, ram, cpu, authorized, last_seen FROM machines WHERE authorized = 1 ORDER BY id ASC")
}

// ListAll implements Store.
func (s *SQLite) ListAll(ctx context.Context) ([]Machine, error) {
	return s.queryMachines(ctx, "SELECT id, ram, cpu, authorized, last_seen FROM machines ORDER BY id ASC")
}

func (s *SQLite) queryMachines(ctx context.Context, query string) ([]Machine, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	defer closeRows(rows)

	var machines []Machine
	for rows.Next() {
		var m Machine
		var lastSeen sql.NullString
		if err := rows.Scan(&m.ID, &m.RAM, &m.CPU, &m.Authorized, &lastSeen); err != nil {
			return nil, err
		}
		if lastSeen.Valid {
			// CURRENT_TIMESTAMP is stored as UTC text
			if t, err := time.Parse(sqliteTimeLayout, lastSeen.String); err == nil {
				m.LastSeen = t.UTC()
			}
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

// ListDisks implements Store.
func (s *SQLite) ListDisks(ctx context.Context) ([]Disk, error) {
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
func (s *SQLite) Close() error {
	return s.db.Close()
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("failed to close rows: %v", err)
	}
}
