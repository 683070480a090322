package migrations

import (
	"database/sql"
)

// GetInitialMigrations returns the migrations that bootstrap the
// inventory schema: the machines table and the disks table that
// references it.
func GetInitialMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_machines",
			Up: func(db *sql.DB) error {
				_, err := db.Exec(`
					CREATE TABLE IF NOT EXISTS machines (
						id TEXT PRIMARY KEY,
						ram INTEGER NOT NULL DEFAULT 0,
						cpu INTEGER NOT NULL DEFAULT 0,
						authorized BOOLEAN NOT NULL DEFAULT 0,
						last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
					)
				`)
				return err
			},
			Down: func(db *sql.DB) error {
				_, err := db.Exec(`DROP TABLE IF EXISTS machines`)
				return err
			},
		},
		{
			Version: 2,
			Name:    "create_disks",
			Up: func(db *sql.DB) error {
				_, err := db.Exec(`
					CREATE TABLE IF NOT EXISTS disks (
						id TEXT PRIMARY KEY,
						capacity INTEGER NOT NULL DEFAULT 0,
						machine_id TEXT REFERENCES machines(id)
					)
				`)
				if err != nil {
					return err
				}

				_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_disks_machine_id ON disks(machine_id)`)
				return err
			},
			Down: func(db *sql.DB) error {
				_, err := db.Exec(`DROP TABLE IF EXISTS disks`)
				return err
			},
		},
	}
}
