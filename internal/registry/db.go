// Package registry is the strategy's durable metadata store: worker-id
// assignments for the id generator, the account and source catalogs, and
// periodic portfolio snapshots. Everything lives in one SQLite file next to
// the journals, so a restarted strategy finds its identity and registrations
// where it left them.
package registry

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"main/internal/errors"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS uid_worker (
	name      TEXT    NOT NULL PRIMARY KEY,
	worker_id INTEGER NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS source (
	name  TEXT NOT NULL PRIMARY KEY,
	added INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS account (
	account_id TEXT    NOT NULL PRIMARY KEY,
	source_id  TEXT    NOT NULL,
	client_id  TEXT    NOT NULL,
	type       INTEGER NOT NULL,
	init_cash  REAL    NOT NULL,
	added      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS minute_snapshot (
	update_time INTEGER NOT NULL,
	trading_day TEXT    NOT NULL,
	payload     TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS day_snapshot (
	trading_day TEXT NOT NULL PRIMARY KEY,
	update_time INTEGER NOT NULL,
	payload     TEXT    NOT NULL
);
`

// DB wraps the strategy metadata database.
type DB struct {
	db *sql.DB
}

// Open opens or creates the metadata database at path and applies the
// schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open registry %s", path)
	}
	// Single connection: SQLite handles one writer, and the strategy is the
	// only user of this file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply registry schema")
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) begin(ctx context.Context) (*sql.Tx, error) {
	return d.db.BeginTx(ctx, nil)
}
