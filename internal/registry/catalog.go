package registry

import (
	"context"
	"fmt"
	"time"

	"main/internal/errors"
	"main/internal/schema"
)

// AccountRecord is one registered trading account.
type AccountRecord struct {
	SourceID  string
	AccountID string
	ClientID  string
	Type      schema.AccountType
	InitCash  float64
}

// AddSource records a market-data source registration. Re-adding an existing
// source is a no-op.
func (d *DB) AddSource(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("add source: empty name")
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO source(name, added) VALUES (?1, ?2)`,
		name, time.Now().Unix())
	if err != nil {
		return errors.Wrapf(err, "add source %q", name)
	}
	return nil
}

// Sources lists registered market-data sources in insertion order.
func (d *DB) Sources(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM source ORDER BY added, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AddAccount records a trading account registration. Re-adding refreshes the
// stored fields: a restarted strategy may carry a changed cash limit.
func (d *DB) AddAccount(ctx context.Context, rec AccountRecord) error {
	if rec.AccountID == "" || rec.SourceID == "" {
		return fmt.Errorf("add account: source and account required")
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO account(account_id, source_id, client_id, type, init_cash, added)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6)
		ON CONFLICT(account_id) DO UPDATE SET
			source_id = excluded.source_id,
			client_id = excluded.client_id,
			type      = excluded.type,
			init_cash = excluded.init_cash`,
		rec.AccountID, rec.SourceID, rec.ClientID, int(rec.Type), rec.InitCash, time.Now().Unix())
	if err != nil {
		return errors.Wrapf(err, "add account %q", rec.AccountID)
	}
	return nil
}

// Accounts lists registered accounts in insertion order.
func (d *DB) Accounts(ctx context.Context) ([]AccountRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT account_id, source_id, client_id, type, init_cash
		FROM account ORDER BY added, account_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []AccountRecord
	for rows.Next() {
		var rec AccountRecord
		var typ int
		if err := rows.Scan(&rec.AccountID, &rec.SourceID, &rec.ClientID, &typ, &rec.InitCash); err != nil {
			return nil, err
		}
		rec.Type = schema.AccountType(typ)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
