package registry

import (
	"context"
	"database/sql"
	stderrors "errors"

	"main/internal/errors"
)

// SaveMinuteSnapshot appends one intraday snapshot row. Minute rows are
// historical and never rewritten.
func (d *DB) SaveMinuteSnapshot(ctx context.Context, updateTime int64, tradingDay string, payload []byte) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO minute_snapshot(update_time, trading_day, payload) VALUES (?1, ?2, ?3)`,
		updateTime, tradingDay, string(payload))
	if err != nil {
		return errors.Wrap(err, "save minute snapshot")
	}
	return nil
}

// SaveDaySnapshot upserts the end-of-day snapshot for a trading day. Pushing
// twice for the same day keeps only the latest row.
func (d *DB) SaveDaySnapshot(ctx context.Context, updateTime int64, tradingDay string, payload []byte) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO day_snapshot(trading_day, update_time, payload)
		VALUES (?1, ?2, ?3)
		ON CONFLICT(trading_day) DO UPDATE SET
			update_time = excluded.update_time,
			payload     = excluded.payload`,
		tradingDay, updateTime, string(payload))
	if err != nil {
		return errors.Wrap(err, "save day snapshot")
	}
	return nil
}

// MinuteSnapshotCount reports the number of stored minute rows.
func (d *DB) MinuteSnapshotCount(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM minute_snapshot`).Scan(&n)
	return n, err
}

// DaySnapshot returns the stored end-of-day payload for a trading day, or
// false when none exists.
func (d *DB) DaySnapshot(ctx context.Context, tradingDay string) ([]byte, bool, error) {
	var payload string
	err := d.db.QueryRowContext(ctx,
		`SELECT payload FROM day_snapshot WHERE trading_day = ?1`, tradingDay,
	).Scan(&payload)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(payload), true, nil
}
