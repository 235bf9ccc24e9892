package registry

import (
	"context"
	"fmt"

	"main/internal/errors"
	"main/internal/uid"
)

// AcquireWorkerID returns the worker id bound to name, assigning the next
// free id atomically when the name is new. Lookup and assignment happen in
// one transaction, so two processes racing on a fresh name cannot both mint
// an id and one of them will read the other's row.
func (d *DB) AcquireWorkerID(ctx context.Context, name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("acquire worker id: empty name")
	}

	tx, err := d.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO uid_worker(name, worker_id)
		SELECT ?1, COALESCE((SELECT MAX(worker_id) FROM uid_worker), 0) + 1
		WHERE NOT EXISTS (SELECT 1 FROM uid_worker WHERE name = ?1)`, name)
	if err != nil {
		return 0, errors.Wrapf(err, "assign worker id for %q", name)
	}

	var workerID int
	if err := tx.QueryRowContext(ctx,
		`SELECT worker_id FROM uid_worker WHERE name = ?1`, name,
	).Scan(&workerID); err != nil {
		return 0, errors.Wrapf(err, "read worker id for %q", name)
	}
	if workerID > uid.MaxWorkerID {
		return 0, fmt.Errorf("worker id space exhausted: %d assigned to %q", workerID, name)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return workerID, nil
}
