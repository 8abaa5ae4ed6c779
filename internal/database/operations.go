package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"alarmsync/internal/models"

	"github.com/google/uuid"
)

// Enqueue appends an operation in FIFO order and persists it before
// returning, so a crash after Enqueue cannot lose it. The returned id is
// stable across retries.
func (d *DB) Enqueue(ctx context.Context, kind string, payload []byte) (string, error) {
	if kind == "" {
		return "", errors.New("operation kind is required")
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO operations (id, kind, payload, state, attempts, enqueued_at, updated_at)
         VALUES (?, ?, ?, ?, 0, ?, ?)`,
		id, kind, payload, models.StatePending, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue operation: %w", err)
	}

	d.adjustCounts(func(c *models.QueueCounts) { c.Pending++ })
	return id, nil
}

// MarkInFlight atomically transitions pending → in_flight. It fails with
// ErrAlreadyInFlight if another drain already claimed the operation, and
// ErrOperationNotFound if the id does not exist or was acknowledged.
func (d *DB) MarkInFlight(ctx context.Context, id string) (*models.Operation, error) {
	res, err := d.db.ExecContext(ctx,
		`UPDATE operations SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND state = ?`,
		models.StateInFlight, id, models.StatePending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark operation in flight: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		op, getErr := d.GetOperation(ctx, id)
		if getErr != nil {
			return nil, models.ErrOperationNotFound
		}
		if op.State == models.StateInFlight {
			return nil, models.ErrAlreadyInFlight
		}
		return nil, models.ErrOperationNotFound
	}

	d.adjustCounts(func(c *models.QueueCounts) { c.Pending--; c.InFlight++ })
	return d.GetOperation(ctx, id)
}

// Acknowledge removes an operation permanently. Acknowledging an id that is
// already gone is a no-op, which covers duplicate-ack races.
func (d *DB) Acknowledge(ctx context.Context, id string) error {
	op, err := d.GetOperation(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrOperationNotFound) {
			return nil
		}
		return err
	}

	res, err := d.db.ExecContext(ctx, `DELETE FROM operations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge operation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil
	}

	d.adjustCounts(func(c *models.QueueCounts) {
		switch op.State {
		case models.StatePending:
			c.Pending--
		case models.StateInFlight:
			c.InFlight--
		case models.StateFailed:
			c.Failed--
		}
	})
	return nil
}

// Retry transitions in_flight → pending and increments attempts. Once the
// incremented count reaches ceiling the operation is marked failed instead
// and is never retried automatically again.
func (d *DB) Retry(ctx context.Context, id string, cause string, ceiling int) (models.OperationState, error) {
	op, err := d.GetOperation(ctx, id)
	if err != nil {
		return "", err
	}
	if op.State != models.StateInFlight {
		return "", fmt.Errorf("retry on operation %s in state %s", id, op.State)
	}

	attempts := op.Attempts + 1
	next := models.StatePending
	if attempts >= ceiling {
		next = models.StateFailed
	}

	_, err = d.db.ExecContext(ctx,
		`UPDATE operations SET state = ?, attempts = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		next, attempts, cause, id,
	)
	if err != nil {
		return "", fmt.Errorf("failed to retry operation: %w", err)
	}

	d.adjustCounts(func(c *models.QueueCounts) {
		c.InFlight--
		if next == models.StateFailed {
			c.Failed++
		} else {
			c.Pending++
		}
	})
	return next, nil
}

// Fail transitions an operation to failed regardless of its attempt count.
// Used for permanent delivery failures.
func (d *DB) Fail(ctx context.Context, id string, cause string) error {
	op, err := d.GetOperation(ctx, id)
	if err != nil {
		return err
	}
	if op.State == models.StateFailed {
		return nil
	}

	_, err = d.db.ExecContext(ctx,
		`UPDATE operations SET state = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.StateFailed, cause, id,
	)
	if err != nil {
		return fmt.Errorf("failed to fail operation: %w", err)
	}

	d.adjustCounts(func(c *models.QueueCounts) {
		switch op.State {
		case models.StatePending:
			c.Pending--
		case models.StateInFlight:
			c.InFlight--
		}
		c.Failed++
	})
	return nil
}

// RequeueFailed moves all failed operations back to pending with their
// attempt counters reset. Returns the number of requeued operations.
func (d *DB) RequeueFailed(ctx context.Context) (int, error) {
	res, err := d.db.ExecContext(ctx,
		`UPDATE operations SET state = ?, attempts = 0, last_error = NULL, updated_at = CURRENT_TIMESTAMP WHERE state = ?`,
		models.StatePending, models.StateFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue failed operations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	n := int(affected)
	d.adjustCounts(func(c *models.QueueCounts) {
		c.Failed -= n
		c.Pending += n
	})
	return n, nil
}

// ListPending returns a FIFO snapshot of pending operations. It does not
// mutate queue state.
func (d *DB) ListPending(ctx context.Context) ([]models.Operation, error) {
	return d.listByState(ctx, models.StatePending, "ASC")
}

// ListFailed returns failed operations, newest first.
func (d *DB) ListFailed(ctx context.Context) ([]models.Operation, error) {
	return d.listByState(ctx, models.StateFailed, "DESC")
}

func (d *DB) listByState(ctx context.Context, state models.OperationState, order string) ([]models.Operation, error) {
	query := fmt.Sprintf(
		`SELECT id, kind, payload, state, attempts, last_error, enqueued_at, updated_at
         FROM operations WHERE state = ? ORDER BY seq %s`, order)
	rows, err := d.db.QueryContext(ctx, query, state)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var ops []models.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// GetOperation loads a single operation by id.
func (d *DB) GetOperation(ctx context.Context, id string) (*models.Operation, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, kind, payload, state, attempts, last_error, enqueued_at, updated_at
         FROM operations WHERE id = ?`, id)

	op, err := scanOperation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrOperationNotFound
		}
		return nil, err
	}
	return &op, nil
}

// Counts returns the cached queue breakdown without scanning the table.
func (d *DB) Counts() models.QueueCounts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(row rowScanner) (models.Operation, error) {
	var op models.Operation
	var lastErr sql.NullString
	if err := row.Scan(&op.ID, &op.Kind, &op.Payload, &op.State, &op.Attempts, &lastErr, &op.EnqueuedAt, &op.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return op, err
		}
		return op, fmt.Errorf("failed to scan operation: %w", err)
	}
	if lastErr.Valid {
		op.LastError = &lastErr.String
	}
	return op, nil
}
