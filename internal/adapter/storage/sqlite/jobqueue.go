package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"videoq/internal/domain"
	"videoq/internal/port"
)

// JobQueue serializes claims on pending jobs. The select and the transition
// to running happen in one UPDATE so two claimants can never both see a job
// as pending; the mutex keeps claim transactions from contending on the
// single writer connection.
type JobQueue struct {
	store *Store
	mu    sync.Mutex
}

func NewJobQueue(store *Store) *JobQueue {
	return &JobQueue{store: store}
}

// Claim picks the oldest pending job (FIFO by creation time), marks it
// running and returns it. The caller owns that run exclusively. Returns
// (nil, nil) when nothing is pending.
func (q *JobQueue) Claim() (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	tx, err := q.store.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRow(`
		UPDATE jobs
		SET status = ?, started_at = COALESCE(started_at, ?)
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = ?
			ORDER BY created_at ASC, id ASC
			LIMIT 1
		)
		RETURNING `+jobColumns,
		string(domain.JobStatusRunning), time.Now().UTC(), string(domain.JobStatusPending))

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim next job: %w", err)
	}

	if err := insertLog(tx, job.ID, domain.LogLevelInfo, fmt.Sprintf("Status updated: %s", domain.JobStatusRunning)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return job, nil
}

// Requeue resets a job to pending with progress 0. The retry count is left
// alone here; it moves only when a run fails.
func (q *JobQueue) Requeue(id int64) error {
	tx, err := q.store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin requeue: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE jobs SET status = ?, progress = 0 WHERE id = ?`,
		string(domain.JobStatusPending), id)
	if err != nil {
		return fmt.Errorf("requeue job %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	if err := insertLog(tx, id, domain.LogLevelInfo, "Job requeued"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit requeue: %w", err)
	}
	return nil
}

var _ port.JobQueue = (*JobQueue)(nil)
