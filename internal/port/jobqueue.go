package port

import "videoq/internal/domain"

// JobQueue grants exclusive claims on pending jobs.
type JobQueue interface {
	// Claim atomically selects the oldest pending job, marks it running and
	// returns it. The caller is the sole owner of that run. Returns (nil, nil)
	// when no job is pending.
	Claim() (*domain.Job, error)
	// Requeue resets a job to pending with progress 0 so a worker can pick it
	// up again. Retry count is left alone; it only moves on failure.
	Requeue(id int64) error
}
