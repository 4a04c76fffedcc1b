package port

import (
	"time"

	"videoq/internal/domain"
)

// JobStore is the durable, single-source-of-truth record of jobs and their
// audit logs. Every mutating call is one atomicity-bounded unit at the row
// level; exclusivity of claims is the JobQueue's concern.
type JobStore interface {
	CreateJob(jobType domain.JobType, inputFiles []string, cfg domain.JobConfig) (int64, error)
	GetJob(id int64) (*domain.Job, error)
	// ListJobs returns jobs newest-created-first. An empty filter matches all
	// statuses; a limit <= 0 means no limit.
	ListJobs(filter domain.JobStatus, limit int) ([]*domain.Job, error)
	UpdateJobStatus(id int64, status domain.JobStatus, upd domain.StatusUpdate) error
	UpdateProgress(id int64, progress float64) error
	AddJobLog(id int64, level domain.LogLevel, message string) error
	GetJobLogs(id int64) ([]domain.JobLogEntry, error)
	IncrementRetryCount(id int64) error
	// CleanupOldJobs deletes completed jobs whose completion is older than the
	// cutoff. Failed jobs are never touched; their history is kept for manual
	// retry.
	CleanupOldJobs(olderThan time.Duration) (int64, error)
}
