package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"videoq/internal/domain"
	"videoq/internal/fsutil"
	"videoq/internal/port"
)

// JobService is the submission and lifecycle surface for jobs. Every write
// goes through the store; the queue is only touched for retries.
type JobService struct {
	store  port.JobStore
	queue  port.JobQueue
	prober port.Prober
	log    *slog.Logger
}

func NewJobService(store port.JobStore, queue port.JobQueue, prober port.Prober, log *slog.Logger) *JobService {
	return &JobService{
		store:  store,
		queue:  queue,
		prober: prober,
		log:    log,
	}
}

// Submit validates the config and inputs and persists a pending job. The
// inputs are checked here so an obviously broken request fails before it
// ever reaches a worker.
func (s *JobService) Submit(jobType domain.JobType, inputFiles []string, cfg domain.JobConfig) (*domain.Job, error) {
	if !jobType.Valid() {
		return nil, domain.NewConfigError("unknown job type: %s", jobType)
	}
	if cfg.JobType() != jobType {
		return nil, domain.NewConfigError("config type %s does not match job type %s", cfg.JobType(), jobType)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(inputFiles) == 0 {
		return nil, domain.NewValidationError("at least one input file is required")
	}
	for _, input := range inputFiles {
		if err := fsutil.ValidateInput(input); err != nil {
			return nil, err
		}
	}

	id, err := s.store.CreateJob(jobType, inputFiles, cfg)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.log.Info("job submitted",
		slog.Int64("job_id", id),
		slog.String("type", string(jobType)),
		slog.Int("inputs", len(inputFiles)))

	return s.store.GetJob(id)
}

func (s *JobService) Get(id int64) (*domain.Job, error) {
	return s.store.GetJob(id)
}

func (s *JobService) List(filter domain.JobStatus, limit int) ([]*domain.Job, error) {
	if filter != "" && !filter.Valid() {
		return nil, domain.NewValidationError("unknown status filter: %s", filter)
	}
	return s.store.ListJobs(filter, limit)
}

func (s *JobService) Logs(id int64) ([]domain.JobLogEntry, error) {
	if _, err := s.store.GetJob(id); err != nil {
		return nil, err
	}
	return s.store.GetJobLogs(id)
}

// Retry puts a failed job back on the queue. Only failed jobs are eligible;
// anything else is rejected so a running job cannot be forked into two
// executions.
func (s *JobService) Retry(id int64) (*domain.Job, error) {
	job, err := s.store.GetJob(id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusFailed {
		return nil, domain.NewValidationError("job %d is %s; only failed jobs can be retried", id, job.Status)
	}

	if err := s.queue.Requeue(id); err != nil {
		return nil, err
	}
	s.log.Info("job requeued", slog.Int64("job_id", id))
	return s.store.GetJob(id)
}

// Cleanup removes completed jobs older than the cutoff and reports how many
// were deleted.
func (s *JobService) Cleanup(olderThan time.Duration) (int64, error) {
	deleted, err := s.store.CleanupOldJobs(olderThan)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("old jobs cleaned up", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}

// SegmentPlan describes what a duration-based cut would produce, without
// running anything.
type SegmentPlan struct {
	Duration    float64
	SegmentSecs int
	Segments    int
	LastSegment float64
}

// PlanSegments probes the input and computes the segment layout a cut with
// the given duration would emit.
func (s *JobService) PlanSegments(ctx context.Context, input string, segmentDuration int) (*SegmentPlan, error) {
	if segmentDuration <= 0 {
		return nil, domain.NewValidationError("segment duration must be positive, got %d", segmentDuration)
	}
	if err := fsutil.ValidateInput(input); err != nil {
		return nil, err
	}
	info, err := s.prober.Probe(ctx, input)
	if err != nil {
		return nil, err
	}
	if info.Duration <= 0 {
		return nil, domain.NewValidationError("input has invalid duration: %.2fs", info.Duration)
	}

	segments := int(math.Ceil(info.Duration / float64(segmentDuration)))
	last := info.Duration - float64(segments-1)*float64(segmentDuration)
	return &SegmentPlan{
		Duration:    info.Duration,
		SegmentSecs: segmentDuration,
		Segments:    segments,
		LastSegment: last,
	}, nil
}
