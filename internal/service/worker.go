package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"videoq/internal/domain"
	"videoq/internal/executor"
	"videoq/internal/port"
)

// progressUpdateInterval throttles how often a running job's progress is
// written back to the store.
const progressUpdateInterval = 2 * time.Second

// Worker polls the queue and runs one job at a time to completion.
type Worker struct {
	id            int
	store         port.JobStore
	queue         port.JobQueue
	execs         *executor.Registry
	bus           *EventBus
	log           *slog.Logger
	checkInterval time.Duration
	jobTimeout    time.Duration

	alive      atomic.Bool
	currentJob atomic.Int64 // 0 when idle
}

func NewWorker(id int, store port.JobStore, queue port.JobQueue, execs *executor.Registry, bus *EventBus, log *slog.Logger, checkInterval, jobTimeout time.Duration) *Worker {
	return &Worker{
		id:            id,
		store:         store,
		queue:         queue,
		execs:         execs,
		bus:           bus,
		log:           log.With(slog.Int("worker", id)),
		checkInterval: checkInterval,
		jobTimeout:    jobTimeout,
	}
}

// Run polls until ctx is canceled. Claim failures are treated as transient:
// the worker logs them and keeps polling rather than dying on a busy
// database.
func (w *Worker) Run(ctx context.Context) {
	w.alive.Store(true)
	defer w.alive.Store(false)

	w.log.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping")
			return
		default:
		}

		job, err := w.queue.Claim()
		if err != nil {
			w.log.Error("claim failed", slog.Any("error", err))
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		w.process(ctx, job)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.checkInterval):
	}
}

// process runs one claimed job to a terminal status. A panic inside an
// executor fails the job instead of killing the worker.
func (w *Worker) process(ctx context.Context, job *domain.Job) {
	w.currentJob.Store(job.ID)
	defer w.currentJob.Store(0)

	w.log.Info("processing job",
		slog.Int64("job_id", job.ID),
		slog.String("type", string(job.Type)))

	runCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	outputs, err := w.execute(runCtx, job)
	if err != nil {
		w.fail(job, err)
		return
	}
	w.complete(job, outputs)
}

func (w *Worker) execute(ctx context.Context, job *domain.Job) (outputs []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("executor panic",
				slog.Int64("job_id", job.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	lastUpdate := time.Now()
	onProgress := func(elapsed, percent float64) {
		if percent < 0 {
			return
		}
		w.bus.Publish(Event{JobID: job.ID, Status: domain.JobStatusRunning, Progress: percent})
		if time.Since(lastUpdate) < progressUpdateInterval {
			return
		}
		lastUpdate = time.Now()
		if err := w.store.UpdateProgress(job.ID, percent); err != nil {
			w.log.Warn("progress update failed",
				slog.Int64("job_id", job.ID),
				slog.Any("error", err))
		}
	}

	return w.execs.Execute(ctx, job, onProgress)
}

func (w *Worker) complete(job *domain.Job, outputs []string) {
	progress := 100.0
	upd := domain.StatusUpdate{Progress: &progress, OutputFiles: outputs}
	if err := w.store.UpdateJobStatus(job.ID, domain.JobStatusCompleted, upd); err != nil {
		w.log.Error("failed to mark job completed",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err))
		return
	}
	w.bus.Publish(Event{JobID: job.ID, Status: domain.JobStatusCompleted, Progress: 100})
	w.log.Info("job completed",
		slog.Int64("job_id", job.ID),
		slog.Int("outputs", len(outputs)))
}

func (w *Worker) fail(job *domain.Job, jobErr error) {
	var procErr *domain.ProcessingError
	if errors.As(jobErr, &procErr) && procErr.Stderr != "" {
		if err := w.store.AddJobLog(job.ID, domain.LogLevelError, procErr.Stderr); err != nil {
			w.log.Warn("failed to record stderr", slog.Int64("job_id", job.ID), slog.Any("error", err))
		}
	}

	upd := domain.StatusUpdate{ErrorMessage: jobErr.Error()}
	if err := w.store.UpdateJobStatus(job.ID, domain.JobStatusFailed, upd); err != nil {
		w.log.Error("failed to mark job failed",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err))
		return
	}
	if err := w.store.IncrementRetryCount(job.ID); err != nil {
		w.log.Warn("failed to bump retry count", slog.Int64("job_id", job.ID), slog.Any("error", err))
	}
	w.bus.Publish(Event{JobID: job.ID, Status: domain.JobStatusFailed, Message: jobErr.Error()})
	w.log.Error("job failed",
		slog.Int64("job_id", job.ID),
		slog.Any("error", jobErr))
}

// Alive reports whether the worker's poll loop is running.
func (w *Worker) Alive() bool { return w.alive.Load() }

// CurrentJob returns the ID of the job being processed, or 0 when idle.
func (w *Worker) CurrentJob() int64 { return w.currentJob.Load() }
