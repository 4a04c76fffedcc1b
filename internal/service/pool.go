package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"videoq/internal/domain"
	"videoq/internal/executor"
	"videoq/internal/port"
)

// WorkerStatus is one worker's snapshot for status reporting.
type WorkerStatus struct {
	ID         int
	Alive      bool
	CurrentJob int64
}

// Pool owns a set of workers and the on-disk PID marker that advertises a
// running pool to other processes.
type Pool struct {
	store         port.JobStore
	queue         port.JobQueue
	execs         *executor.Registry
	bus           *EventBus
	log           *slog.Logger
	pidFile       string
	checkInterval time.Duration
	jobTimeout    time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	workers []*Worker
}

func NewPool(store port.JobStore, queue port.JobQueue, execs *executor.Registry, bus *EventBus, log *slog.Logger, pidFile string, checkInterval, jobTimeout time.Duration) *Pool {
	return &Pool{
		store:         store,
		queue:         queue,
		execs:         execs,
		bus:           bus,
		log:           log,
		pidFile:       pidFile,
		checkInterval: checkInterval,
		jobTimeout:    jobTimeout,
	}
}

// Start launches n workers and writes the PID marker. Starting an already
// running pool returns ErrPoolRunning without touching the existing workers.
func (p *Pool) Start(ctx context.Context, n int) error {
	if n < 1 {
		return domain.NewValidationError("worker count must be at least 1, got %d", n)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return domain.ErrPoolRunning
	}

	if err := p.writePIDFile(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.workers = make([]*Worker, 0, n)

	// Fresh WaitGroup per start: after a timed-out Stop, stragglers from the
	// previous run may still hold the old one.
	wg := new(sync.WaitGroup)
	p.wg = wg

	for i := 1; i <= n; i++ {
		w := NewWorker(i, p.store, p.queue, p.execs, p.bus, p.log, p.checkInterval, p.jobTimeout)
		p.workers = append(p.workers, w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(runCtx)
		}()
	}

	p.log.Info("worker pool started",
		slog.Int("workers", n),
		slog.String("pid_file", p.pidFile))
	return nil
}

// Stop cancels the workers and waits up to timeout for them to finish their
// current jobs. The PID marker is removed even when the wait times out.
func (p *Pool) Stop(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return domain.ErrPoolNotRunning
	}

	p.cancel()
	p.cancel = nil

	wg := p.wg
	p.wg = nil

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
		p.log.Info("worker pool stopped")
	case <-time.After(timeout):
		waitErr = fmt.Errorf("workers did not stop within %s", timeout)
		p.log.Warn("worker pool stop timed out", slog.Duration("timeout", timeout))
	}

	if err := os.Remove(p.pidFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.log.Warn("failed to remove pid file", slog.Any("error", err))
	}
	p.workers = nil
	return waitErr
}

// IsRunning reports whether the pool was started and at least one worker's
// poll loop is still alive.
func (p *Pool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return false
	}
	for _, w := range p.workers {
		if w.Alive() {
			return true
		}
	}
	return false
}

// Status snapshots every worker.
func (p *Pool) Status() []WorkerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]WorkerStatus, 0, len(p.workers))
	for _, w := range p.workers {
		statuses = append(statuses, WorkerStatus{
			ID:         w.id,
			Alive:      w.Alive(),
			CurrentJob: w.CurrentJob(),
		})
	}
	return statuses
}

// writePIDFile claims the marker with O_EXCL so two pools racing on startup
// cannot both win. A marker left by a dead process is removed and the claim
// retried once.
func (p *Pool) writePIDFile() error {
	if err := os.MkdirAll(filepath.Dir(p.pidFile), 0o755); err != nil {
		return fmt.Errorf("create pid file directory: %w", err)
	}
	pid := []byte(strconv.Itoa(os.Getpid()) + "\n")

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(p.pidFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if _, err := f.Write(pid); err != nil {
				_ = f.Close()
				_ = os.Remove(p.pidFile)
				return fmt.Errorf("write pid file: %w", err)
			}
			return f.Close()
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create pid file: %w", err)
		}

		holder, alive, err := CheckLiveness(p.pidFile)
		if err != nil {
			return err
		}
		if alive {
			return fmt.Errorf("another worker pool is already running (pid %d): %w", holder, domain.ErrPoolRunning)
		}
		p.log.Warn("removing stale pid file",
			slog.String("path", p.pidFile),
			slog.Int("pid", holder))
		if err := os.Remove(p.pidFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale pid file: %w", err)
		}
	}
	return fmt.Errorf("could not claim pid file %s", p.pidFile)
}

// CheckLiveness reads the PID marker at path and verifies the recorded
// process still exists. It returns the PID and whether that process is
// alive. A missing marker returns (0, false, nil); a marker left behind by
// a dead process is reported with alive=false so callers can clean it up.
func CheckLiveness(path string) (int, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false, fmt.Errorf("pid file %s is corrupt: %q", path, strings.TrimSpace(string(data)))
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false, nil
	}
	// Signal 0 probes existence without delivering anything.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return pid, false, nil
	}
	return pid, true, nil
}
