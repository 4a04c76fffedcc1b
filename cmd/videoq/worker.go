package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"videoq/internal/domain"
	"videoq/internal/executor"
	"videoq/internal/service"
)

func workerCmd() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Manage the background worker pool",
		Commands: []*cli.Command{
			workerStartCmd(),
			workerStopCmd(),
			workerStatusCmd(),
		},
	}
}

func workerStartCmd() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Run the worker pool in the foreground until interrupted",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of concurrent workers (0 uses the configured default)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if pid, alive, err := service.CheckLiveness(env.cfg.PIDFile); err != nil {
				return err
			} else if alive {
				return fmt.Errorf("a worker pool is already running (pid %d)", pid)
			}

			workers := int(cmd.Int("workers"))
			if workers <= 0 {
				workers = env.cfg.Workers
			}

			execs := executor.NewRegistry(executor.Deps{
				Runner:   env.runner,
				Prober:   env.prober,
				Profiles: env.profiles,
				Log:      env.log,
			})
			bus := service.NewEventBus()
			pool := service.NewPool(env.store, env.queue, execs, bus, env.log,
				env.cfg.PIDFile, env.cfg.CheckInterval, env.cfg.JobTimeout)

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			events := bus.Subscribe()
			feedDone := make(chan struct{})
			go func() {
				defer close(feedDone)
				printEventFeed(events)
			}()

			if err := pool.Start(runCtx, workers); err != nil {
				bus.Unsubscribe(events)
				<-feedDone
				return err
			}

			<-runCtx.Done()
			err = pool.Stop(env.cfg.StopTimeout)
			bus.Unsubscribe(events)
			<-feedDone
			return err
		},
	}
}

// printEventFeed mirrors worker events on stdout until the channel closes.
// Progress lines are coarsened to 10-point steps per job to keep the feed
// readable.
func printEventFeed(events chan service.Event) {
	lastStep := make(map[int64]int)
	for ev := range events {
		switch ev.Status {
		case domain.JobStatusRunning:
			step := int(ev.Progress) / 10
			if step == lastStep[ev.JobID] {
				continue
			}
			lastStep[ev.JobID] = step
			fmt.Printf("job %d: %.0f%%\n", ev.JobID, ev.Progress)
		case domain.JobStatusCompleted:
			delete(lastStep, ev.JobID)
			fmt.Printf("job %d: completed\n", ev.JobID)
		case domain.JobStatusFailed:
			delete(lastStep, ev.JobID)
			fmt.Printf("job %d: failed: %s\n", ev.JobID, ev.Message)
		}
	}
}

func workerStopCmd() *cli.Command {
	return &cli.Command{
		Name:  "stop",
		Usage: "Signal a running worker pool to shut down",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "How long to wait for the pool to exit",
				Value: 30 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			pid, alive, err := service.CheckLiveness(env.cfg.PIDFile)
			if err != nil {
				return err
			}
			if !alive {
				if pid != 0 {
					// Stale marker from a dead process.
					os.Remove(env.cfg.PIDFile)
				}
				return fmt.Errorf("no worker pool is running")
			}

			proc, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("find process %d: %w", pid, err)
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("signal process %d: %w", pid, err)
			}

			deadline := time.Now().Add(cmd.Duration("wait"))
			for time.Now().Before(deadline) {
				if _, alive, _ := service.CheckLiveness(env.cfg.PIDFile); !alive {
					fmt.Printf("worker pool (pid %d) stopped\n", pid)
					return nil
				}
				time.Sleep(250 * time.Millisecond)
			}
			return fmt.Errorf("worker pool (pid %d) did not stop within %s", pid, cmd.Duration("wait"))
		},
	}
}

func workerStatusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Report whether a worker pool is running",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			pid, alive, err := service.CheckLiveness(env.cfg.PIDFile)
			if err != nil {
				return err
			}
			switch {
			case alive:
				fmt.Printf("worker pool running (pid %d)\n", pid)
			case pid != 0:
				fmt.Printf("stale pid file (pid %d is gone): %s\n", pid, env.cfg.PIDFile)
			default:
				fmt.Println("worker pool not running")
			}

			running, err := env.jobs.List("running", 0)
			if err != nil {
				return err
			}
			for _, j := range running {
				fmt.Printf("  job %d (%s) at %.1f%%\n", j.ID, j.Type, j.Progress)
			}
			return nil
		},
	}
}
