package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"videoq/internal/domain"
)

func jobsCmd() *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect and manage queued jobs",
		Commands: []*cli.Command{
			jobsListCmd(),
			jobsShowCmd(),
			jobsLogsCmd(),
			jobsRetryCmd(),
			jobsCleanCmd(),
		},
	}
}

func jobsListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List jobs, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "status",
				Aliases: []string{"s"},
				Usage:   "Only show jobs with this status (pending, running, completed, failed)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of jobs to show",
				Value:   20,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			jobs, err := env.jobs.List(domain.JobStatus(cmd.String("status")), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("no jobs")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPROGRESS\tRETRIES\tCREATED")
			for _, j := range jobs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%.1f%%\t%d\t%s\n",
					j.ID, j.Type, j.Status, j.Progress, j.RetryCount,
					j.CreatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

func jobsShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one job in detail",
		ArgsUsage: "<job-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := jobIDArg(cmd)
			if err != nil {
				return err
			}

			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			job, err := env.jobs.Get(id)
			if err != nil {
				return err
			}

			fmt.Printf("id:        %d\n", job.ID)
			fmt.Printf("type:      %s\n", job.Type)
			fmt.Printf("status:    %s\n", job.Status)
			fmt.Printf("progress:  %.1f%%\n", job.Progress)
			fmt.Printf("retries:   %d\n", job.RetryCount)
			fmt.Printf("inputs:    %s\n", strings.Join(job.InputFiles, ", "))
			if len(job.OutputFiles) > 0 {
				fmt.Printf("outputs:   %s\n", strings.Join(job.OutputFiles, ", "))
			}
			fmt.Printf("created:   %s\n", job.CreatedAt.Local().Format(time.DateTime))
			if job.StartedAt.Valid {
				fmt.Printf("started:   %s\n", job.StartedAt.Time.Local().Format(time.DateTime))
			}
			if job.CompletedAt.Valid {
				fmt.Printf("completed: %s\n", job.CompletedAt.Time.Local().Format(time.DateTime))
			}
			if job.ErrorMessage != "" {
				fmt.Printf("error:     %s\n", job.ErrorMessage)
			}
			if len(job.Config) > 0 {
				fmt.Printf("config:    %s\n", string(job.Config))
			}
			return nil
		},
	}
}

func jobsLogsCmd() *cli.Command {
	return &cli.Command{
		Name:      "logs",
		Usage:     "Print a job's log entries, oldest first",
		ArgsUsage: "<job-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := jobIDArg(cmd)
			if err != nil {
				return err
			}

			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := env.jobs.Logs(id)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s [%s] %s\n",
					e.Timestamp.Local().Format(time.DateTime), e.Level, e.Message)
			}
			return nil
		},
	}
}

func jobsRetryCmd() *cli.Command {
	return &cli.Command{
		Name:      "retry",
		Usage:     "Put a failed job back on the queue",
		ArgsUsage: "<job-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := jobIDArg(cmd)
			if err != nil {
				return err
			}

			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			job, err := env.jobs.Retry(id)
			if err != nil {
				return err
			}
			fmt.Printf("job %d requeued (attempt %d)\n", job.ID, job.RetryCount+1)
			return nil
		},
	}
}

func jobsCleanCmd() *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "Delete completed jobs older than the cutoff (failed jobs are kept)",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "older-than",
				Usage: "Age a completed job must exceed to be deleted",
				Value: 7 * 24 * time.Hour,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			deleted, err := env.jobs.Cleanup(cmd.Duration("older-than"))
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d job(s)\n", deleted)
			return nil
		},
	}
}

func jobIDArg(cmd *cli.Command) (int64, error) {
	if cmd.Args().Len() != 1 {
		return 0, fmt.Errorf("expected exactly one job id")
	}
	id, err := strconv.ParseInt(cmd.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", cmd.Args().First())
	}
	return id, nil
}
