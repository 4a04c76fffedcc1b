package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"videoq/internal/domain"
)

func cutCmd() *cli.Command {
	return &cli.Command{
		Name:      "cut",
		Usage:     "Queue a job that splits a video into segments",
		ArgsUsage: "<input>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output-dir",
				Aliases:  []string{"o"},
				Usage:    "Directory the segments are written to",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "segment-duration",
				Aliases: []string{"d"},
				Usage:   "Split into fixed-length segments of this many seconds",
			},
			&cli.StringSliceFlag{
				Name:    "timestamp",
				Aliases: []string{"t"},
				Usage:   "Cut one range, as start-end in seconds (repeatable, e.g. -t 0-30 -t 45.5-90)",
			},
			&cli.BoolFlag{
				Name:  "re-encode",
				Usage: "Re-encode instead of copying streams",
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "Encoding profile to use with --re-encode",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Output filename prefix",
				Value: "part",
			},
			&cli.IntFlag{
				Name:  "start-number",
				Usage: "First segment number",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "plan",
				Usage: "Print the segment layout without queueing a job",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one input file")
			}
			input := cmd.Args().First()

			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if cmd.Bool("plan") {
				plan, err := env.jobs.PlanSegments(ctx, input, int(cmd.Int("segment-duration")))
				if err != nil {
					return err
				}
				fmt.Printf("duration: %.2fs\n", plan.Duration)
				fmt.Printf("segments: %d x %ds (last %.2fs)\n", plan.Segments, plan.SegmentSecs, plan.LastSegment)
				return nil
			}

			timestamps, err := parseTimestamps(cmd.StringSlice("timestamp"))
			if err != nil {
				return err
			}

			cfg := &domain.CutConfig{
				OutputDir:       cmd.String("output-dir"),
				SegmentDuration: int(cmd.Int("segment-duration")),
				Timestamps:      timestamps,
				CopyCodec:       !cmd.Bool("re-encode"),
				Prefix:          cmd.String("prefix"),
				StartNumber:     int(cmd.Int("start-number")),
				Profile:         cmd.String("profile"),
			}

			job, err := env.jobs.Submit(domain.JobTypeCut, []string{input}, cfg)
			if err != nil {
				return err
			}
			fmt.Printf("queued cut job %d\n", job.ID)
			return nil
		},
	}
}

// parseTimestamps turns "start-end" strings into ranges. Both bounds are
// seconds, fractions allowed.
func parseTimestamps(specs []string) ([]domain.TimeRange, error) {
	var ranges []domain.TimeRange
	for _, spec := range specs {
		start, end, ok := strings.Cut(spec, "-")
		if !ok {
			return nil, fmt.Errorf("invalid timestamp %q: want start-end", spec)
		}
		s, err := strconv.ParseFloat(strings.TrimSpace(start), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", spec, err)
		}
		e, err := strconv.ParseFloat(strings.TrimSpace(end), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", spec, err)
		}
		ranges = append(ranges, domain.TimeRange{Start: s, End: e})
	}
	return ranges, nil
}
