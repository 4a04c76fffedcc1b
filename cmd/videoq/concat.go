package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"videoq/internal/domain"
)

func concatCmd() *cli.Command {
	return &cli.Command{
		Name:      "concat",
		Usage:     "Queue a job that joins videos into one file, in argument order",
		ArgsUsage: "<input>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Path of the joined output file",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "re-encode",
				Usage: "Re-encode instead of copying streams",
			},
			&cli.BoolFlag{
				Name:  "no-validate",
				Usage: "Skip the codec/resolution compatibility check in copy mode",
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "Encoding profile to use with --re-encode",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 2 {
				return fmt.Errorf("expected at least two input files")
			}

			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			cfg := &domain.ConcatConfig{
				OutputPath:            cmd.String("output"),
				CopyCodec:             !cmd.Bool("re-encode"),
				ValidateCompatibility: !cmd.Bool("no-validate"),
				Profile:               cmd.String("profile"),
			}

			job, err := env.jobs.Submit(domain.JobTypeConcat, cmd.Args().Slice(), cfg)
			if err != nil {
				return err
			}
			fmt.Printf("queued concat job %d\n", job.ID)
			return nil
		},
	}
}
