package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"videoq/internal/domain"
)

func audioCmd() *cli.Command {
	return &cli.Command{
		Name:  "audio",
		Usage: "Audio track operations",
		Commands: []*cli.Command{
			audioExtractCmd(),
			audioReplaceCmd(),
		},
	}
}

func audioExtractCmd() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Queue a job that extracts the audio track from a video",
		ArgsUsage: "<input>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Path of the extracted audio file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "codec",
				Usage: "Audio codec: copy, aac, mp3, opus or flac",
				Value: "copy",
			},
			&cli.StringFlag{
				Name:  "bitrate",
				Usage: "Audio bitrate when re-encoding (e.g. 192k)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one input file")
			}

			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			cfg := &domain.ExtractAudioConfig{
				OutputPath: cmd.String("output"),
				Codec:      cmd.String("codec"),
				Bitrate:    cmd.String("bitrate"),
			}

			job, err := env.jobs.Submit(domain.JobTypeExtractAudio, []string{cmd.Args().First()}, cfg)
			if err != nil {
				return err
			}
			fmt.Printf("queued extract_audio job %d\n", job.ID)
			return nil
		},
	}
}

func audioReplaceCmd() *cli.Command {
	return &cli.Command{
		Name:      "replace",
		Usage:     "Queue a job that swaps a video's audio track for another file's",
		ArgsUsage: "<video> <audio>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Path of the output file",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "re-encode",
				Usage: "Re-encode instead of copying streams",
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "Encoding profile to use with --re-encode",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("expected a video file and an audio file")
			}

			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			cfg := &domain.ReplaceAudioConfig{
				OutputPath: cmd.String("output"),
				CopyCodec:  !cmd.Bool("re-encode"),
				Profile:    cmd.String("profile"),
			}

			job, err := env.jobs.Submit(domain.JobTypeReplaceAudio, cmd.Args().Slice(), cfg)
			if err != nil {
				return err
			}
			fmt.Printf("queued replace_audio job %d\n", job.ID)
			return nil
		},
	}
}
