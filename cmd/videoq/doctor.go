package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"videoq/internal/fsutil"
	"videoq/internal/service"
)

// doctorCmd verifies the environment: external tools, the database, the
// profiles file and free disk space in the data directory.
func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check that the environment is ready to process jobs",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, closeFn, err := newAppEnv(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			failed := false
			check := func(name string, err error, detail string) {
				if err != nil {
					failed = true
					fmt.Printf("✗ %s: %v\n", name, err)
					return
				}
				if detail != "" {
					fmt.Printf("✓ %s: %s\n", name, detail)
				} else {
					fmt.Printf("✓ %s\n", name)
				}
			}

			if env.runner.Installed() {
				version, err := env.runner.Version(ctx)
				check("ffmpeg", err, version)
			} else {
				check("ffmpeg", fmt.Errorf("not found in PATH"), "")
			}
			if env.prober.Installed() {
				check("ffprobe", nil, "")
			} else {
				check("ffprobe", fmt.Errorf("not found in PATH"), "")
			}

			_, err = env.jobs.List("", 1)
			check("database", err, env.cfg.DBPath)

			names := env.profiles.Names()
			check("profiles", nil, fmt.Sprintf("%d loaded", len(names)))

			err = fsutil.CheckDiskSpace(0, env.cfg.DataDir, 1<<30)
			check("disk space", err, env.cfg.DataDir)

			pid, alive, err := service.CheckLiveness(env.cfg.PIDFile)
			switch {
			case err != nil:
				check("worker pool", err, "")
			case alive:
				check("worker pool", nil, fmt.Sprintf("running (pid %d)", pid))
			default:
				check("worker pool", nil, "not running")
			}

			if failed {
				return fmt.Errorf("some checks failed")
			}
			return nil
		},
	}
}
