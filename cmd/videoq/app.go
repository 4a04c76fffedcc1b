package main

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"videoq/config"
	"videoq/internal/adapter/ffmpeg"
	"videoq/internal/adapter/storage/sqlite"
	"videoq/internal/infrastructure/logger"
	"videoq/internal/profile"
	"videoq/internal/service"
)

var version = "dev"

func App() *cli.Command {
	return &cli.Command{
		Name:    "videoq",
		Version: version,
		Usage:   "Queue-backed video processing: cut, concat and audio operations run by background workers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("VIDEOQ_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			cutCmd(),
			concatCmd(),
			audioCmd(),
			jobsCmd(),
			workerCmd(),
			profilesCmd(),
			doctorCmd(),
		},
	}
}

// appEnv is the wired-up application: config, store, queue and services.
// Commands build it on demand and must call close when done.
type appEnv struct {
	cfg      *config.Config
	log      *slog.Logger
	store    *sqlite.Store
	queue    *sqlite.JobQueue
	runner   *ffmpeg.Runner
	prober   *ffmpeg.Prober
	profiles *profile.Registry
	jobs     *service.JobService
}

func newAppEnv(cmd *cli.Command) (*appEnv, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	log := logger.New(cfg.LogLevel)

	store, err := sqlite.NewStore(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", slog.Any("error", err))
		}
	}

	profiles, err := profile.Load(cfg.ProfilesPath)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	queue := sqlite.NewJobQueue(store)
	runner := ffmpeg.NewRunner(cfg.JobTimeout, log)
	prober := ffmpeg.NewProber()
	jobs := service.NewJobService(store, queue, prober, log)

	return &appEnv{
		cfg:      cfg,
		log:      log,
		store:    store,
		queue:    queue,
		runner:   runner,
		prober:   prober,
		profiles: profiles,
		jobs:     jobs,
	}, closeFn, nil
}
