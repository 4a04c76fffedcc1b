package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir       string
	DBPath        string
	ProfilesPath  string
	PIDFile       string
	Workers       int
	CheckInterval time.Duration
	JobTimeout    time.Duration
	StopTimeout   time.Duration
	LogLevel      string
}

func Load() (*Config, error) {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	workers, err := strconv.Atoi(getEnv("VIDEOQ_WORKERS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid VIDEOQ_WORKERS: %w", err)
	}
	if workers < 1 {
		return nil, fmt.Errorf("VIDEOQ_WORKERS must be at least 1, got %d", workers)
	}

	checkInterval, err := time.ParseDuration(getEnv("VIDEOQ_CHECK_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid VIDEOQ_CHECK_INTERVAL: %w", err)
	}

	jobTimeout, err := time.ParseDuration(getEnv("VIDEOQ_JOB_TIMEOUT", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid VIDEOQ_JOB_TIMEOUT: %w", err)
	}

	stopTimeout, err := time.ParseDuration(getEnv("VIDEOQ_STOP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid VIDEOQ_STOP_TIMEOUT: %w", err)
	}

	dataDir := getEnv("VIDEOQ_DATA_DIR", ".")

	return &Config{
		DataDir:       dataDir,
		DBPath:        getEnv("VIDEOQ_DB_PATH", dataDir+"/jobs.db"),
		ProfilesPath:  getEnv("VIDEOQ_PROFILES_PATH", ""),
		PIDFile:       getEnv("VIDEOQ_PID_FILE", dataDir+"/.worker_pool.pid"),
		Workers:       workers,
		CheckInterval: checkInterval,
		JobTimeout:    jobTimeout,
		StopTimeout:   stopTimeout,
		LogLevel:      getEnv("VIDEOQ_LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
