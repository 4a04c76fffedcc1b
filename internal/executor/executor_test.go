package executor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"videoq/internal/domain"
	"videoq/internal/port"
	"videoq/internal/profile"
)

// fakeRunner records every invocation and lets the test fabricate the files
// the real tool would have produced.
type fakeRunner struct {
	calls  [][]string
	onRun  func(args []string) error
	result *port.RunResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, args []string, _ port.ProgressFunc) (*port.RunResult, error) {
	f.calls = append(f.calls, args)
	if f.onRun != nil {
		if err := f.onRun(args); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &port.RunResult{}, nil
}

type fakeProber struct {
	infos map[string]*domain.MediaInfo
	err   error
}

func (f *fakeProber) Probe(_ context.Context, path string) (*domain.MediaInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	info, ok := f.infos[path]
	if !ok {
		return nil, &domain.ProcessingError{Msg: "no such file", ExitCode: 1}
	}
	return info, nil
}

func testDeps(t *testing.T, runner *fakeRunner, prober *fakeProber) Deps {
	t.Helper()
	profiles, err := profile.Load("")
	require.NoError(t, err)
	return Deps{
		Runner:   runner,
		Prober:   prober,
		Profiles: profiles,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// writeInput creates a non-empty file standing in for a media input.
func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o644))
	return path
}

func hasArgPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func mustJob(t *testing.T, jobType domain.JobType, inputs []string, cfg domain.JobConfig) *domain.Job {
	t.Helper()
	raw, err := domain.EncodeJobConfig(cfg)
	require.NoError(t, err)
	return &domain.Job{ID: 1, Type: jobType, Status: domain.JobStatusRunning, InputFiles: inputs, Config: raw}
}
