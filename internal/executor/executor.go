// Package executor translates a job's declarative configuration into calls
// on the external media tool. One executor per job type; all of them are
// safe to re-invoke from scratch after a failed attempt (partial outputs are
// treated as overwritable).
package executor

import (
	"context"
	"log/slog"

	"videoq/internal/domain"
	"videoq/internal/port"
	"videoq/internal/profile"
)

// ProgressFunc receives progress during execution. Percent is in [0,100], or
// negative when the executor cannot estimate it.
type ProgressFunc func(elapsedSeconds, percent float64)

type Executor interface {
	Execute(ctx context.Context, job *domain.Job, onProgress ProgressFunc) ([]string, error)
}

type Deps struct {
	Runner   port.Runner
	Prober   port.Prober
	Profiles *profile.Registry
	Log      *slog.Logger
}

// Registry dispatches jobs to the executor matching their type.
type Registry struct {
	execs map[domain.JobType]Executor
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{execs: map[domain.JobType]Executor{
		domain.JobTypeCut:          &CutExecutor{deps: deps},
		domain.JobTypeConcat:       &ConcatExecutor{deps: deps},
		domain.JobTypeExtractAudio: &ExtractAudioExecutor{deps: deps},
		domain.JobTypeReplaceAudio: &ReplaceAudioExecutor{deps: deps},
	}}
}

// Execute runs the job and returns the produced output paths. A record
// carrying a job type this build does not know fails without any external
// call.
func (r *Registry) Execute(ctx context.Context, job *domain.Job, onProgress ProgressFunc) ([]string, error) {
	exec, ok := r.execs[job.Type]
	if !ok {
		return nil, domain.NewConfigError("unknown job type: %s", job.Type)
	}
	return exec.Execute(ctx, job, onProgress)
}

// defaultEncodeArgs is the re-encode fallback used when no profile is named.
var defaultEncodeArgs = []string{
	"-c:v", "libx264",
	"-preset", "medium",
	"-crf", "23",
	"-c:a", "aac",
	"-b:a", "128k",
}

// encodeArgs resolves the codec flags for a re-encode: the named profile's
// flags, or the defaults when no profile is given.
func (d *Deps) encodeArgs(profileName string) ([]string, error) {
	if profileName == "" {
		return defaultEncodeArgs, nil
	}
	p, err := d.Profiles.Get(profileName)
	if err != nil {
		return nil, domain.NewConfigError("%v", err)
	}
	return p.EncodeArgs(), nil
}

// progressRelay adapts raw tool progress into elapsed/percent callbacks.
// totalSeconds <= 0 disables the percent estimate.
func progressRelay(totalSeconds float64, onProgress ProgressFunc) port.ProgressFunc {
	if onProgress == nil {
		return nil
	}
	return func(p port.Progress) {
		percent := -1.0
		if totalSeconds > 0 {
			percent = p.TimeSeconds / totalSeconds * 100
			if percent > 99 {
				percent = 99
			}
		}
		onProgress(p.TimeSeconds, percent)
	}
}
