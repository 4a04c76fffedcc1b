package port

import (
	"context"

	"videoq/internal/domain"
)

// Progress is one progress event parsed from the external tool's output.
type Progress struct {
	Frame       int64
	FPS         float64
	SizeKB      float64
	TimeSeconds float64
	BitrateKbps float64
	Speed       float64
}

// ProgressFunc receives streamed progress events during a run. It may be nil.
type ProgressFunc func(Progress)

// RunResult is the captured output of a successful external-tool run.
type RunResult struct {
	Stdout string
	Stderr string
}

// Runner executes the external media-processing tool. A non-zero exit or
// timeout surfaces as a *domain.ProcessingError carrying the diagnostic
// output verbatim.
type Runner interface {
	Run(ctx context.Context, args []string, onProgress ProgressFunc) (*RunResult, error)
}

// Prober answers media metadata queries (duration, codecs, resolution).
type Prober interface {
	Probe(ctx context.Context, path string) (*domain.MediaInfo, error)
}
