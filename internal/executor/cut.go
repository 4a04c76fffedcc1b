package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"

	"videoq/internal/domain"
	"videoq/internal/fsutil"
)

// diskSpaceFactor pads the input size when estimating output space; a codec
// copy produces roughly the input size again.
const (
	diskSpaceFactor = 1.2
	diskSpaceBuffer = int64(1) << 30 // 1 GB
)

// CutExecutor splits one input into fixed-duration segments or into
// caller-specified timestamp ranges.
type CutExecutor struct {
	deps Deps
}

func (e *CutExecutor) Execute(ctx context.Context, job *domain.Job, onProgress ProgressFunc) ([]string, error) {
	decoded, err := domain.DecodeJobConfig(domain.JobTypeCut, job.Config)
	if err != nil {
		return nil, err
	}
	cfg := decoded.(*domain.CutConfig)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(job.InputFiles) != 1 {
		return nil, domain.NewValidationError("cut requires exactly one input file, got %d", len(job.InputFiles))
	}
	input := job.InputFiles[0]
	if err := fsutil.ValidateInput(input); err != nil {
		return nil, err
	}
	if err := fsutil.EnsureDir(cfg.OutputDir); err != nil {
		return nil, err
	}

	required := int64(float64(fsutil.FileSize(input)) * diskSpaceFactor)
	if err := fsutil.CheckDiskSpace(required, cfg.OutputDir, diskSpaceBuffer); err != nil {
		return nil, err
	}

	if cfg.SegmentDuration > 0 {
		return e.cutByDuration(ctx, input, cfg, onProgress)
	}
	return e.cutByTimestamps(ctx, input, cfg, onProgress)
}

func (e *CutExecutor) cutByDuration(ctx context.Context, input string, cfg *domain.CutConfig, onProgress ProgressFunc) ([]string, error) {
	info, err := e.deps.Prober.Probe(ctx, input)
	if err != nil {
		return nil, err
	}
	if info.Duration <= 0 {
		return nil, domain.NewValidationError("input has invalid duration: %.2fs", info.Duration)
	}

	numSegments := int(math.Ceil(info.Duration / float64(cfg.SegmentDuration)))
	e.deps.Log.Info("splitting input into segments",
		slog.String("input", input),
		slog.Float64("duration", info.Duration),
		slog.Int("segments", numSegments))

	// The tool writes to hidden staging names; segments are renamed into
	// place only after it exits cleanly, so an interrupted run never leaves
	// a truncated segment at a final name.
	ext := filepath.Ext(input)
	pattern := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%%03d%s", cfg.Prefix, ext))

	segments := make([]string, numSegments)
	staged := make([]string, numSegments)
	for i := range segments {
		segments[i] = filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%03d%s", cfg.Prefix, cfg.StartNumber+i, ext))
		staged[i] = fsutil.StagePath(segments[i])
	}
	defer fsutil.CleanupTempFiles(staged...)

	args := []string{
		"-i", input,
		"-f", "segment",
		"-segment_time", strconv.Itoa(cfg.SegmentDuration),
		"-segment_start_number", strconv.Itoa(cfg.StartNumber),
		"-reset_timestamps", "1",
	}
	args, err = e.appendCodecArgs(args, cfg)
	if err != nil {
		return nil, err
	}
	args = append(args, "-y", fsutil.StagePath(pattern))

	if _, err := e.deps.Runner.Run(ctx, args, progressRelay(info.Duration, onProgress)); err != nil {
		return nil, err
	}

	var outputs []string
	for i, segment := range segments {
		if fsutil.FileSize(staged[i]) == 0 {
			e.deps.Log.Warn("expected segment not found", slog.String("path", segment))
			continue
		}
		if err := fsutil.CommitOutput(staged[i], segment); err != nil {
			return nil, err
		}
		outputs = append(outputs, segment)
	}
	if len(outputs) == 0 {
		return nil, &domain.ProcessingError{Msg: "no output segments were created", ExitCode: -1}
	}
	return outputs, nil
}

func (e *CutExecutor) cutByTimestamps(ctx context.Context, input string, cfg *domain.CutConfig, onProgress ProgressFunc) ([]string, error) {
	ext := filepath.Ext(input)
	total := len(cfg.Timestamps)

	var outputs []string
	for i, r := range cfg.Timestamps {
		duration := r.End - r.Start
		output := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%03d%s", cfg.Prefix, cfg.StartNumber+i, ext))
		staged := fsutil.StagePath(output)

		args := []string{
			"-i", input,
			"-ss", formatSeconds(r.Start),
			"-t", formatSeconds(duration),
		}
		args, err := e.appendCodecArgs(args, cfg)
		if err != nil {
			return nil, err
		}
		args = append(args, "-y", staged)

		// Overall progress spreads each range over an equal share.
		segIndex := i
		relay := func(elapsed, _ float64) {
			if onProgress == nil {
				return
			}
			segPercent := elapsed / duration
			if segPercent > 1 {
				segPercent = 1
			}
			onProgress(elapsed, (float64(segIndex)+segPercent)/float64(total)*100)
		}

		if _, err := e.deps.Runner.Run(ctx, args, progressRelay(duration, relay)); err != nil {
			fsutil.CleanupTempFiles(staged)
			return nil, err
		}
		if fsutil.FileSize(staged) == 0 {
			fsutil.CleanupTempFiles(staged)
			e.deps.Log.Warn("expected output not created", slog.String("path", output))
			continue
		}
		if err := fsutil.CommitOutput(staged, output); err != nil {
			return nil, err
		}
		outputs = append(outputs, output)
	}
	if len(outputs) == 0 {
		return nil, &domain.ProcessingError{Msg: "no output segments were created", ExitCode: -1}
	}
	return outputs, nil
}

func (e *CutExecutor) appendCodecArgs(args []string, cfg *domain.CutConfig) ([]string, error) {
	if cfg.CopyCodec {
		return append(args, "-c", "copy"), nil
	}
	encode, err := e.deps.encodeArgs(cfg.Profile)
	if err != nil {
		return nil, err
	}
	return append(args, encode...), nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
