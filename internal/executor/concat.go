package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"videoq/internal/domain"
	"videoq/internal/fsutil"
)

// ConcatExecutor joins two or more inputs into a single output. In copy mode
// it uses the concat demuxer, which requires all inputs to share codecs and
// dimensions; that is verified up front so mismatches fail before any work
// starts.
type ConcatExecutor struct {
	deps Deps
}

func (e *ConcatExecutor) Execute(ctx context.Context, job *domain.Job, onProgress ProgressFunc) ([]string, error) {
	decoded, err := domain.DecodeJobConfig(domain.JobTypeConcat, job.Config)
	if err != nil {
		return nil, err
	}
	cfg := decoded.(*domain.ConcatConfig)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(job.InputFiles) < 2 {
		return nil, domain.NewValidationError("concat requires at least two input files, got %d", len(job.InputFiles))
	}

	var totalSize int64
	for _, input := range job.InputFiles {
		if err := fsutil.ValidateInput(input); err != nil {
			return nil, err
		}
		totalSize += fsutil.FileSize(input)
	}

	outDir := filepath.Dir(cfg.OutputPath)
	if err := fsutil.EnsureDir(outDir); err != nil {
		return nil, err
	}
	required := int64(float64(totalSize) * diskSpaceFactor)
	if err := fsutil.CheckDiskSpace(required, outDir, diskSpaceBuffer); err != nil {
		return nil, err
	}

	var total float64
	if cfg.CopyCodec && cfg.ValidateCompatibility {
		total, err = e.checkCompatibility(ctx, job.InputFiles)
		if err != nil {
			return nil, err
		}
	} else {
		for _, input := range job.InputFiles {
			info, err := e.deps.Prober.Probe(ctx, input)
			if err != nil {
				return nil, err
			}
			total += info.Duration
		}
	}

	listFile, err := e.writeConcatList(job.InputFiles)
	if err != nil {
		return nil, err
	}
	defer fsutil.CleanupTempFiles(listFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
	}
	if cfg.CopyCodec {
		args = append(args, "-c", "copy")
	} else {
		encode, err := e.deps.encodeArgs(cfg.Profile)
		if err != nil {
			return nil, err
		}
		args = append(args, encode...)
	}
	// Write to a staging name and rename on success so a killed run cannot
	// leave a truncated file at the destination.
	staged := fsutil.StagePath(cfg.OutputPath)
	args = append(args, "-y", staged)

	e.deps.Log.Info("concatenating inputs",
		slog.Int("inputs", len(job.InputFiles)),
		slog.String("output", cfg.OutputPath))

	if _, err := e.deps.Runner.Run(ctx, args, progressRelay(total, onProgress)); err != nil {
		fsutil.CleanupTempFiles(staged)
		return nil, err
	}
	if fsutil.FileSize(staged) == 0 {
		fsutil.CleanupTempFiles(staged)
		return nil, &domain.ProcessingError{Msg: "output file was not created", ExitCode: -1}
	}
	if err := fsutil.CommitOutput(staged, cfg.OutputPath); err != nil {
		return nil, err
	}
	return []string{cfg.OutputPath}, nil
}

// checkCompatibility probes every input and requires matching video codec,
// audio codec and frame dimensions against the first. Returns the summed
// duration so the caller does not probe twice.
func (e *ConcatExecutor) checkCompatibility(ctx context.Context, inputs []string) (float64, error) {
	var (
		ref   *domain.MediaInfo
		total float64
	)
	for i, input := range inputs {
		info, err := e.deps.Prober.Probe(ctx, input)
		if err != nil {
			return 0, err
		}
		total += info.Duration
		if i == 0 {
			ref = info
			continue
		}
		if info.VideoCodec != ref.VideoCodec || info.AudioCodec != ref.AudioCodec ||
			info.Width != ref.Width || info.Height != ref.Height {
			return 0, domain.NewValidationError(
				"input %q is incompatible with %q (%s/%s %dx%d vs %s/%s %dx%d); re-encode with copy_codec=false",
				input, inputs[0],
				info.VideoCodec, info.AudioCodec, info.Width, info.Height,
				ref.VideoCodec, ref.AudioCodec, ref.Width, ref.Height)
		}
	}
	return total, nil
}

// writeConcatList produces the temp list file consumed by the concat
// demuxer. Single quotes in paths are escaped per its quoting rules.
func (e *ConcatExecutor) writeConcatList(inputs []string) (string, error) {
	path, err := fsutil.TempFilename("videoq-concat-", ".txt")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, input := range inputs {
		escaped := strings.ReplaceAll(input, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		fsutil.CleanupTempFiles(path)
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return path, nil
}
