package executor

import (
	"context"
	"log/slog"
	"path/filepath"

	"videoq/internal/domain"
	"videoq/internal/fsutil"
)

// defaultBitrates are applied per codec when the config names none. flac is
// lossless and takes no bitrate flag.
var defaultBitrates = map[string]string{
	"aac":  "128k",
	"mp3":  "192k",
	"opus": "128k",
}

// ExtractAudioExecutor pulls the audio track out of a single input.
type ExtractAudioExecutor struct {
	deps Deps
}

func (e *ExtractAudioExecutor) Execute(ctx context.Context, job *domain.Job, onProgress ProgressFunc) ([]string, error) {
	decoded, err := domain.DecodeJobConfig(domain.JobTypeExtractAudio, job.Config)
	if err != nil {
		return nil, err
	}
	cfg := decoded.(*domain.ExtractAudioConfig)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(job.InputFiles) != 1 {
		return nil, domain.NewValidationError("extract_audio requires exactly one input file, got %d", len(job.InputFiles))
	}
	input := job.InputFiles[0]
	if err := fsutil.ValidateInput(input); err != nil {
		return nil, err
	}
	if err := fsutil.EnsureDir(filepath.Dir(cfg.OutputPath)); err != nil {
		return nil, err
	}

	info, err := e.deps.Prober.Probe(ctx, input)
	if err != nil {
		return nil, err
	}
	if !info.HasAudio() {
		return nil, domain.NewValidationError("input %q has no audio stream", input)
	}

	args := []string{"-i", input, "-vn"}
	if cfg.Codec == "copy" {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", codecEncoder(cfg.Codec))
		bitrate := cfg.Bitrate
		if bitrate == "" {
			bitrate = defaultBitrates[cfg.Codec]
		}
		if bitrate != "" {
			args = append(args, "-b:a", bitrate)
		}
	}
	staged := fsutil.StagePath(cfg.OutputPath)
	args = append(args, "-y", staged)

	e.deps.Log.Info("extracting audio",
		slog.String("input", input),
		slog.String("codec", cfg.Codec),
		slog.String("output", cfg.OutputPath))

	if _, err := e.deps.Runner.Run(ctx, args, progressRelay(info.Duration, onProgress)); err != nil {
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

// codecEncoder maps the config codec name onto the encoder the tool ships.
func codecEncoder(codec string) string {
	switch codec {
	case "mp3":
		return "libmp3lame"
	case "opus":
		return "libopus"
	default:
		return codec
	}
}

// ReplaceAudioExecutor swaps a video's audio track with a second input's.
// The first input supplies video, the second supplies audio.
type ReplaceAudioExecutor struct {
	deps Deps
}

func (e *ReplaceAudioExecutor) Execute(ctx context.Context, job *domain.Job, onProgress ProgressFunc) ([]string, error) {
	decoded, err := domain.DecodeJobConfig(domain.JobTypeReplaceAudio, job.Config)
	if err != nil {
		return nil, err
	}
	cfg := decoded.(*domain.ReplaceAudioConfig)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(job.InputFiles) != 2 {
		return nil, domain.NewValidationError("replace_audio requires exactly two input files (video, audio), got %d", len(job.InputFiles))
	}
	video, audio := job.InputFiles[0], job.InputFiles[1]
	for _, input := range job.InputFiles {
		if err := fsutil.ValidateInput(input); err != nil {
			return nil, err
		}
	}
	if err := fsutil.EnsureDir(filepath.Dir(cfg.OutputPath)); err != nil {
		return nil, err
	}

	videoInfo, err := e.deps.Prober.Probe(ctx, video)
	if err != nil {
		return nil, err
	}
	if !videoInfo.HasVideo() {
		return nil, domain.NewValidationError("input %q has no video stream", video)
	}
	audioInfo, err := e.deps.Prober.Probe(ctx, audio)
	if err != nil {
		return nil, err
	}
	if !audioInfo.HasAudio() {
		return nil, domain.NewValidationError("input %q has no audio stream", audio)
	}

	args := []string{
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
	}
	if cfg.CopyCodec {
		args = append(args, "-c:v", "copy", "-c:a", "copy")
	} else {
		encode, err := e.deps.encodeArgs(cfg.Profile)
		if err != nil {
			return nil, err
		}
		args = append(args, encode...)
	}
	// The shorter stream bounds the output so trailing audio or video is
	// dropped rather than frozen.
	staged := fsutil.StagePath(cfg.OutputPath)
	args = append(args, "-shortest", "-y", staged)

	e.deps.Log.Info("replacing audio track",
		slog.String("video", video),
		slog.String("audio", audio),
		slog.String("output", cfg.OutputPath))

	if _, err := e.deps.Runner.Run(ctx, args, progressRelay(videoInfo.Duration, onProgress)); err != nil {
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
