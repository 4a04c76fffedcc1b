package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"videoq/internal/domain"
	"videoq/internal/port"
)

type Prober struct {
	binary  string
	timeout time.Duration
}

func NewProber() *Prober {
	return &Prober{binary: "ffprobe", timeout: 30 * time.Second}
}

// Installed reports whether the ffprobe binary is on PATH.
func (p *Prober) Installed() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe runs ffprobe and reduces its JSON output to a MediaInfo record.
func (p *Prober) Probe(ctx context.Context, path string) (*domain.MediaInfo, error) {
	if _, err := exec.LookPath(p.binary); err != nil {
		return nil, &domain.ProcessingError{Msg: "ffprobe is not installed or not found in PATH", ExitCode: -1}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	out, err := exec.CommandContext(ctx, p.binary, args...).Output()
	if err != nil {
		exitCode := -1
		stderr := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
			stderr = string(exitErr.Stderr)
		}
		return nil, &domain.ProcessingError{
			Msg:      fmt.Sprintf("ffprobe failed for %s", path),
			ExitCode: exitCode,
			Stderr:   stderr,
		}
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &domain.MediaInfo{
		Duration: domain.ParseDuration(probe.Format.Duration),
		Format:   probe.Format.FormatName,
	}
	if bitrate, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.BitRate = bitrate
	}
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = stream.CodecName
				info.Width = stream.Width
				info.Height = stream.Height
				info.FPS = domain.ParseFrameRate(stream.RFrameRate)
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = stream.CodecName
			}
		}
	}
	return info, nil
}

var _ port.Prober = (*Prober)(nil)
