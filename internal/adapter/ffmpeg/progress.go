package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"

	"videoq/internal/port"
)

// progressParser extracts encoding metrics from ffmpeg's stderr stats lines:
//
//	frame=  123 fps= 45 q=28.0 size=   1024kB time=00:00:05.00 bitrate=1677.7kbits/s speed=1.5x
type progressParser struct {
	frameRe   *regexp.Regexp
	fpsRe     *regexp.Regexp
	sizeRe    *regexp.Regexp
	timeRe    *regexp.Regexp
	bitrateRe *regexp.Regexp
	speedRe   *regexp.Regexp
}

func newProgressParser() *progressParser {
	return &progressParser{
		frameRe:   regexp.MustCompile(`frame=\s*(\d+)`),
		fpsRe:     regexp.MustCompile(`fps=\s*([0-9.]+)`),
		sizeRe:    regexp.MustCompile(`size=\s*([0-9.]+)kB`),
		timeRe:    regexp.MustCompile(`time=(\d{2,}):(\d{2}):(\d{2}(?:\.\d+)?)`),
		bitrateRe: regexp.MustCompile(`bitrate=\s*([0-9.]+)kbits/s`),
		speedRe:   regexp.MustCompile(`speed=\s*([0-9.]+)x`),
	}
}

// ParseLine parses one stderr line. ok is false when the line carries no
// progress information.
func (p *progressParser) ParseLine(line string) (port.Progress, bool) {
	var progress port.Progress
	if line == "" || !strings.Contains(line, "frame=") {
		return progress, false
	}

	ok := false
	if m := p.frameRe.FindStringSubmatch(line); len(m) > 1 {
		if frame, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			progress.Frame = frame
			ok = true
		}
	}
	if m := p.fpsRe.FindStringSubmatch(line); len(m) > 1 {
		if fps, err := strconv.ParseFloat(m[1], 64); err == nil {
			progress.FPS = fps
			ok = true
		}
	}
	if m := p.sizeRe.FindStringSubmatch(line); len(m) > 1 {
		if size, err := strconv.ParseFloat(m[1], 64); err == nil {
			progress.SizeKB = size
			ok = true
		}
	}
	if m := p.timeRe.FindStringSubmatch(line); len(m) > 1 {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, _ := strconv.ParseFloat(m[3], 64)
		progress.TimeSeconds = float64(hours)*3600 + float64(minutes)*60 + seconds
		ok = true
	}
	if m := p.bitrateRe.FindStringSubmatch(line); len(m) > 1 {
		if bitrate, err := strconv.ParseFloat(m[1], 64); err == nil {
			progress.BitrateKbps = bitrate
			ok = true
		}
	}
	if m := p.speedRe.FindStringSubmatch(line); len(m) > 1 {
		if speed, err := strconv.ParseFloat(m[1], 64); err == nil {
			progress.Speed = speed
			ok = true
		}
	}
	return progress, ok
}
