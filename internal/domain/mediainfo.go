package domain

import (
	"fmt"
	"strconv"
)

// MediaInfo is the fixed record returned by probing a media file. It is a
// snapshot; nothing in the system mutates it.
type MediaInfo struct {
	Duration   float64
	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
	Format     string
	FPS        float64
	BitRate    int64
}

func (m *MediaInfo) HasVideo() bool { return m.VideoCodec != "" }
func (m *MediaInfo) HasAudio() bool { return m.AudioCodec != "" }

// ParseFrameRate converts an ffprobe rational like "30000/1001" to a float.
func ParseFrameRate(fraction string) float64 {
	if fraction == "" || fraction == "0/0" {
		return 0
	}
	var num, den int
	if _, err := fmt.Sscanf(fraction, "%d/%d", &num, &den); err == nil && den > 0 {
		return float64(num) / float64(den)
	}
	return 0
}

// ParseDuration converts an ffprobe duration string to seconds.
func ParseDuration(durationStr string) float64 {
	if durationStr == "" || durationStr == "N/A" {
		return 0
	}
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0
	}
	return duration
}

// FormatDuration renders seconds as M:SS or H:MM:SS for listings.
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0:00"
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

const (
	oneKilobyte = 1024
	oneMegabyte = oneKilobyte * 1024
	oneGigabyte = oneMegabyte * 1024
)

// FormatSize renders a byte count in human units.
func FormatSize(bytes int64) string {
	if bytes < oneKilobyte {
		return fmt.Sprintf("%d B", bytes)
	}
	if bytes < oneMegabyte {
		return fmt.Sprintf("%.1f KB", float64(bytes)/oneKilobyte)
	}
	if bytes < oneGigabyte {
		return fmt.Sprintf("%.1f MB", float64(bytes)/oneMegabyte)
	}
	return fmt.Sprintf("%.1f GB", float64(bytes)/oneGigabyte)
}
