package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 29.97, ParseFrameRate("30000/1001"), 0.001)
	assert.Equal(t, 25.0, ParseFrameRate("25/1"))
	assert.Zero(t, ParseFrameRate("0/0"))
	assert.Zero(t, ParseFrameRate(""))
	assert.Zero(t, ParseFrameRate("garbage"))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 123.456, ParseDuration("123.456"))
	assert.Zero(t, ParseDuration("N/A"))
	assert.Zero(t, ParseDuration(""))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", FormatDuration(0))
	assert.Equal(t, "0:45", FormatDuration(45))
	assert.Equal(t, "2:05", FormatDuration(125))
	assert.Equal(t, "1:01:05", FormatDuration(3665))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "2.0 MB", FormatSize(2*1024*1024))
	assert.Equal(t, "3.0 GB", FormatSize(3*1024*1024*1024))
}

func TestMediaInfo_Streams(t *testing.T) {
	both := &MediaInfo{VideoCodec: "h264", AudioCodec: "aac"}
	assert.True(t, both.HasVideo())
	assert.True(t, both.HasAudio())

	audioOnly := &MediaInfo{AudioCodec: "mp3"}
	assert.False(t, audioOnly.HasVideo())
	assert.True(t, audioOnly.HasAudio())
}
