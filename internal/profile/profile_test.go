package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"archive_hevc", "audio_only", "clip_1080p", "clip_720p", "web_vp9"}, reg.Names())

	def := reg.Default()
	require.NotNil(t, def)
	assert.Equal(t, "clip_720p", def.Name)
}

func TestLoad_CustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_profile: tiny
profiles:
  tiny:
    video_codec: libx264
    crf: 30
    audio_codec: aac
    audio_bitrate: 96k
`), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tiny"}, reg.Names())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no profiles", "default_profile: x\nprofiles: {}\n"},
		{"no default", "profiles:\n  a:\n    video_codec: libx264\n    crf: 23\n    audio_codec: aac\n    audio_bitrate: 128k\n"},
		{"unknown default", "default_profile: b\nprofiles:\n  a:\n    video_codec: libx264\n    crf: 23\n    audio_codec: aac\n    audio_bitrate: 128k\n"},
		{"bad codec", "default_profile: a\nprofiles:\n  a:\n    video_codec: wmv\n    crf: 23\n    audio_codec: aac\n    audio_bitrate: 128k\n"},
		{"crf out of range", "default_profile: a\nprofiles:\n  a:\n    video_codec: libx264\n    crf: 99\n    audio_codec: aac\n    audio_bitrate: 128k\n"},
		{"no rate control", "default_profile: a\nprofiles:\n  a:\n    video_codec: libx264\n    audio_codec: aac\n    audio_bitrate: 128k\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profiles.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_Get(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	p, err := reg.Get("clip_1080p")
	require.NoError(t, err)
	assert.Equal(t, "clip_1080p", p.Name)

	_, err = reg.Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available:")
}

func TestProfile_EncodeArgs(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	t.Run("crf profile", func(t *testing.T) {
		p, err := reg.Get("clip_720p")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"-c:v", "libx264",
			"-crf", "23",
			"-preset", "fast",
			"-s", "1280x720",
			"-c:a", "aac",
			"-b:a", "128k",
		}, p.EncodeArgs())
	})

	t.Run("bitrate profile keeps source resolution", func(t *testing.T) {
		p, err := reg.Get("web_vp9")
		require.NoError(t, err)
		args := p.EncodeArgs()
		assert.Contains(t, args, "-b:v")
		assert.NotContains(t, args, "-s")
		assert.NotContains(t, args, "-crf")
	})

	t.Run("copy video skips audio bitrate only for copy audio", func(t *testing.T) {
		p, err := reg.Get("audio_only")
		require.NoError(t, err)
		assert.Equal(t, []string{"-c:v", "copy", "-c:a", "aac", "-b:a", "192k"}, p.EncodeArgs())
	})
}
