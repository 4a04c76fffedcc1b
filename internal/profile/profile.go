// Package profile manages named encoding presets used when an operation
// re-encodes instead of stream-copying.
package profile

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// Profile is one encoding preset.
type Profile struct {
	Name          string `yaml:"-"`
	Description   string `yaml:"description"`
	VideoCodec    string `yaml:"video_codec"`
	VideoBitrate  string `yaml:"video_bitrate,omitempty"`
	AudioCodec    string `yaml:"audio_codec"`
	AudioBitrate  string `yaml:"audio_bitrate"`
	Resolution    string `yaml:"resolution,omitempty"`
	Preset        string `yaml:"preset,omitempty"`
	CRF           *int   `yaml:"crf,omitempty"`
	FPS           string `yaml:"fps,omitempty"`
	HardwareAccel string `yaml:"hardware_accel,omitempty"`
}

var validVideoCodecs = []string{
	"libx264", "libx265", "hevc_videotoolbox", "h264_videotoolbox",
	"h264_nvenc", "hevc_nvenc", "h264_qsv", "hevc_qsv",
	"libvpx", "libvpx-vp9", "libaom-av1", "copy",
}

var validAudioCodecs = []string{"aac", "mp3", "opus", "flac", "libmp3lame", "copy"}

var validPresets = []string{
	"ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow",
}

func (p *Profile) Validate() error {
	if !contains(validVideoCodecs, p.VideoCodec) {
		return fmt.Errorf("profile %s: invalid video codec %q", p.Name, p.VideoCodec)
	}
	if !contains(validAudioCodecs, p.AudioCodec) {
		return fmt.Errorf("profile %s: invalid audio codec %q", p.Name, p.AudioCodec)
	}
	if p.Preset != "" && !contains(validPresets, p.Preset) {
		return fmt.Errorf("profile %s: invalid preset %q", p.Name, p.Preset)
	}
	if p.CRF != nil && (*p.CRF < 0 || *p.CRF > 51) {
		return fmt.Errorf("profile %s: crf must be between 0 and 51, got %d", p.Name, *p.CRF)
	}
	if p.VideoCodec != "copy" && p.VideoBitrate == "" && p.CRF == nil {
		return fmt.Errorf("profile %s: either video_bitrate or crf is required", p.Name)
	}
	if p.Resolution != "" && p.Resolution != "source" {
		if _, _, ok := parseResolution(p.Resolution); !ok {
			return fmt.Errorf("profile %s: invalid resolution %q, want WIDTHxHEIGHT or source", p.Name, p.Resolution)
		}
	}
	if p.FPS != "" && p.FPS != "source" {
		fps, err := strconv.Atoi(p.FPS)
		if err != nil || fps <= 0 {
			return fmt.Errorf("profile %s: invalid fps %q, want source or a positive integer", p.Name, p.FPS)
		}
	}
	return nil
}

// EncodeArgs returns the ffmpeg flag fragment for this preset. It carries no
// input or output; the executor owns those.
func (p *Profile) EncodeArgs() []string {
	args := []string{"-c:v", p.VideoCodec}
	if p.CRF != nil {
		args = append(args, "-crf", strconv.Itoa(*p.CRF))
	} else if p.VideoBitrate != "" {
		args = append(args, "-b:v", p.VideoBitrate)
	}
	if p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	if w, h, ok := parseResolution(p.Resolution); ok {
		args = append(args, "-s", fmt.Sprintf("%dx%d", w, h))
	}
	if p.FPS != "" && p.FPS != "source" {
		args = append(args, "-r", p.FPS)
	}
	args = append(args, "-c:a", p.AudioCodec)
	if p.AudioCodec != "copy" {
		args = append(args, "-b:a", p.AudioBitrate)
	}
	return args
}

func parseResolution(resolution string) (width, height int, ok bool) {
	parts := strings.Split(resolution, "x")
	if len(parts) != 2 {
		return 0, 0, false
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil || width <= 0 {
		return 0, 0, false
	}
	height, err = strconv.Atoi(parts[1])
	if err != nil || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Registry holds the loaded presets.
type Registry struct {
	profiles    map[string]*Profile
	defaultName string
}

type profilesFile struct {
	DefaultProfile string              `yaml:"default_profile"`
	Profiles       map[string]*Profile `yaml:"profiles"`
}

// Load reads presets from path, or the embedded defaults when path is empty.
func Load(path string) (*Registry, error) {
	data := defaultProfiles
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profiles file: %w", err)
		}
	}
	return parse(data)
}

func parse(data []byte) (*Registry, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("profiles config has no profiles")
	}
	for name, p := range file.Profiles {
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	if file.DefaultProfile == "" {
		return nil, fmt.Errorf("profiles config has no default_profile")
	}
	if _, ok := file.Profiles[file.DefaultProfile]; !ok {
		return nil, fmt.Errorf("default profile %q not found", file.DefaultProfile)
	}
	return &Registry{profiles: file.Profiles, defaultName: file.DefaultProfile}, nil
}

// Get looks up a preset by name.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q not found (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

// Default returns the configured default preset.
func (r *Registry) Default() *Profile {
	return r.profiles[r.defaultName]
}

// Names returns all preset names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
