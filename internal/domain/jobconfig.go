package domain

import (
	"encoding/json"
	"fmt"
)

// JobConfig is the typed payload behind a job's config column. The concrete
// type is selected by the job_type tag; DecodeJobConfig is the only place a
// record with an unrecognized tag can surface.
type JobConfig interface {
	JobType() JobType
	Validate() error
}

// TimeRange is one [start, end) cut range in seconds. It marshals as a
// two-element JSON array to stay compatible with the stored format.
type TimeRange struct {
	Start float64
	End   float64
}

func (r TimeRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Start, r.End})
}

func (r *TimeRange) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("time range must be a [start, end] pair: %w", err)
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// CutConfig splits one input either into fixed-duration segments or into
// caller-specified timestamp ranges.
type CutConfig struct {
	OutputDir       string      `json:"output_dir"`
	SegmentDuration int         `json:"segment_duration,omitempty"`
	Timestamps      []TimeRange `json:"timestamps,omitempty"`
	CopyCodec       bool        `json:"copy_codec"`
	Prefix          string      `json:"prefix"`
	StartNumber     int         `json:"start_number"`
	Profile         string      `json:"profile,omitempty"`
}

func (c CutConfig) JobType() JobType { return JobTypeCut }

func (c CutConfig) Validate() error {
	if c.OutputDir == "" {
		return NewConfigError("output_dir is required")
	}
	if c.SegmentDuration <= 0 && len(c.Timestamps) == 0 {
		return NewConfigError("either segment_duration or timestamps is required")
	}
	if c.SegmentDuration > 0 && len(c.Timestamps) > 0 {
		return NewConfigError("segment_duration and timestamps are mutually exclusive")
	}
	for i, r := range c.Timestamps {
		if r.Start < 0 || r.End < 0 {
			return NewConfigError("timestamp %d: negative values not allowed", i)
		}
		if r.End <= r.Start {
			return NewConfigError("timestamp %d: end must be greater than start", i)
		}
	}
	return nil
}

func (c *CutConfig) UnmarshalJSON(data []byte) error {
	type alias CutConfig
	aux := struct {
		*alias
		CopyCodec *bool `json:"copy_codec"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.CopyCodec = aux.CopyCodec == nil || *aux.CopyCodec
	if c.Prefix == "" {
		c.Prefix = "part"
	}
	if c.StartNumber == 0 {
		c.StartNumber = 1
	}
	return nil
}

// ConcatConfig merges the job's input files, in order, into one output.
type ConcatConfig struct {
	OutputPath            string `json:"output_path"`
	CopyCodec             bool   `json:"copy_codec"`
	ValidateCompatibility bool   `json:"validate_compatibility"`
	Profile               string `json:"profile,omitempty"`
}

func (c ConcatConfig) JobType() JobType { return JobTypeConcat }

func (c ConcatConfig) Validate() error {
	if c.OutputPath == "" {
		return NewConfigError("output_path is required")
	}
	return nil
}

func (c *ConcatConfig) UnmarshalJSON(data []byte) error {
	type alias ConcatConfig
	aux := struct {
		*alias
		CopyCodec             *bool `json:"copy_codec"`
		ValidateCompatibility *bool `json:"validate_compatibility"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.CopyCodec = aux.CopyCodec == nil || *aux.CopyCodec
	c.ValidateCompatibility = aux.ValidateCompatibility == nil || *aux.ValidateCompatibility
	return nil
}

// AudioCodecs are the codecs the extract-audio executor accepts. "copy"
// passes the source stream through untouched.
var AudioCodecs = []string{"copy", "aac", "mp3", "opus", "flac"}

// ExtractAudioConfig strips the audio track out of the single input file.
type ExtractAudioConfig struct {
	OutputPath string `json:"output_path"`
	Codec      string `json:"codec"`
	Bitrate    string `json:"bitrate,omitempty"`
}

func (c ExtractAudioConfig) JobType() JobType { return JobTypeExtractAudio }

func (c ExtractAudioConfig) Validate() error {
	if c.OutputPath == "" {
		return NewConfigError("output_path is required")
	}
	for _, codec := range AudioCodecs {
		if c.Codec == codec {
			return nil
		}
	}
	return NewConfigError("invalid codec %q", c.Codec)
}

func (c *ExtractAudioConfig) UnmarshalJSON(data []byte) error {
	type alias ExtractAudioConfig
	if err := json.Unmarshal(data, (*alias)(c)); err != nil {
		return err
	}
	if c.Codec == "" {
		c.Codec = "copy"
	}
	return nil
}

// ReplaceAudioConfig swaps the audio track of input 0 with the audio of
// input 1.
type ReplaceAudioConfig struct {
	OutputPath string `json:"output_path"`
	CopyCodec  bool   `json:"copy_codec"`
	Profile    string `json:"profile,omitempty"`
}

func (c ReplaceAudioConfig) JobType() JobType { return JobTypeReplaceAudio }

func (c ReplaceAudioConfig) Validate() error {
	if c.OutputPath == "" {
		return NewConfigError("output_path is required")
	}
	return nil
}

func (c *ReplaceAudioConfig) UnmarshalJSON(data []byte) error {
	type alias ReplaceAudioConfig
	aux := struct {
		*alias
		CopyCodec *bool `json:"copy_codec"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.CopyCodec = aux.CopyCodec == nil || *aux.CopyCodec
	return nil
}

// DecodeJobConfig parses the stored config payload for the given job type. A
// record carrying a tag this build does not know (forward compatibility with
// a newer schema) fails with a ConfigError rather than a panic.
func DecodeJobConfig(t JobType, raw json.RawMessage) (JobConfig, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var cfg JobConfig
	switch t {
	case JobTypeCut:
		cfg = &CutConfig{}
	case JobTypeConcat:
		cfg = &ConcatConfig{}
	case JobTypeExtractAudio:
		cfg = &ExtractAudioConfig{}
	case JobTypeReplaceAudio:
		cfg = &ReplaceAudioConfig{}
	default:
		return nil, NewConfigError("unknown job type: %s", t)
	}

	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, NewConfigError("decode %s config: %v", t, err)
	}
	return cfg, nil
}

// EncodeJobConfig serializes a typed config for storage.
func EncodeJobConfig(cfg JobConfig) (json.RawMessage, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode %s config: %w", cfg.JobType(), err)
	}
	return data, nil
}
