package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoq/internal/domain"
)

func TestCutExecutor_SegmentDuration(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "input.mp4")
	outDir := filepath.Join(dir, "out")

	// 100s split into 40s segments gives 3 outputs, the last one short. The
	// tool writes staging names derived from the pattern it was handed.
	runner := &fakeRunner{
		onRun: func(args []string) error {
			pattern := args[len(args)-1]
			for i := 1; i <= 3; i++ {
				if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte("segment"), 0o644); err != nil {
					return err
				}
			}
			return nil
		},
	}
	prober := &fakeProber{infos: map[string]*domain.MediaInfo{
		input: {Duration: 100, VideoCodec: "h264", AudioCodec: "aac"},
	}}
	exec := &CutExecutor{deps: testDeps(t, runner, prober)}

	job := mustJob(t, domain.JobTypeCut, []string{input}, &domain.CutConfig{
		OutputDir:       outDir,
		SegmentDuration: 40,
		CopyCodec:       true,
		Prefix:          "part",
		StartNumber:     1,
	})

	outputs, err := exec.Execute(context.Background(), job, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(outDir, "part_001.mp4"),
		filepath.Join(outDir, "part_002.mp4"),
		filepath.Join(outDir, "part_003.mp4"),
	}, outputs)
	for _, out := range outputs {
		assert.FileExists(t, out, "segments are renamed into place on success")
	}

	require.Len(t, runner.calls, 1)
	args := runner.calls[0]
	assert.True(t, hasArgPair(args, "-f", "segment"))
	assert.True(t, hasArgPair(args, "-segment_time", "40"))
	assert.True(t, hasArgPair(args, "-c", "copy"))
}

func TestCutExecutor_NoSegmentsProduced(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "input.mp4")

	runner := &fakeRunner{} // tool "succeeds" but writes nothing
	prober := &fakeProber{infos: map[string]*domain.MediaInfo{
		input: {Duration: 100, VideoCodec: "h264"},
	}}
	exec := &CutExecutor{deps: testDeps(t, runner, prober)}

	job := mustJob(t, domain.JobTypeCut, []string{input}, &domain.CutConfig{
		OutputDir:       filepath.Join(dir, "out"),
		SegmentDuration: 40,
		CopyCodec:       true,
		Prefix:          "part",
		StartNumber:     1,
	})

	_, err := exec.Execute(context.Background(), job, nil)
	require.Error(t, err)

	var procErr *domain.ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Contains(t, procErr.Msg, "no output segments")
}

func TestCutExecutor_Timestamps(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "input.mp4")
	outDir := filepath.Join(dir, "out")

	calls := 0
	runner := &fakeRunner{
		onRun: func(args []string) error {
			calls++
			return os.WriteFile(args[len(args)-1], []byte("clip"), 0o644)
		},
	}
	exec := &CutExecutor{deps: testDeps(t, runner, &fakeProber{})}

	job := mustJob(t, domain.JobTypeCut, []string{input}, &domain.CutConfig{
		OutputDir:   outDir,
		Timestamps:  []domain.TimeRange{{Start: 0, End: 30}, {Start: 45.5, End: 90}},
		CopyCodec:   true,
		Prefix:      "clip",
		StartNumber: 1,
	})

	outputs, err := exec.Execute(context.Background(), job, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "one tool invocation per range")
	assert.Equal(t, []string{
		filepath.Join(outDir, "clip_001.mp4"),
		filepath.Join(outDir, "clip_002.mp4"),
	}, outputs)

	assert.True(t, hasArgPair(runner.calls[0], "-ss", "0"))
	assert.True(t, hasArgPair(runner.calls[0], "-t", "30"))
	assert.True(t, hasArgPair(runner.calls[1], "-ss", "45.5"))
	assert.True(t, hasArgPair(runner.calls[1], "-t", "44.5"))
}

func TestCutExecutor_ReEncodeUsesProfile(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "input.mp4")
	outDir := filepath.Join(dir, "out")

	runner := &fakeRunner{
		onRun: func(args []string) error {
			return os.WriteFile(args[len(args)-1], []byte("clip"), 0o644)
		},
	}
	exec := &CutExecutor{deps: testDeps(t, runner, &fakeProber{})}

	job := mustJob(t, domain.JobTypeCut, []string{input}, &domain.CutConfig{
		OutputDir:   outDir,
		Timestamps:  []domain.TimeRange{{Start: 0, End: 10}},
		CopyCodec:   false,
		Prefix:      "clip",
		StartNumber: 1,
		Profile:     "clip_720p",
	})

	_, err := exec.Execute(context.Background(), job, nil)
	require.NoError(t, err)

	args := runner.calls[0]
	assert.True(t, hasArgPair(args, "-c:v", "libx264"))
	assert.False(t, hasArgPair(args, "-c", "copy"))
}

func TestCutExecutor_UnknownProfile(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "input.mp4")

	runner := &fakeRunner{}
	exec := &CutExecutor{deps: testDeps(t, runner, &fakeProber{})}

	job := mustJob(t, domain.JobTypeCut, []string{input}, &domain.CutConfig{
		OutputDir:   filepath.Join(dir, "out"),
		Timestamps:  []domain.TimeRange{{Start: 0, End: 10}},
		CopyCodec:   false,
		Prefix:      "clip",
		StartNumber: 1,
		Profile:     "does_not_exist",
	})

	_, err := exec.Execute(context.Background(), job, nil)
	require.Error(t, err)

	var cfgErr *domain.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, runner.calls, "a bad profile fails before the tool runs")
}

func TestCutExecutor_MissingInput(t *testing.T) {
	exec := &CutExecutor{deps: testDeps(t, &fakeRunner{}, &fakeProber{})}

	job := mustJob(t, domain.JobTypeCut, []string{"/does/not/exist.mp4"}, &domain.CutConfig{
		OutputDir:       t.TempDir(),
		SegmentDuration: 40,
		CopyCodec:       true,
		Prefix:          "part",
		StartNumber:     1,
	})

	_, err := exec.Execute(context.Background(), job, nil)
	require.Error(t, err)

	var valErr *domain.ValidationError
	assert.ErrorAs(t, err, &valErr)
}
