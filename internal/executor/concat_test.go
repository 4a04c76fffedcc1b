package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoq/internal/domain"
	"videoq/internal/fsutil"
)

func TestConcatExecutor_CopyMode(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.mp4")
	b := writeInput(t, dir, "b.mp4")
	output := filepath.Join(dir, "joined.mp4")

	var listContent string
	runner := &fakeRunner{
		onRun: func(args []string) error {
			// The list file only exists during the run; capture it here.
			for i := 0; i < len(args)-1; i++ {
				if args[i] == "-i" {
					data, err := os.ReadFile(args[i+1])
					if err != nil {
						return err
					}
					listContent = string(data)
				}
			}
			return os.WriteFile(args[len(args)-1], []byte("joined"), 0o644)
		},
	}
	info := &domain.MediaInfo{Duration: 30, VideoCodec: "h264", AudioCodec: "aac", Width: 1280, Height: 720}
	prober := &fakeProber{infos: map[string]*domain.MediaInfo{a: info, b: info}}
	exec := &ConcatExecutor{deps: testDeps(t, runner, prober)}

	job := mustJob(t, domain.JobTypeConcat, []string{a, b}, &domain.ConcatConfig{
		OutputPath:            output,
		CopyCodec:             true,
		ValidateCompatibility: true,
	})

	outputs, err := exec.Execute(context.Background(), job, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{output}, outputs)
	assert.FileExists(t, output)

	require.Len(t, runner.calls, 1)
	args := runner.calls[0]
	assert.True(t, hasArgPair(args, "-f", "concat"))
	assert.True(t, hasArgPair(args, "-safe", "0"))
	assert.True(t, hasArgPair(args, "-c", "copy"))

	lines := strings.Split(strings.TrimSpace(listContent), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "file '"+a+"'", lines[0])
	assert.Equal(t, "file '"+b+"'", lines[1])
}

func TestConcatExecutor_IncompatibleInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.mp4")
	b := writeInput(t, dir, "b.mp4")

	runner := &fakeRunner{}
	prober := &fakeProber{infos: map[string]*domain.MediaInfo{
		a: {Duration: 30, VideoCodec: "h264", AudioCodec: "aac", Width: 1280, Height: 720},
		b: {Duration: 30, VideoCodec: "hevc", AudioCodec: "aac", Width: 1920, Height: 1080},
	}}
	exec := &ConcatExecutor{deps: testDeps(t, runner, prober)}

	job := mustJob(t, domain.JobTypeConcat, []string{a, b}, &domain.ConcatConfig{
		OutputPath:            filepath.Join(dir, "joined.mp4"),
		CopyCodec:             true,
		ValidateCompatibility: true,
	})

	_, err := exec.Execute(context.Background(), job, nil)
	require.Error(t, err)

	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "incompatible")
	assert.Empty(t, runner.calls, "incompatibility fails before the tool runs")
}

func TestConcatExecutor_IncompatibleInputsReEncode(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.mp4")
	b := writeInput(t, dir, "b.mp4")
	output := filepath.Join(dir, "joined.mp4")

	runner := &fakeRunner{
		onRun: func(args []string) error {
			return os.WriteFile(args[len(args)-1], []byte("joined"), 0o644)
		},
	}
	// Mismatched inputs are fine when re-encoding.
	prober := &fakeProber{infos: map[string]*domain.MediaInfo{
		a: {Duration: 30, VideoCodec: "h264", AudioCodec: "aac", Width: 1280, Height: 720},
		b: {Duration: 30, VideoCodec: "hevc", AudioCodec: "opus", Width: 1920, Height: 1080},
	}}
	exec := &ConcatExecutor{deps: testDeps(t, runner, prober)}

	job := mustJob(t, domain.JobTypeConcat, []string{a, b}, &domain.ConcatConfig{
		OutputPath: output,
		CopyCodec:  false,
	})

	outputs, err := exec.Execute(context.Background(), job, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{output}, outputs)

	args := runner.calls[0]
	assert.True(t, hasArgPair(args, "-c:v", "libx264"), "defaults apply when no profile is named")
}

func TestConcatExecutor_FailedRunLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.mp4")
	b := writeInput(t, dir, "b.mp4")
	output := filepath.Join(dir, "joined.mp4")

	// The tool writes a partial file, then dies. Nothing may appear at the
	// final path, and the partial staging file is cleaned up.
	runner := &fakeRunner{
		onRun: func(args []string) error {
			if err := os.WriteFile(args[len(args)-1], []byte("trunc"), 0o644); err != nil {
				return err
			}
			return &domain.ProcessingError{Msg: "killed", ExitCode: -1}
		},
	}
	info := &domain.MediaInfo{Duration: 30, VideoCodec: "h264", AudioCodec: "aac", Width: 1280, Height: 720}
	prober := &fakeProber{infos: map[string]*domain.MediaInfo{a: info, b: info}}
	exec := &ConcatExecutor{deps: testDeps(t, runner, prober)}

	job := mustJob(t, domain.JobTypeConcat, []string{a, b}, &domain.ConcatConfig{
		OutputPath:            output,
		CopyCodec:             true,
		ValidateCompatibility: true,
	})

	_, err := exec.Execute(context.Background(), job, nil)
	require.Error(t, err)

	assert.NoFileExists(t, output)
	assert.NoFileExists(t, fsutil.StagePath(output))
}

func TestConcatExecutor_TooFewInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.mp4")

	exec := &ConcatExecutor{deps: testDeps(t, &fakeRunner{}, &fakeProber{})}

	job := mustJob(t, domain.JobTypeConcat, []string{a}, &domain.ConcatConfig{
		OutputPath: filepath.Join(dir, "joined.mp4"),
		CopyCodec:  true,
	})

	_, err := exec.Execute(context.Background(), job, nil)
	require.Error(t, err)

	var valErr *domain.ValidationError
	assert.ErrorAs(t, err, &valErr)
}
