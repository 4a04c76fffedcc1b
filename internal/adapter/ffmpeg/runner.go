// Package ffmpeg shells out to the ffmpeg and ffprobe binaries. It is the
// only place the external tools are invoked; everything above it speaks in
// argument lists and structured results.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"videoq/internal/domain"
	"videoq/internal/port"
)

// stderrTailLines bounds the diagnostic output attached to a ProcessingError.
const stderrTailLines = 40

type Runner struct {
	binary  string
	timeout time.Duration
	log     *slog.Logger
}

// NewRunner builds an ffmpeg runner. timeout bounds a single invocation;
// zero means no bound beyond the caller's context.
func NewRunner(timeout time.Duration, log *slog.Logger) *Runner {
	return &Runner{binary: "ffmpeg", timeout: timeout, log: log}
}

// Installed reports whether the ffmpeg binary is on PATH.
func (r *Runner) Installed() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

var versionRe = regexp.MustCompile(`ffmpeg version (\S+)`)

// Version returns the installed ffmpeg version string.
func (r *Runner) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, r.binary, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("ffmpeg version check: %w", err)
	}
	if m := versionRe.FindSubmatch(out); len(m) > 1 {
		return string(m[1]), nil
	}
	first, _, _ := bytes.Cut(out, []byte("\n"))
	return strings.TrimSpace(string(first)), nil
}

// Run executes ffmpeg with the given arguments, streaming stderr through the
// progress parser. On a non-zero exit or timeout it returns a
// *domain.ProcessingError carrying the stderr tail.
func (r *Runner) Run(ctx context.Context, args []string, onProgress port.ProgressFunc) (*port.RunResult, error) {
	if _, err := exec.LookPath(r.binary); err != nil {
		return nil, &domain.ProcessingError{Msg: "ffmpeg is not installed or not found in PATH", ExitCode: -1}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.log.Debug("executing ffmpeg", slog.String("args", strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, r.binary, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, &domain.ProcessingError{Msg: fmt.Sprintf("start ffmpeg: %v", err), ExitCode: -1}
	}

	parser := newProgressParser()
	tail := make([]string, 0, stderrTailLines)

	scanner := bufio.NewScanner(stderrPipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanCRLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > stderrTailLines {
			tail = tail[1:]
		}
		if onProgress != nil {
			if progress, ok := parser.ParseLine(line); ok {
				onProgress(progress)
			}
		}
	}

	err = cmd.Wait()
	stderr := strings.Join(tail, "\n")

	if ctxErr := ctx.Err(); ctxErr != nil {
		msg := "ffmpeg command canceled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			msg = "ffmpeg command timed out"
		}
		return nil, &domain.ProcessingError{Msg: msg, ExitCode: -1, Stderr: stderr}
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		r.log.Error("ffmpeg command failed",
			slog.Int("exit_code", exitCode),
			slog.String("args", strings.Join(args, " ")))
		return nil, &domain.ProcessingError{
			Msg:      fmt.Sprintf("ffmpeg exited with code %d", exitCode),
			ExitCode: exitCode,
			Stderr:   stderr,
		}
	}

	return &port.RunResult{Stdout: stdout.String(), Stderr: stderr}, nil
}

// scanCRLines splits on both \n and \r; ffmpeg rewrites its stats line in
// place with bare carriage returns.
func scanCRLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ port.Runner = (*Runner)(nil)
