// Package fsutil holds the filesystem preconditions shared by the executors:
// input validation, output directory handling, disk-space preflight and
// temp-file bookkeeping.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"videoq/internal/domain"
)

// ValidateInput checks that a path names an existing, readable, non-empty
// regular file.
func ValidateInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewValidationError("file does not exist: %s", path)
		}
		return domain.NewValidationError("cannot access file %s: %v", path, err)
	}
	if !info.Mode().IsRegular() {
		return domain.NewValidationError("path is not a file: %s", path)
	}
	if info.Size() == 0 {
		return domain.NewValidationError("file is empty: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.NewValidationError("file is not readable: %s", path)
	}
	_ = f.Close()
	return nil
}

// EnsureDir creates the directory if needed and rejects a path that exists
// but is not a directory.
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return domain.NewValidationError("path exists but is not a directory: %s", path)
		}
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// FileSize returns the size of a file in bytes, 0 when it cannot be stat'd.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// CheckDiskSpace verifies the filesystem holding dir has required bytes free
// plus a safety buffer.
func CheckDiskSpace(required int64, dir string, bufferBytes int64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", dir, err)
	}
	available := int64(stat.Bavail) * int64(stat.Bsize)
	needed := required + bufferBytes
	if available < needed {
		return domain.NewValidationError(
			"insufficient disk space in %s: need %s, have %s",
			dir, domain.FormatSize(needed), domain.FormatSize(available))
	}
	return nil
}

// TempFilename returns a unique path in the system temp directory. The file
// is created empty so concurrent callers cannot collide on the name.
func TempFilename(prefix, suffix string) (string, error) {
	f, err := os.CreateTemp("", prefix+"*"+suffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

// StagePath returns a hidden sibling of path used to write output before it
// is renamed into place. The extension is preserved so the tool can still
// infer the container format from the name.
func StagePath(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, ".part-"+base)
}

// CommitOutput renames a staged file onto its final path. The rename stays
// within one directory, so an interrupted run never leaves a truncated file
// at the destination.
func CommitOutput(staged, final string) error {
	if err := os.Rename(staged, final); err != nil {
		return fmt.Errorf("commit output %s: %w", final, err)
	}
	return nil
}

// CleanupTempFiles removes the given paths, ignoring ones already gone.
func CleanupTempFiles(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		_ = os.Remove(path)
	}
}

// SanitizeFilename strips path separators and control characters from a name
// so it is safe to join into an output directory.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "unnamed"
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r < 0x20 || r == 0x7f || r == '/' || r == '\\' {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return "unnamed"
	}
	return string(out)
}
