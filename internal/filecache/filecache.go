// SPDX-License-Identifier: MPL-2.0

// Package filecache implements the crash-safe, content-comparing writer that
// lets every pipeline stage detect "nothing changed" and skip expensive work.
//
// Writes go to a sibling `<path>.lock` file created exclusively and are then
// renamed over the destination, so an observer sees either the old or the new
// content, never a partial file.
package filecache

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// Unchanged means the tracked file already held the requested content.
	Unchanged FileDep = iota
	// Touched means the tracked file was (re)written.
	Touched
)

// LockSuffix is appended to the destination path to form the lock file name.
const LockSuffix = ".lock"

// ErrLocked is returned when another writer holds the lock file.
var ErrLocked = errors.New("lock file already exists")

type (
	// FileDep records whether a cache-aware write changed anything. Stages pass it
	// downstream so the next stage can skip its own work when its input is unchanged.
	FileDep int

	// LockError is returned when the lock file for Path cannot be created
	// exclusively. It wraps ErrLocked for errors.Is() compatibility.
	LockError struct {
		Path string
		Err  error
	}
)

// String returns the state name.
func (d FileDep) String() string {
	if d == Touched {
		return "touched"
	}
	return "unchanged"
}

// Changed reports whether d is Touched.
func (d FileDep) Changed() bool { return d == Touched }

// Or combines two tokens: the result is Touched if either is.
func (d FileDep) Or(other FileDep) FileDep {
	if d == Touched || other == Touched {
		return Touched
	}
	return Unchanged
}

// Error implements the error interface for LockError.
func (e *LockError) Error() string {
	return fmt.Sprintf("lock %s: %v (another writer may be running, or a previous run crashed)", e.Path, e.Err)
}

// Unwrap returns ErrLocked for errors.Is() compatibility.
func (e *LockError) Unwrap() error { return ErrLocked }

// CompareAndWrite makes the file at path hold content. When the existing bytes
// are identical it returns Unchanged without touching the filesystem;
// otherwise it writes through a lock file and an atomic rename and returns
// Touched. Missing parent directories are created.
func CompareAndWrite(path string, content []byte) (FileDep, error) {
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if bytes.Equal(existing, content) {
			slog.Debug("cache hit", "path", path)
			return Unchanged, nil
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Unchanged, fmt.Errorf("read %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Unchanged, fmt.Errorf("create directory for %s: %w", path, err)
	}

	lockPath := path + LockSuffix
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Unchanged, &LockError{Path: lockPath, Err: err}
		}
		return Unchanged, fmt.Errorf("create %s: %w", lockPath, err)
	}

	if err := writeAndSync(f, content); err != nil {
		_ = os.Remove(lockPath) // Best-effort cleanup; the write error is what matters.
		return Unchanged, fmt.Errorf("write %s: %w", lockPath, err)
	}
	if err := os.Rename(lockPath, path); err != nil {
		_ = os.Remove(lockPath) // Best-effort cleanup; the rename error is what matters.
		return Unchanged, fmt.Errorf("rename %s to %s: %w", lockPath, path, err)
	}

	slog.Debug("cache write", "path", path, "bytes", len(content))
	return Touched, nil
}

func writeAndSync(f *os.File, content []byte) error {
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ExistsAndWrite runs one cached stage. When d is Unchanged and path already
// exists, the stored bytes are returned and compute is skipped. Otherwise
// compute runs, its result is persisted with CompareAndWrite and d is updated,
// so a stage whose recomputed output is identical still lets later stages skip.
func (d *FileDep) ExistsAndWrite(path string, compute func() ([]byte, error)) ([]byte, error) {
	if *d == Unchanged {
		content, err := os.ReadFile(path)
		if err == nil {
			slog.Debug("stage skipped, input unchanged", "path", path)
			return content, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	content, err := compute()
	if err != nil {
		return nil, err
	}
	dep, err := CompareAndWrite(path, content)
	if err != nil {
		return nil, err
	}
	*d = dep
	return content, nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
