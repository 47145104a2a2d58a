// Package output writes rendered records to their destination, leaving the
// file untouched when nothing changed so build tools do not see a new mtime.
package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pmezard/go-difflib/difflib"
)

// ErrWrite marks a failure to produce the requested output. The CLI exits
// with status 3 on it.
var ErrWrite = errors.New("cannot write output")

// Stdout is the destination name that means standard output.
const Stdout = "-"

const defaultPerm fs.FileMode = 0o644

// Options tune a single write.
type Options struct {
	// Diff, when set, receives a unified diff of the old and new content
	// whenever the file changes.
	Diff io.Writer
	// Stdout receives the data when the destination is Stdout or empty.
	Stdout io.Writer
}

// Write stores data at path unless the file already holds exactly data.
// It reports whether anything was written.
func Write(path string, data []byte, opts Options) (bool, error) {
	if path == "" || path == Stdout {
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, err := w.Write(data); err != nil {
			return false, fmt.Errorf("%w to stdout: %w", ErrWrite, err)
		}
		return true, nil
	}

	perm := defaultPerm
	old, err := os.ReadFile(path)
	switch {
	case err == nil:
		if bytes.Equal(old, data) {
			return false, nil
		}
		if info, statErr := os.Stat(path); statErr == nil {
			perm = info.Mode().Perm()
		}
	case errors.Is(err, fs.ErrNotExist):
		old = nil
	default:
		return false, fmt.Errorf("%w %s: %w", ErrWrite, path, err)
	}

	if opts.Diff != nil {
		if err := WriteDiff(opts.Diff, path, old, data); err != nil {
			return false, fmt.Errorf("%w: diff: %w", ErrWrite, err)
		}
	}
	if err := AtomicWriteFile(path, data, perm); err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrWrite, path, err)
	}
	return true, nil
}

// WriteDiff prints a unified diff of before and after.
func WriteDiff(w io.Writer, path string, before, after []byte) error {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: path + " (before)",
		ToFile:   path + " (after)",
		Context:  3,
	}
	return difflib.WriteUnifiedDiff(w, ud)
}
