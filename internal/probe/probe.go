// Package probe works out which version control system, if any, manages a
// directory by walking upward and looking for each system's metadata marker.
package probe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sergeknystautas/revstamp/internal/record"
)

// Result is the outcome of a probe. Root is empty when Type is none.
type Result struct {
	Type record.Type
	Root string
}

// None is the probe miss result.
var None = Result{Type: record.TypeNone}

// marker describes one metadata entry and the VCS it implies.
type marker struct {
	vcs  record.Type
	path string
	// dir is true when the marker must be a directory, false when it must be
	// a regular file, nil when either is accepted.
	dir *bool
}

var (
	isDir  = true
	isFile = false
)

// markers in priority order within a single directory. git-svn must be tried
// before plain git since it is a git repository with extra metadata.
var markers = []marker{
	{vcs: record.TypeGitSVN, path: filepath.Join(".git", "svn"), dir: &isDir},
	{vcs: record.TypeGit, path: ".git"},
	{vcs: record.TypeSapling, path: ".sl", dir: &isDir},
	{vcs: record.TypeHg, path: ".hg", dir: &isDir},
	{vcs: record.TypeSVN, path: ".svn", dir: &isDir},
	{vcs: record.TypeBzr, path: ".bzr", dir: &isDir},
	{vcs: record.TypeFossil, path: ".fslckout", dir: &isFile},
	{vcs: record.TypeFossil, path: "_FOSSIL_", dir: &isFile},
}

// errAmbiguous marks a marker symlink that points outside its own tree.
var errAmbiguous = errors.New("marker escapes working copy")

// Detect walks from start towards the filesystem root and returns the first
// VCS whose marker is found. A probe miss is not an error.
func Detect(start string) (Result, error) {
	start = strings.TrimSpace(start)
	if start == "" {
		start = "."
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return None, fmt.Errorf("failed to resolve %s: %w", start, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return None, fmt.Errorf("failed to resolve %s: %w", abs, err)
	}
	if info, err := os.Stat(resolved); err == nil && !info.IsDir() {
		resolved = filepath.Dir(resolved)
	}

	current := resolved
	for {
		vcs, err := detectIn(current)
		if errors.Is(err, errAmbiguous) {
			return None, nil
		}
		if err != nil {
			return None, err
		}
		if vcs != record.TypeNone {
			return Result{Type: vcs, Root: current}, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return None, nil
		}
		current = parent
	}
}

func detectIn(dir string) (record.Type, error) {
	for _, m := range markers {
		ok, err := hasMarker(dir, m)
		if err != nil {
			return record.TypeNone, err
		}
		if ok {
			return m.vcs, nil
		}
	}
	return record.TypeNone, nil
}

func hasMarker(dir string, m marker) (bool, error) {
	path := filepath.Join(dir, m.path)
	linfo, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	info := linfo
	if linfo.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(path)
		if err != nil {
			// dangling link
			return false, nil
		}
		if !within(dir, target) {
			return false, fmt.Errorf("%w: %s -> %s", errAmbiguous, path, target)
		}
		info, err = os.Stat(target)
		if err != nil {
			return false, nil
		}
	}

	if m.dir == nil {
		return true, nil
	}
	return info.IsDir() == *m.dir, nil
}

// within reports whether target lies inside root.
func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
