// Package watch triggers a callback whenever the version control metadata of
// a working copy changes: commits, checkouts, tags, index updates.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sergeknystautas/revstamp/internal/probe"
	"github.com/sergeknystautas/revstamp/internal/record"
)

// DefaultDebounce collapses the burst of events a single VCS command causes.
const DefaultDebounce = 300 * time.Millisecond

// Options configure a Watcher.
type Options struct {
	Debounce time.Duration
	// Ignore lists files whose changes never trigger, typically the output
	// file and the cache when they live inside a watched directory.
	Ignore []string
	Logger *zap.Logger
}

// Watcher watches the metadata directories of one working copy and calls
// onChange once per burst of changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	log      *zap.Logger
	debounce time.Duration
	ignore   []string
	onChange func()
	// recursive is false for fossil, whose checkout database sits in the
	// working tree root next to the user's files.
	recursive bool

	watched   map[string]bool
	watchedMu sync.Mutex

	timer   *time.Timer
	timerMu sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a watcher for target. It fails when target has no VCS or none
// of its metadata directories can be watched.
func New(target probe.Result, onChange func(), opts Options) (*Watcher, error) {
	if target.Type == record.TypeNone || target.Root == "" {
		return nil, fmt.Errorf("watch: no working copy to watch")
	}
	dirs, err := MetadataDirs(target)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:   fw,
		log:       logger.Named("watch"),
		debounce:  debounce,
		ignore:    opts.Ignore,
		onChange:  onChange,
		recursive: target.Type != record.TypeFossil,
		watched:   make(map[string]bool),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, d := range dirs {
		if w.recursive {
			w.watchRecursive(d)
		} else {
			w.addWatch(d)
		}
	}
	if len(w.watched) == 0 {
		fw.Close()
		return nil, fmt.Errorf("watch: nothing to watch under %s", target.Root)
	}
	w.log.Info("watching", zap.String("vcs", string(target.Type)), zap.Strings("dirs", dirs))
	return w, nil
}

// Start launches the event loop goroutine.
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop closes the watcher and cancels a pending callback. Safe to call
// multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()

		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()
	})
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	w.Start()
	<-ctx.Done()
	w.Stop()
	<-w.done
	return nil
}

func (w *Watcher) eventLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}
	// new subdirectories appear under refs/ as branches are created
	if w.recursive && event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watchRecursive(event.Name)
		}
	}
	w.log.Debug("metadata changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
	w.resetDebounce()
}

// ignored matches an ignored file and the temporary files it is written
// through.
func (w *Watcher) ignored(path string) bool {
	for _, p := range w.ignore {
		if path == p {
			return true
		}
		if filepath.Dir(path) == filepath.Dir(p) && strings.HasPrefix(filepath.Base(path), "."+filepath.Base(p)+".") {
			return true
		}
	}
	return false
}

func (w *Watcher) resetDebounce() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	select {
	case <-w.stopCh:
		return
	default:
	}
	if w.onChange != nil {
		w.onChange()
	}
}

func (w *Watcher) addWatch(path string) {
	w.watchedMu.Lock()
	if w.watched[path] {
		w.watchedMu.Unlock()
		return
	}
	w.watched[path] = true
	w.watchedMu.Unlock()

	if err := w.watcher.Add(path); err != nil {
		w.log.Warn("cannot watch", zap.String("path", path), zap.Error(err))
		w.watchedMu.Lock()
		delete(w.watched, path)
		w.watchedMu.Unlock()
	}
}

// watchRecursive watches a directory and all its subdirectories. Object
// stores are skipped: they only grow when something else worth seeing
// changes too.
func (w *Watcher) watchRecursive(dir string) {
	if _, err := os.Stat(dir); err != nil {
		return
	}
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		switch info.Name() {
		case "objects", "pristine", "store", "repository":
			if path != dir {
				return filepath.SkipDir
			}
		}
		w.addWatch(path)
		return nil
	})
}

// MetadataDirs lists the directories whose changes mean the record may have
// changed.
func MetadataDirs(target probe.Result) ([]string, error) {
	root := target.Root
	switch target.Type {
	case record.TypeGit, record.TypeGitSVN:
		gitDir, err := resolveGitDir(root)
		if err != nil {
			return nil, err
		}
		dirs := []string{gitDir}
		if base := resolveSharedBaseRefs(gitDir); base != "" {
			dirs = append(dirs, base)
		}
		return dirs, nil
	case record.TypeHg:
		return []string{filepath.Join(root, ".hg")}, nil
	case record.TypeSapling:
		return []string{filepath.Join(root, ".sl")}, nil
	case record.TypeSVN:
		return []string{filepath.Join(root, ".svn")}, nil
	case record.TypeBzr:
		return []string{filepath.Join(root, ".bzr")}, nil
	case record.TypeFossil:
		// the checkout database is a file in the root
		return []string{root}, nil
	default:
		return nil, fmt.Errorf("watch: unsupported VCS %q", target.Type)
	}
}

// resolveGitDir returns the git directory of a working copy, following the
// "gitdir:" file used by worktrees and submodules.
func resolveGitDir(root string) (string, error) {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Lstat(dotGit)
	if err != nil {
		return "", fmt.Errorf("no .git found: %w", err)
	}
	if info.IsDir() {
		return dotGit, nil
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", fmt.Errorf("failed to read .git file: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "gitdir: ") {
		return "", fmt.Errorf("unexpected .git file content: %s", content)
	}
	gitDir := strings.TrimPrefix(content, "gitdir: ")
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(root, gitDir)
	}
	gitDir = filepath.Clean(gitDir)
	if _, err := os.Stat(gitDir); err != nil {
		return "", fmt.Errorf("resolved gitdir does not exist: %s: %w", gitDir, err)
	}
	return gitDir, nil
}

// resolveSharedBaseRefs returns <base>/refs for a worktree gitdir of the
// form <base>/worktrees/<name>, or "".
func resolveSharedBaseRefs(gitDir string) string {
	dir := filepath.Dir(gitDir)
	if filepath.Base(dir) != "worktrees" {
		return ""
	}
	refsDir := filepath.Join(filepath.Dir(dir), "refs")
	if _, err := os.Stat(refsDir); err != nil {
		return ""
	}
	return refsDir
}
