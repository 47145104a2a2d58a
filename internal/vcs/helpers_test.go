package vcs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// scriptedRunner answers commands from a table keyed by "name arg1 arg2 ...".
// Unknown commands fail the way a missing binary would.
type scriptedRunner struct {
	mu      sync.Mutex
	answers map[string]scripted
	calls   []string
}

type scripted struct {
	stdout string
	stderr string
	exit   int
}

func newScripted(answers map[string]scripted) *scriptedRunner {
	return &scriptedRunner{answers: answers}
}

func (r *scriptedRunner) Run(_ context.Context, _ string, name string, args ...string) (Output, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	r.calls = append(r.calls, key)
	r.mu.Unlock()

	a, ok := r.answers[key]
	if !ok {
		return Output{}, &CommandError{Name: name, Args: args, ExitCode: -1, Err: fmt.Errorf("no script for %q", key)}
	}
	out := Output{Stdout: a.stdout, Stderr: a.stderr}
	if a.exit != 0 {
		return out, &CommandError{Name: name, Args: args, ExitCode: a.exit, Stderr: a.stderr, Err: fmt.Errorf("exit status %d", a.exit)}
	}
	return out, nil
}

func ok(stdout string) scripted { return scripted{stdout: stdout} }

func fail(exit int, stderr string) scripted { return scripted{exit: exit, stderr: stderr} }

// requireGit skips tests that need the git binary.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// runGit executes a git command in the given directory.
// Fails the test on error.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_COMMITTER_DATE=2024-03-01T12:00:00+02:00",
		"GIT_AUTHOR_DATE=2024-03-01T12:00:00+02:00",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, output)
	}
	return strings.TrimSpace(string(output))
}

// gitTestWorkTree creates a working git tree with an initial commit.
func gitTestWorkTree(t *testing.T) string {
	t.Helper()
	requireGit(t)
	dir := t.TempDir()

	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@test.com")
	runGit(t, dir, "config", "user.name", "Test User")
	runGit(t, dir, "config", "commit.gpgsign", "false")
	runGit(t, dir, "config", "tag.gpgsign", "false")

	writeFile(t, dir, "README.md", "test repo")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "initial")
	return dir
}

// gitCommit adds one commit touching name.
func gitCommit(t *testing.T, dir, name string) {
	t.Helper()
	writeFile(t, dir, name, name)
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", name)
}

// writeFile creates a file with content for testing.
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func execRunner(t *testing.T) *ExecRunner {
	t.Helper()
	r, err := NewExecRunner(0, nil, nil)
	if err != nil {
		t.Fatalf("NewExecRunner: %v", err)
	}
	return r
}
