package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every VCS command when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// waitDelay bounds how long Run waits for the output pipes to close after the
// command was killed.
const waitDelay = 500 * time.Millisecond

// ErrTimeout is wrapped by CommandError when a command ran out of time.
var ErrTimeout = errors.New("command timed out")

// Output is what a command wrote.
type Output struct {
	Stdout string
	Stderr string
}

// Runner runs one VCS command in a directory. Implementations must not use a
// shell.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Output, error)
}

// CommandError describes a command that failed to start, exited non-zero,
// or timed out.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int // -1 when the process did not exit normally
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s failed: %v", e.Name, strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + firstLine(s)
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands as child processes with a per-command timeout and
// a fixed C locale so output parsing does not depend on the user's language.
type ExecRunner struct {
	Timeout time.Duration
	// Commands maps a VCS binary name to the argv prefix used instead of it.
	Commands map[string][]string
	Logger   *zap.Logger
}

// NewExecRunner returns an ExecRunner. overrides maps a binary name ("git",
// "hg", ...) to a replacement command line such as "git -c core.quotepath=off".
func NewExecRunner(timeout time.Duration, overrides map[string]string, logger *zap.Logger) (*ExecRunner, error) {
	cmds, err := ParseCommandOverrides(overrides)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{Timeout: timeout, Commands: cmds, Logger: logger.Named("runner")}, nil
}

// ParseCommandOverrides splits each override with shell word rules.
func ParseCommandOverrides(overrides map[string]string) (map[string][]string, error) {
	out := make(map[string][]string, len(overrides))
	for name, line := range overrides {
		if strings.TrimSpace(line) == "" {
			continue
		}
		argv, err := shellwords.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("invalid command override for %s: %w", name, err)
		}
		if len(argv) == 0 {
			continue
		}
		out[name] = argv
	}
	return out, nil
}

func (r *ExecRunner) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

// argv resolves the binary and leading arguments for name.
func (r *ExecRunner) argv(name string, args []string) (string, []string) {
	if prefix, ok := r.Commands[name]; ok && len(prefix) > 0 {
		full := append(append([]string{}, prefix[1:]...), args...)
		return prefix[0], full
	}
	return name, args
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Output, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	bin, full := r.argv(name, args)
	cmd := exec.CommandContext(ctx, bin, full...)
	cmd.Dir = dir
	killGroup(cmd)
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(),
		"LC_ALL=C",
		"LANG=C",
		"HGPLAIN=1",
		// keep git status from refreshing the index
		"GIT_OPTIONAL_LOCKS=0",
		"GIT_TERMINAL_PROMPT=0",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if r.Logger != nil {
		r.Logger.Debug("ran command",
			zap.String("cmd", bin),
			zap.Strings("args", full),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
	}
	if err == nil {
		return out, nil
	}

	cerr := &CommandError{Name: bin, Args: full, ExitCode: -1, Stderr: out.Stderr, Err: err}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		cerr.Err = fmt.Errorf("%w after %s", ErrTimeout, r.timeout())
		return out, cerr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	return out, cerr
}

// exitCode returns the exit status carried by err, or -1.
func exitCode(err error) int {
	var cerr *CommandError
	if errors.As(err, &cerr) {
		return cerr.ExitCode
	}
	return -1
}

// stderrOf returns the stderr carried by err, or "".
func stderrOf(err error) string {
	var cerr *CommandError
	if errors.As(err, &cerr) {
		return cerr.Stderr
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// lines splits command output into trimmed, non-empty lines.
func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
