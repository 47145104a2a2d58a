// revstamp extracts revision metadata from the version control system of a
// working copy and writes it as a source file for build systems.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sergeknystautas/revstamp/internal/cache"
	"github.com/sergeknystautas/revstamp/internal/config"
	"github.com/sergeknystautas/revstamp/internal/engine"
	"github.com/sergeknystautas/revstamp/internal/logging"
	"github.com/sergeknystautas/revstamp/internal/output"
	"github.com/sergeknystautas/revstamp/internal/record"
	"github.com/sergeknystautas/revstamp/internal/render"
	"github.com/sergeknystautas/revstamp/internal/vcs"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitWrite  = 3
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	cancel()
	handleError(os.Stderr, err)
	os.Exit(exitCode(err))
}

// app carries what every command resolves before running.
type app struct {
	dir      string
	settings *config.Settings
	logger   *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "revstamp",
		Short: "Write version control revision metadata for your build",
		Long: `revstamp inspects the working copy (git, git-svn, hg, sapling, svn, bzr or
fossil), fills the VCS_* symbols and writes them in the requested format.
When no version control is present the last successful result, kept in
autorevision.cache, is used instead, so source tarballs build the same way.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&a.dir, "dir", "C", "", "Run as if started in this directory")
	f.StringP("type", "t", render.DefaultFormat, "Output format ("+strings.Join(render.Names(), ", ")+")")
	f.StringP("output", "o", output.Stdout, "Output file, - for stdout")
	f.String("cache", "", "Cache file (default <root>/"+cache.FileName+")")
	f.Bool("no-cache", false, "Neither read nor write the cache")
	f.BoolP("force-cache", "f", false, "Skip version control and use the cache")
	f.StringP("extra", "e", "", "Value for VCS_EXTRA")
	f.StringP("symbol", "s", "", "Print a single symbol's value instead of a file")
	f.BoolP("count-untracked", "U", false, "Count untracked files as modifications (svn)")
	f.Duration("timeout", config.DefaultTimeout, "Timeout for each VCS command")
	f.Int("jobs", config.DefaultJobs, "Parallel VCS queries")
	f.String("log-level", logging.DefaultLevel, "Log level (debug, info, warn, error)")
	f.Bool("diff", false, "Print a diff when the output file changes")

	cmd.AddCommand(
		newShowCommand(a),
		newWatchCommand(a),
		newInitCommand(a),
		newFormatsCommand(),
		newVersionCommand(),
	)
	cmd.Example = `  # Shell variables on stdout
  revstamp

  # Regenerate a C source file only when the revision changed
  revstamp -t c -o src/autorevision.c

  # Embed the short hash in a Go build
  go build -ldflags "-X main.commit=$(revstamp -s VCS_SHORT_HASH)"`
	return cmd
}

// flagKeys maps command line flags onto config keys.
var flagKeys = []struct{ flag, key string }{
	{"type", config.KeyFormat},
	{"output", config.KeyOutput},
	{"cache", config.KeyCache},
	{"no-cache", config.KeyNoCache},
	{"force-cache", config.KeyForceCache},
	{"extra", config.KeyExtra},
	{"symbol", config.KeySymbol},
	{"count-untracked", config.KeyCountUntracked},
	{"timeout", config.KeyTimeout},
	{"jobs", config.KeyJobs},
	{"log-level", config.KeyLogLevel},
	{"diff", config.KeyDiff},
}

// bindViper binds every flag to its config key. Viper then prefers a flag
// given on the command line, then REVSTAMP_* variables, then the config file.
func bindViper(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, fk := range flagKeys {
		f := fs.Lookup(fk.flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(fk.key, f); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command) error {
	dir := a.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}
	v, err := config.NewViper(dir)
	if err != nil {
		return err
	}
	if err := bindViper(v, cmd.Flags()); err != nil {
		return err
	}
	s, err := config.Load(v)
	if err != nil {
		return err
	}
	logger, err := logging.NewTo(cmd.ErrOrStderr(), s.GetLogLevel())
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	resolveRelative(s, a.dir)
	a.settings = s
	a.logger = logger
	if s.Path() != "" {
		logger.Debug("loaded config", zap.String("path", s.Path()))
	}
	return nil
}

// resolveRelative makes relative output and cache paths relative to --dir.
func resolveRelative(s *config.Settings, dir string) {
	if dir == "" {
		return
	}
	for _, p := range []*string{&s.Output, &s.Cache} {
		if *p != "" && *p != output.Stdout && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func (a *app) engineOptions() (engine.Options, error) {
	s := a.settings
	runner, err := vcs.NewExecRunner(s.GetTimeout(), s.GetCommands(), a.logger)
	if err != nil {
		return engine.Options{}, err
	}
	var generated []string
	if out := s.GetOutput(); out != output.Stdout {
		generated = append(generated, out)
	}
	return engine.Options{
		Dir:            a.dir,
		CachePath:      s.Cache,
		NoCache:        s.NoCache,
		ForceCache:     s.ForceCache,
		Extra:          s.Extra,
		CountUntracked: s.CountUntracked,
		Generated:      generated,
		Jobs:           s.GetJobs(),
		Runner:         runner,
		Logger:         a.logger,
	}, nil
}

// generate runs the pipeline once and writes the result.
func (a *app) generate(cmd *cobra.Command) error {
	opts, err := a.engineOptions()
	if err != nil {
		return err
	}
	res, err := engine.Run(cmd.Context(), opts)
	if err != nil {
		return pkgerrors.Wrap(err, "extract revision")
	}
	return a.emit(cmd, res.Record)
}

// emit renders rec and writes it to the configured destination.
func (a *app) emit(cmd *cobra.Command, rec record.Record) error {
	s := a.settings
	data, err := renderRecord(rec, s.GetFormat(), s.Symbol)
	if err != nil {
		return err
	}

	dest := s.GetOutput()
	opts := output.Options{Stdout: cmd.OutOrStdout()}
	if s.Diff && dest != output.Stdout {
		opts.Diff = cmd.ErrOrStderr()
	}
	changed, err := output.Write(dest, data, opts)
	if err != nil {
		return pkgerrors.Wrap(err, "write output")
	}
	if dest != output.Stdout {
		a.logger.Info("output", zap.String("path", dest), zap.Bool("changed", changed))
	}
	return nil
}

func renderRecord(rec record.Record, format, symbol string) ([]byte, error) {
	if symbol != "" {
		v, err := render.Value(rec, symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: symbol: %w", config.ErrInvalidConfig, err)
		}
		return []byte(v + "\n"), nil
	}
	r, err := render.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, pflag.ErrHelp):
		return exitOK
	case errors.Is(err, output.ErrWrite):
		return exitWrite
	default:
		return exitFailed
	}
}

func handleError(w io.Writer, err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	if errors.Is(err, config.ErrInvalidConfig) {
		message = fmt.Sprintf("%s\nHint: check the flags, REVSTAMP_* variables and %s.", err, config.FileName)
	}
	fmt.Fprintf(w, "Error: %s\n", message)
}
