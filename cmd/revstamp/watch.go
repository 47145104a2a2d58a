package main

import (
	"fmt"
	"path/filepath"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sergeknystautas/revstamp/internal/engine"
	"github.com/sergeknystautas/revstamp/internal/output"
	"github.com/sergeknystautas/revstamp/internal/record"
	"github.com/sergeknystautas/revstamp/internal/watch"
)

func newWatchCommand(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the output whenever the revision changes",
		Long: `watch writes the output once, then watches the version control metadata
(commits, checkouts, tags) and writes it again after each change until
interrupted. Pair it with -o so unchanged output files keep their mtime.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd, debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before regenerating")
	return cmd
}

func (a *app) watch(cmd *cobra.Command, debounce time.Duration) error {
	ctx := cmd.Context()
	opts, err := a.engineOptions()
	if err != nil {
		return err
	}
	res, err := engine.Run(ctx, opts)
	if err != nil {
		return pkgerrors.Wrap(err, "extract revision")
	}
	if err := a.emit(cmd, res.Record); err != nil {
		return err
	}
	if res.Probe.Type == record.TypeNone {
		return fmt.Errorf("watch: no version control found in %s", displayDir(a.dir))
	}

	ignore := []string{absPath(res.CachePath)}
	if out := a.settings.GetOutput(); out != output.Stdout {
		ignore = append(ignore, absPath(out))
	}

	regen := make(chan struct{}, 1)
	w, err := watch.New(res.Probe, func() {
		select {
		case regen <- struct{}{}:
		default:
		}
	}, watch.Options{Debounce: debounce, Ignore: ignore, Logger: a.logger})
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return <-done
		case <-regen:
			res, err := engine.Run(ctx, opts)
			if err != nil {
				a.logger.Warn("regenerate failed", zap.Error(err))
				continue
			}
			if err := a.emit(cmd, res.Record); err != nil {
				return err
			}
		}
	}
}

// absPath resolves p the way the probe resolves the working copy root so
// that it compares equal to watcher event paths.
func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
