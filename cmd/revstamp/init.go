package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sergeknystautas/revstamp/internal/config"
	"github.com/sergeknystautas/revstamp/internal/output"
	"github.com/sergeknystautas/revstamp/internal/render"
)

type initOptions struct {
	yes   bool
	force bool
}

func newInitCommand(a *app) *cobra.Command {
	var opts initOptions
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a " + config.FileName + " for this directory",
		Long: `init records the output format, destination and VCS settings in
` + config.FileName + ` so that a bare "revstamp" produces the right file.
Flags given to init become the proposed values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Accept the proposed values without prompting")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing "+config.FileName)
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, opts initOptions) error {
	dir := a.dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil && !opts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	s := proposedSettings(a.settings)
	if !opts.yes {
		if !isTerminal(os.Stdin) {
			return errors.New("init: stdin is not a terminal; use --yes to accept the proposed values")
		}
		if err := runInitForm(s); err != nil {
			return err
		}
	}

	if err := s.Save(path); err != nil {
		return err
	}
	style := newTermStyle(cmd.OutOrStdout())
	style.Success("Wrote " + path)
	style.Printf("Try it:\n")
	style.Code("revstamp show")
	return nil
}

// proposedSettings keeps the settings worth persisting from the resolved
// ones; per-invocation switches such as --symbol are dropped.
func proposedSettings(cur *config.Settings) *config.Settings {
	s := config.Default()
	if cur == nil {
		return s
	}
	s.Format = cur.GetFormat()
	if out := cur.GetOutput(); out != output.Stdout {
		s.Output = out
	}
	s.Cache = cur.Cache
	s.CountUntracked = cur.CountUntracked
	s.Timeout = cur.GetTimeout()
	s.Jobs = cur.GetJobs()
	s.LogLevel = cur.GetLogLevel()
	s.Commands = cur.GetCommands()
	return s
}

func runInitForm(s *config.Settings) error {
	formats := make([]huh.Option[string], 0)
	for _, r := range render.All() {
		formats = append(formats, huh.NewOption(r.Name()+"  "+r.Description(), r.Name()))
	}
	timeout := s.GetTimeout().String()
	jobs := strconv.Itoa(s.GetJobs())

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Output format").
				Options(formats...).
				Value(&s.Format),
			huh.NewInput().
				Title("Output file").
				Description("Leave empty to print to stdout").
				Placeholder("autorevision.h").
				Value(&s.Output),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Count untracked files as modifications?").
				Description("Only affects Subversion working copies").
				Value(&s.CountUntracked),
			huh.NewInput().
				Title("Timeout per VCS command").
				Value(&timeout).
				Validate(func(v string) error {
					d, err := time.ParseDuration(v)
					if err != nil || d <= 0 {
						return fmt.Errorf("must be a positive duration such as 10s")
					}
					return nil
				}),
			huh.NewInput().
				Title("Parallel VCS queries").
				Value(&jobs).
				Validate(func(v string) error {
					n, err := strconv.Atoi(v)
					if err != nil || n <= 0 {
						return fmt.Errorf("must be a positive number")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	// validation already ensured these parse
	s.Timeout, _ = time.ParseDuration(timeout)
	s.Jobs, _ = strconv.Atoi(jobs)
	return nil
}
