package main

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sergeknystautas/revstamp/internal/engine"
	"github.com/sergeknystautas/revstamp/internal/record"
)

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the revision record as a table",
		Long: `show runs the same extraction as revstamp itself and prints every VCS_*
symbol, marking values that were taken from the cache or could not be
determined. It never writes the cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.engineOptions()
			if err != nil {
				return err
			}
			opts.ReadOnly = true
			res, err := engine.Run(cmd.Context(), opts)
			if err != nil {
				return pkgerrors.Wrap(err, "extract revision")
			}
			printResult(newTermStyle(cmd.OutOrStdout()), res)
			return nil
		},
	}
}

func printResult(style *termStyle, res engine.Result) {
	switch {
	case res.Probe.Type != record.TypeNone:
		style.Header(fmt.Sprintf("%s working copy at %s", res.Probe.Type, res.Probe.Root))
	case res.FromCache:
		style.Header("No version control found, using " + res.CachePath)
	default:
		style.Header("No version control and no cache")
	}
	style.Blank()

	fallback := make(map[string]bool)
	for _, name := range res.Draft.Unavailable() {
		fallback[name] = true
	}
	width := 0
	for _, name := range record.SymbolNames() {
		width = max(width, len(name))
	}

	for _, s := range res.Record.Symbols() {
		value := s.Value.Value
		if !s.Value.Valid {
			value = style.Dim("(null)")
		}
		switch {
		case s.Name == record.SymType || s.Name == record.SymActionStamp:
		case res.Probe.Type == record.TypeNone && res.FromCache:
			value += " " + style.Yellow("cached")
		case fallback[s.Name] && res.FromCache:
			value += " " + style.Yellow("cached")
		case fallback[s.Name]:
			value += " " + style.Red("unavailable")
		}
		style.KeyValue(s.Name, value, width)
	}
	style.Blank()

	if res.Record.WCModified {
		style.Warn("working copy has uncommitted changes")
	}
	if n := len(res.Draft.Unavailable()); n > 0 && res.Probe.Type != record.TypeNone {
		style.Warn(fmt.Sprintf("%d field(s) could not be extracted; run with --log-level debug for details", n))
	}
}
