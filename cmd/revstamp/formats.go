package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergeknystautas/revstamp/internal/record"
	"github.com/sergeknystautas/revstamp/internal/render"
	"github.com/sergeknystautas/revstamp/internal/version"
)

func newFormatsCommand() *cobra.Command {
	var symbols bool
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if symbols {
				for _, name := range record.SymbolNames() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			for _, r := range render.All() {
				fmt.Fprintf(out, "%-5s %s\n", r.Name(), r.Description())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&symbols, "symbols", false, "List symbol names instead")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the revstamp version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
}
