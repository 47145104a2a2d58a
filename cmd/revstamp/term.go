package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// termStyle provides terminal styling helpers with automatic color detection
type termStyle struct {
	out       io.Writer
	useColors bool

	bold, dim, cyan, green, yellow, red *color.Color
}

func newTermStyle(out io.Writer) *termStyle {
	useColors := isTerminal(out) && os.Getenv("NO_COLOR") == ""
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if useColors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return &termStyle{
		out:       out,
		useColors: useColors,
		bold:      mk(color.Bold),
		dim:       mk(color.Faint),
		cyan:      mk(color.FgCyan),
		green:     mk(color.FgGreen),
		yellow:    mk(color.FgYellow),
		red:       mk(color.FgRed),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Header prints a section header with divider bars
func (t *termStyle) Header(title string) {
	bar := strings.Repeat("━", 72)
	fmt.Fprintln(t.out, t.cyan.Sprint(bar))
	fmt.Fprintln(t.out, t.bold.Sprint(t.cyan.Sprint("  "+title)))
	fmt.Fprintln(t.out, t.cyan.Sprint(bar))
}

// Success prints a success message with green checkmark
func (t *termStyle) Success(msg string) {
	fmt.Fprintln(t.out, t.green.Sprint("✓ "+msg))
}

// Warn prints a warning message with yellow warning symbol
func (t *termStyle) Warn(msg string) {
	fmt.Fprintln(t.out, t.yellow.Sprint("⚠ "+msg))
}

func (t *termStyle) Dim(text string) string    { return t.dim.Sprint(text) }
func (t *termStyle) Bold(text string) string   { return t.bold.Sprint(text) }
func (t *termStyle) Cyan(text string) string   { return t.cyan.Sprint(text) }
func (t *termStyle) Yellow(text string) string { return t.yellow.Sprint(text) }
func (t *termStyle) Red(text string) string    { return t.red.Sprint(text) }

// KeyValue prints a key-value pair with the key padded to width.
func (t *termStyle) KeyValue(key, value string, width int) {
	fmt.Fprintf(t.out, "  %s  %s\n", t.Bold(fmt.Sprintf("%-*s", width, key)), value)
}

// Code prints a command (indented and cyan)
func (t *termStyle) Code(lines ...string) {
	for _, line := range lines {
		fmt.Fprintf(t.out, "     %s\n", t.Cyan(line))
	}
}

func (t *termStyle) Printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

func (t *termStyle) Blank() {
	fmt.Fprintln(t.out)
}
