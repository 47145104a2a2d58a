// Package render turns a revision record into source files for build
// systems. Every renderer walks the same ordered symbol list, so adding a
// format never touches the extraction code.
package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sergeknystautas/revstamp/internal/record"
)

// ErrUnknownFormat is returned by Get for a name no renderer has.
var ErrUnknownFormat = errors.New("unknown output format")

// generatedBy is the notice placed at the top of every generated file.
const generatedBy = "Generated by revstamp. Do not edit."

// Renderer writes a record in one file format.
type Renderer interface {
	// Name is the format name used on the command line.
	Name() string
	// Description is a one-line summary for help output.
	Description() string
	Render(w io.Writer, r record.Record) error
}

type renderer struct {
	name string
	desc string
	fn   func(b *strings.Builder, syms []record.Symbol) error
}

func (r renderer) Name() string        { return r.name }
func (r renderer) Description() string { return r.desc }

func (r renderer) Render(w io.Writer, rec record.Record) error {
	var b strings.Builder
	if err := r.fn(&b, rec.Symbols()); err != nil {
		return fmt.Errorf("render %s: %w", r.name, err)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("render %s: %w", r.name, err)
	}
	return nil
}

var registry = map[string]Renderer{}

func register(name, desc string, fn func(b *strings.Builder, syms []record.Symbol) error) {
	registry[name] = renderer{name: name, desc: desc, fn: fn}
}

func init() {
	register("sh", "POSIX shell variable assignments", renderSh)
	register("h", "C header with extern declarations", renderH)
	register("c", "C source with definitions", renderC)
	register("json", "JSON object", renderJSON)
	register("xml", "XML document", renderXML)
	register("yaml", "YAML mapping", renderYAML)
	register("ini", "INI section", renderINI)
	register("make", "Makefile variables", renderMake)
	register("go", "Go constants", renderGo)
	register("js", "JavaScript object, CommonJS export", renderJS)
	register("py", "Python module variables", renderPy)
}

// DefaultFormat is used when no format is configured.
const DefaultFormat = "sh"

// Get returns the renderer for name.
func Get(name string) (Renderer, error) {
	r, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownFormat, name, strings.Join(Names(), ", "))
	}
	return r, nil
}

// Names lists every format name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns every renderer sorted by name.
func All() []Renderer {
	out := make([]Renderer, 0, len(registry))
	for _, n := range Names() {
		out = append(out, registry[n])
	}
	return out
}

// Value returns the plain value of one symbol, "" when null.
func Value(r record.Record, symbol string) (string, error) {
	s, ok := r.Lookup(strings.ToUpper(strings.TrimSpace(symbol)))
	if !ok {
		return "", fmt.Errorf("unknown symbol %q (known: %s)", symbol, strings.Join(record.SymbolNames(), ", "))
	}
	return s.Value.Or(""), nil
}
