package render

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sergeknystautas/revstamp/internal/record"
)

func renderSh(b *strings.Builder, syms []record.Symbol) error {
	fmt.Fprintf(b, "# %s\n\n", generatedBy)
	for _, s := range syms {
		if s.Integer {
			fmt.Fprintf(b, "%s=%s\n", s.Name, s.Value.Value)
			continue
		}
		fmt.Fprintf(b, "%s=%s\n", s.Name, shQuote(s.Value.Or("")))
	}
	return nil
}

// shQuote wraps s in single quotes; nothing inside them is special to the
// shell except the quote itself.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func renderH(b *strings.Builder, syms []record.Symbol) error {
	fmt.Fprintf(b, "/* %s */\n", generatedBy)
	b.WriteString("#ifndef AUTOREVISION_H\n#define AUTOREVISION_H\n\n")
	for _, s := range syms {
		if s.Integer {
			fmt.Fprintf(b, "extern const int %s;\n", s.Name)
		} else {
			fmt.Fprintf(b, "extern const char *%s;\n", s.Name)
		}
	}
	b.WriteString("\n#endif /* AUTOREVISION_H */\n")
	return nil
}

func renderC(b *strings.Builder, syms []record.Symbol) error {
	fmt.Fprintf(b, "/* %s */\n\n", generatedBy)
	for _, s := range syms {
		switch {
		case s.Integer:
			fmt.Fprintf(b, "const int %s = %s;\n", s.Name, s.Value.Value)
		case !s.Value.Valid:
			fmt.Fprintf(b, "const char *%s = NULL;\n", s.Name)
		default:
			fmt.Fprintf(b, "const char *%s = %s;\n", s.Name, cQuote(s.Value.Value))
		}
	}
	return nil
}

// cQuote produces a C string literal. Control bytes become octal escapes so
// that a following digit cannot extend them.
func cQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '?':
			// avoid trigraphs
			b.WriteString(`\?`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// jsQuote returns s as a JSON string literal, which JavaScript and Python
// both accept.
func jsQuote(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// literal renders a symbol value for JSON-like languages with the given null
// keyword.
func literal(s record.Symbol, null string) (string, error) {
	if s.Integer {
		return s.Value.Value, nil
	}
	if !s.Value.Valid {
		return null, nil
	}
	return jsQuote(s.Value.Value)
}

func renderJSON(b *strings.Builder, syms []record.Symbol) error {
	b.WriteString("{\n")
	for i, s := range syms {
		v, err := literal(s, "null")
		if err != nil {
			return err
		}
		sep := ","
		if i == len(syms)-1 {
			sep = ""
		}
		fmt.Fprintf(b, "  %q: %s%s\n", s.Name, v, sep)
	}
	b.WriteString("}\n")
	return nil
}

func renderJS(b *strings.Builder, syms []record.Symbol) error {
	fmt.Fprintf(b, "// %s\n\n", generatedBy)
	b.WriteString("var autorevision = {\n")
	for i, s := range syms {
		v, err := literal(s, "null")
		if err != nil {
			return err
		}
		sep := ","
		if i == len(syms)-1 {
			sep = ""
		}
		fmt.Fprintf(b, "\t%s: %s%s\n", s.Name, v, sep)
	}
	b.WriteString("};\n\n")
	b.WriteString("if (typeof module !== 'undefined') {\n\tmodule.exports = autorevision;\n}\n")
	return nil
}

func renderPy(b *strings.Builder, syms []record.Symbol) error {
	b.WriteString("# -*- coding: utf-8 -*-\n")
	fmt.Fprintf(b, "# %s\n\n", generatedBy)
	for _, s := range syms {
		v, err := literal(s, "None")
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "%s = %s\n", s.Name, v)
	}
	return nil
}

func renderGo(b *strings.Builder, syms []record.Symbol) error {
	b.WriteString("// Code generated by revstamp. DO NOT EDIT.\n\n")
	b.WriteString("package autorevision\n\nconst (\n")
	width := 0
	for _, s := range syms {
		width = max(width, len(s.Name))
	}
	for _, s := range syms {
		v := s.Value.Value
		if !s.Integer {
			v = fmt.Sprintf("%q", s.Value.Or(""))
		}
		fmt.Fprintf(b, "\t%-*s = %s\n", width, s.Name, v)
	}
	b.WriteString(")\n")
	return nil
}

func renderXML(b *strings.Builder, syms []record.Symbol) error {
	b.WriteString(xml.Header)
	fmt.Fprintf(b, "<!-- %s -->\n", generatedBy)
	b.WriteString("<autorevision>\n")
	for _, s := range syms {
		if !s.Value.Valid {
			fmt.Fprintf(b, "  <%s/>\n", s.Name)
			continue
		}
		var esc bytes.Buffer
		if err := xml.EscapeText(&esc, []byte(s.Value.Value)); err != nil {
			return err
		}
		fmt.Fprintf(b, "  <%s>%s</%s>\n", s.Name, esc.String(), s.Name)
	}
	b.WriteString("</autorevision>\n")
	return nil
}

func renderYAML(b *strings.Builder, syms []record.Symbol) error {
	// a mapping node keeps symbol order, which a Go map would not
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range syms {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Name}
		val := &yaml.Node{Kind: yaml.ScalarNode}
		switch {
		case s.Integer:
			val.Tag, val.Value = "!!int", s.Value.Value
		case !s.Value.Valid:
			val.Tag, val.Value = "!!null", "null"
		default:
			val.Tag, val.Value = "!!str", s.Value.Value
		}
		doc.Content = append(doc.Content, key, val)
	}

	fmt.Fprintf(b, "# %s\n", generatedBy)
	enc := yaml.NewEncoder(b)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func renderINI(b *strings.Builder, syms []record.Symbol) error {
	fmt.Fprintf(b, "; %s\n\n[VCS]\n", generatedBy)
	for _, s := range syms {
		v := s.Value.Or("")
		special := strings.ContainsAny(v, ";#\"=\\") || v != strings.TrimSpace(v)
		if !s.Integer && v != "" && special {
			v = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
		}
		writeAssignment(b, s.Name, v)
	}
	return nil
}

func renderMake(b *strings.Builder, syms []record.Symbol) error {
	fmt.Fprintf(b, "# %s\n\n", generatedBy)
	esc := strings.NewReplacer("$", "$$", "#", `\#`, "\n", " ")
	for _, s := range syms {
		writeAssignment(b, s.Name, esc.Replace(s.Value.Or("")))
	}
	return nil
}

func writeAssignment(b *strings.Builder, name, value string) {
	if value == "" {
		fmt.Fprintf(b, "%s =\n", name)
		return
	}
	fmt.Fprintf(b, "%s = %s\n", name, value)
}
