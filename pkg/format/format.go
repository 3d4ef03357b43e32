// Package format renders lookup results for the terminal, as JSON, or as YAML.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lemonberrylabs/bufr-resolve/pkg/descriptor"
	"github.com/lemonberrylabs/bufr-resolve/pkg/expand"
	"github.com/lemonberrylabs/bufr-resolve/pkg/types"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

// ColorMode selects when ANSI colors are emitted.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a --color value.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(s)); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode %q: must be 'auto', 'always' or 'never'", s)
	}
}

// ElementLookup resolves an elementary descriptor for display.
type ElementLookup func(code string) (*types.Element, bool, error)

// Printer writes styled output to a terminal (or any writer).
type Printer struct {
	w      io.Writer
	lookup ElementLookup

	sequence    lipgloss.Style
	replication lipgloss.Style
	operator    lipgloss.Style
	element     lipgloss.Style
	circular    lipgloss.Style
	dim         lipgloss.Style
}

// NewPrinter creates a printer on w. lookup resolves elementary descriptors
// while printing trees; it may be nil, in which case codes print bare.
func NewPrinter(w io.Writer, mode ColorMode, lookup ElementLookup) *Printer {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case ColorAlways:
		r.SetColorProfile(termenv.ANSI)
	case ColorNever:
		r.SetColorProfile(termenv.Ascii)
	}

	return &Printer{
		w:           w,
		lookup:      lookup,
		sequence:    r.NewStyle().Foreground(lipgloss.Color("12")),
		replication: r.NewStyle().Foreground(lipgloss.Color("13")),
		operator:    r.NewStyle().Foreground(lipgloss.Color("9")),
		element:     r.NewStyle().Foreground(lipgloss.Color("10")),
		circular:    r.NewStyle().Foreground(lipgloss.Color("11")),
		dim:         r.NewStyle().Faint(true),
	}
}

// Tree prints an expansion: sequence headers in brackets, members indented
// by nesting depth.
func (p *Printer) Tree(t *expand.Tree) error {
	return p.tree(t, 0)
}

func (p *Printer) tree(t *expand.Tree, depth int) error {
	indent := strings.Repeat("  ", depth)
	if _, err := fmt.Fprintf(p.w, "%s%s\n", indent, p.sequence.Render("["+t.ID+"]")); err != nil {
		return err
	}
	for _, m := range t.Members {
		var err error
		switch {
		case m.Tree != nil:
			err = p.tree(m.Tree, depth+1)
		case m.Circular:
			_, err = fmt.Fprintf(p.w, "%s  %s %s\n", indent,
				p.sequence.Render("["+m.Token+"]"), p.circular.Render(expand.CircularMarker))
		default:
			err = p.leaf(indent, m.Token)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) leaf(indent, tok string) error {
	var err error
	switch descriptor.Classify(tok) {
	case descriptor.Operator:
		_, err = fmt.Fprintf(p.w, "%s  %s\n", indent, p.operator.Render(tok))
	case descriptor.Replication:
		line := p.replication.Render(tok)
		if desc := descriptor.DescribeReplication(tok); desc != "" {
			line += " " + p.dim.Render("("+desc+")")
		}
		_, err = fmt.Fprintf(p.w, "%s    %s\n", indent, line)
	case descriptor.Elementary:
		return p.elementLine(indent+"  ", tok)
	default:
		_, err = fmt.Fprintf(p.w, "%s  No match for %s? Strange.\n", indent, tok)
	}
	return err
}

func (p *Printer) elementLine(indent, code string) error {
	if p.lookup == nil {
		_, err := fmt.Fprintf(p.w, "%s%s\n", indent, p.element.Render(code))
		return err
	}
	e, ok, err := p.lookup(code)
	if err != nil {
		return err
	}
	if !ok {
		_, err = fmt.Fprintf(p.w, "%sDescriptor: %s not found.\n", indent, code)
		return err
	}
	return p.writeElement(indent, e)
}

// Element prints a single element row: "code --> abbreviation".
func (p *Printer) Element(e *types.Element) error {
	return p.writeElement("", e)
}

func (p *Printer) writeElement(indent string, e *types.Element) error {
	line := fmt.Sprintf("%s%s --> %s", indent, p.element.Render(e.Code), e.Abbreviation)
	var extra []string
	if e.Name != "" {
		extra = append(extra, e.Name)
	}
	if e.Unit != "" {
		extra = append(extra, "["+e.Unit+"]")
	}
	if len(extra) > 0 {
		line += " " + p.dim.Render(strings.Join(extra, " "))
	}
	_, err := fmt.Fprintln(p.w, line)
	return err
}

// Centre prints a centre table row.
func (p *Printer) Centre(c *types.Centre) error {
	_, err := fmt.Fprintln(p.w, p.replication.Render(c.Line))
	return err
}

// Flat prints one token per line.
func (p *Printer) Flat(tokens []string) error {
	for _, tok := range tokens {
		if tok == expand.CircularMarker {
			if _, err := fmt.Fprintln(p.w, p.circular.Render(tok)); err != nil {
				return err
			}
			continue
		}
		if err := p.leaf("", tok); err != nil {
			return err
		}
	}
	return nil
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

// YAML writes v as YAML.
func YAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
