package expand

import (
	"bytes"
	"encoding/json"

	"github.com/lemonberrylabs/bufr-resolve/pkg/descriptor"
	"gopkg.in/yaml.v3"
)

// CircularMarker replaces a sequence member that is already being expanded
// on the current branch.
const CircularMarker = "<circular reference>"

// Tree is the expansion of one sequence: {ID: [members...]}.
type Tree struct {
	ID      string
	Members []Member

	// Found is false when sequence.def has no block for ID.
	Found bool
	// Terminated is false when the block ran to end of file unclosed.
	Terminated bool
}

// Member is one entry of a Tree: a leaf token, a nested sequence, or a
// circular reference back to a sequence on the current branch.
type Member struct {
	// Token is the leaf descriptor, or the referenced sequence id for
	// nested and circular members.
	Token    string
	Tree     *Tree
	Circular bool
}

// Class returns the lexical class of the member.
func (m Member) Class() descriptor.Class {
	return descriptor.Classify(m.Token)
}

// IsLeaf reports whether the member is a plain descriptor token.
func (m Member) IsLeaf() bool {
	return m.Tree == nil && !m.Circular
}

// Value returns the tree as plain Go values: a single-key map whose value is
// a slice of strings and nested maps. It is the shape used for JSON and
// protobuf Struct output.
func (t *Tree) Value() map[string]interface{} {
	items := make([]interface{}, 0, len(t.Members))
	for _, m := range t.Members {
		items = append(items, m.value())
	}
	return map[string]interface{}{t.ID: items}
}

func (m Member) value() interface{} {
	switch {
	case m.Circular:
		return CircularMarker
	case m.Tree != nil:
		return m.Tree.Value()
	default:
		return m.Token
	}
}

// MarshalJSON renders {"ID": [...]} with member order preserved.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	key, err := json.Marshal(t.ID)
	if err != nil {
		return nil, err
	}
	buf.WriteByte('{')
	buf.Write(key)
	buf.WriteString(":[")
	for i, m := range t.Members {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := m.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON renders a leaf as a string and a nested sequence as a tree.
func (m Member) MarshalJSON() ([]byte, error) {
	switch {
	case m.Circular:
		return json.Marshal(CircularMarker)
	case m.Tree != nil:
		return m.Tree.MarshalJSON()
	default:
		return json.Marshal(m.Token)
	}
}

// MarshalYAML renders the same shape as MarshalJSON. Tokens are quoted so
// that leading zeros survive a round trip.
func (t *Tree) MarshalYAML() (interface{}, error) {
	return t.yamlNode(), nil
}

func (t *Tree) yamlNode() *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, m := range t.Members {
		switch {
		case m.Circular:
			seq.Content = append(seq.Content, quoted(CircularMarker))
		case m.Tree != nil:
			seq.Content = append(seq.Content, m.Tree.yamlNode())
		default:
			seq.Content = append(seq.Content, quoted(m.Token))
		}
	}
	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Tag:     "!!map",
		Content: []*yaml.Node{quoted(t.ID), seq},
	}
}

func quoted(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.DoubleQuotedStyle}
}

// Flatten returns the leaf tokens depth-first, the historical flat form of an
// expansion. Circular references appear as CircularMarker.
func (t *Tree) Flatten() []string {
	out := []string{}
	t.Walk(func(m Member, _ int) {
		switch {
		case m.Circular:
			out = append(out, CircularMarker)
		case m.Tree == nil:
			out = append(out, m.Token)
		}
	})
	return out
}

// Walk calls fn for every member depth-first, in declaration order. depth is
// 1 for the root's direct members.
func (t *Tree) Walk(fn func(m Member, depth int)) {
	var visit func(n *Tree, depth int)
	visit = func(n *Tree, depth int) {
		for _, m := range n.Members {
			fn(m, depth)
			if m.Tree != nil {
				visit(m.Tree, depth+1)
			}
		}
	}
	visit(t, 1)
}

// Stats summarises an expansion.
type Stats struct {
	Elementary  int `json:"elementary" yaml:"elementary"`
	Replication int `json:"replication" yaml:"replication"`
	Operator    int `json:"operator" yaml:"operator"`
	Unknown     int `json:"unknown" yaml:"unknown"`
	Sequences   int `json:"sequences" yaml:"sequences"`
	Undefined   int `json:"undefined" yaml:"undefined"`
	Circular    int `json:"circular" yaml:"circular"`
	Depth       int `json:"depth" yaml:"depth"`
}

// Stats counts the members of t by kind. Nested sequences that have no block
// in sequence.def are counted as Undefined as well as Sequences.
func (t *Tree) Stats() Stats {
	var s Stats
	t.Walk(func(m Member, depth int) {
		if depth > s.Depth {
			s.Depth = depth
		}
		switch {
		case m.Circular:
			s.Circular++
		case m.Tree != nil:
			s.Sequences++
			if !m.Tree.Found {
				s.Undefined++
			}
		default:
			switch m.Class() {
			case descriptor.Elementary:
				s.Elementary++
			case descriptor.Replication:
				s.Replication++
			case descriptor.Operator:
				s.Operator++
			default:
				s.Unknown++
			}
		}
	})
	return s
}
