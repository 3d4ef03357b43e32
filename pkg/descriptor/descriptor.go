// Package descriptor classifies BUFR descriptor tokens.
//
// Classification is lexical: the first character of the token selects the
// class. No table lookup is needed to tell a sequence from an element.
package descriptor

import "fmt"

// Class is the kind of a BUFR descriptor (the F part of F-X-Y).
type Class int

const (
	Unknown     Class = iota
	Elementary        // F=0, resolved against element.table
	Replication       // F=1
	Operator          // F=2
	Sequence          // F=3, expands through sequence.def
)

// String returns the class name used in JSON output and the web UI.
func (c Class) String() string {
	switch c {
	case Elementary:
		return "elementary"
	case Replication:
		return "replication"
	case Operator:
		return "operator"
	case Sequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Classify returns the class of tok.
//
// A lone "0" or "3" is not a descriptor (stray digits left over when a
// definition line is split), so both need at least two characters.
func Classify(tok string) Class {
	if tok == "" {
		return Unknown
	}
	switch tok[0] {
	case '0':
		if len(tok) > 1 {
			return Elementary
		}
	case '1':
		return Replication
	case '2':
		return Operator
	case '3':
		if len(tok) > 1 {
			return Sequence
		}
	}
	return Unknown
}

// IsSequence reports whether tok must be expanded recursively.
func IsSequence(tok string) bool {
	return Classify(tok) == Sequence
}

// FXY is the split form of a canonical six-digit descriptor.
type FXY struct {
	F int
	X int
	Y int
}

// Parse splits a canonical six-digit descriptor into F, X and Y.
func Parse(tok string) (FXY, error) {
	if len(tok) != 6 {
		return FXY{}, fmt.Errorf("descriptor %q: want 6 digits, got %d characters", tok, len(tok))
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return FXY{}, fmt.Errorf("descriptor %q: non-digit %q at position %d", tok, tok[i], i)
		}
	}
	return FXY{
		F: int(tok[0] - '0'),
		X: atoi(tok[1:3]),
		Y: atoi(tok[3:6]),
	}, nil
}

func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// String formats the descriptor as "F XX YYY".
func (d FXY) String() string {
	return fmt.Sprintf("%d %02d %03d", d.F, d.X, d.Y)
}

// Delayed reports whether a replication descriptor takes its count from the
// following delayed descriptor replication factor (Y == 0).
func (d FXY) Delayed() bool {
	return d.F == 1 && d.Y == 0
}

// DescribeReplication renders a short human description of a replication
// descriptor, e.g. "replicate next 2 descriptors 4 times". It returns ""
// for tokens that are not canonical replication descriptors.
func DescribeReplication(tok string) string {
	d, err := Parse(tok)
	if err != nil || d.F != 1 {
		return ""
	}
	noun := "descriptors"
	if d.X == 1 {
		noun = "descriptor"
	}
	if d.Delayed() {
		return fmt.Sprintf("replicate next %d %s, delayed", d.X, noun)
	}
	times := "times"
	if d.Y == 1 {
		times = "time"
	}
	return fmt.Sprintf("replicate next %d %s %d %s", d.X, noun, d.Y, times)
}
