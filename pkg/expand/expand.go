// Package expand resolves a BUFR sequence descriptor into the nested tree of
// descriptors it includes.
package expand

import (
	"fmt"
	"log/slog"

	"github.com/lemonberrylabs/bufr-resolve/pkg/descriptor"
	"github.com/lemonberrylabs/bufr-resolve/pkg/tables"
)

// Source supplies sequence blocks. *tables.Reader implements it.
type Source interface {
	ReadBlock(id string) (*tables.Block, error)
}

// Expander builds expansion trees. It holds no per-call state, so one
// Expander may serve any number of top-level requests.
type Expander struct {
	src    Source
	logger *slog.Logger
}

// New creates an expander over src. A nil logger uses slog.Default().
func New(src Source, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{src: src, logger: logger}
}

// Expand returns the tree for id. Every sequence member is expanded in place;
// a member already being expanded higher up the same branch becomes a
// circular-reference leaf instead. An unknown id yields an empty tree.
func (e *Expander) Expand(id string) (*Tree, error) {
	// The path set lives for this call only. Sharing it across calls would
	// hide sequences that a later request legitimately asks for again.
	return e.expand(id, make(map[string]bool))
}

func (e *Expander) expand(id string, onPath map[string]bool) (*Tree, error) {
	b, err := e.src.ReadBlock(id)
	if err != nil {
		return nil, fmt.Errorf("expanding sequence %s: %w", id, err)
	}
	if b.Found && !b.Terminated {
		e.logger.Warn("sequence block has no closing bracket, read to end of file",
			"sequence", id, "members", len(b.Members))
	}

	onPath[id] = true
	defer delete(onPath, id)

	t := &Tree{
		ID:         id,
		Members:    make([]Member, 0, len(b.Members)),
		Found:      b.Found,
		Terminated: b.Terminated,
	}
	for _, tok := range b.Members {
		if !descriptor.IsSequence(tok) {
			t.Members = append(t.Members, Member{Token: tok})
			continue
		}
		if onPath[tok] {
			e.logger.Debug("circular sequence reference", "sequence", id, "ref", tok)
			t.Members = append(t.Members, Member{Token: tok, Circular: true})
			continue
		}
		child, err := e.expand(tok, onPath)
		if err != nil {
			return nil, err
		}
		if !child.Found {
			e.logger.Debug("sequence member not defined", "sequence", id, "ref", tok)
		}
		t.Members = append(t.Members, Member{Token: tok, Tree: child})
	}
	return t, nil
}
