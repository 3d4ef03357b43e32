// Package tables reads the eccodes BUFR definition files: sequence.def,
// element.table and the originating-centre code table.
package tables

import (
	"strings"

	"github.com/lemonberrylabs/bufr-resolve/pkg/store"
)

// blockEnd closes a sequence block; it may sit on the header line or on a
// later continuation line.
const blockEnd = "]"

// Paths locates the three table files.
type Paths struct {
	Sequence string
	Element  string
	Centre   string
}

// Block is one sequence record from sequence.def.
type Block struct {
	ID      string
	Members []string
	// Found is false when no header for ID exists in the file.
	Found bool
	// Terminated is false when the file ended before the closing bracket.
	Terminated bool
}

// Reader answers lookups against a set of table files. File contents come
// from a shared store, so repeated lookups never re-read the disk.
type Reader struct {
	paths Paths
	store *store.Store
}

// NewReader creates a reader over the given files. A nil store gets a
// private one.
func NewReader(paths Paths, s *store.Store) *Reader {
	if s == nil {
		s = store.New()
	}
	return &Reader{paths: paths, store: s}
}

// Paths returns the files the reader consults.
func (r *Reader) Paths() Paths {
	return r.paths
}

// ReadSequence returns the member tokens declared for id, in file order.
func (r *Reader) ReadSequence(id string) ([]string, error) {
	b, err := r.ReadBlock(id)
	if err != nil {
		return nil, err
	}
	return b.Members, nil
}

// ReadBlock finds the block whose header line starts with `"id" =`.
//
//	"301022" = [  005001, 006001, 007001 ]
//
// The token list may continue over following lines until one of them
// contains the closing bracket; that line's tokens are included. The first
// matching header wins. If the file ends before the bracket, the tokens read
// so far are returned with Terminated set to false.
func (r *Reader) ReadBlock(id string) (*Block, error) {
	lines, err := r.store.Lines(r.paths.Sequence)
	if err != nil {
		return nil, err
	}

	b := &Block{ID: id, Members: []string{}}
	header := `"` + id + `" =`
	started := false

	for _, line := range lines {
		if !started {
			if !strings.HasPrefix(line, header) {
				continue
			}
			b.Found = true
			toks := Tokenize(line)
			// The first token is the identifier itself.
			if len(toks) > 0 {
				toks = toks[1:]
			}
			b.Members = append(b.Members, toks...)
			if strings.Contains(line, blockEnd) {
				b.Terminated = true
				return b, nil
			}
			started = true
			continue
		}

		b.Members = append(b.Members, Tokenize(line)...)
		if strings.Contains(line, blockEnd) {
			b.Terminated = true
			return b, nil
		}
	}

	return b, nil
}

// SequenceIDs lists the identifier of every block header in file order.
func (r *Reader) SequenceIDs() ([]string, error) {
	lines, err := r.store.Lines(r.paths.Sequence)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, line := range lines {
		if !strings.HasPrefix(line, `"`) {
			continue
		}
		end := strings.Index(line[1:], `"`)
		if end <= 0 {
			continue
		}
		rest := strings.TrimSpace(line[end+2:])
		if !strings.HasPrefix(rest, "=") {
			continue
		}
		ids = append(ids, line[1:end+1])
	}
	return ids, nil
}

// Tokenize splits a definition line on every run of characters outside
// [A-Za-z0-9] and drops empty tokens.
func Tokenize(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return !isSymbol(r)
	})
}

func isSymbol(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
