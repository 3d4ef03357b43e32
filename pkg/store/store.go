// Package store provides the in-memory, read-through cache of table file
// contents shared by every lookup in the process.
package store

import (
	"bufio"
	"os"
	"sync"

	"github.com/lemonberrylabs/bufr-resolve/pkg/types"
)

// maxLineSize bounds a single definition line. eccodes tables stay far below it.
const maxLineSize = 1024 * 1024

// Store caches the lines of table files by path. Entries are loaded on first
// use and never change afterwards; the tables are static for the lifetime of
// the process. Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	files map[string][]string

	// Number of times a file was actually read from disk.
	loads int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		files: make(map[string][]string),
	}
}

// Lines returns the lines of the file at path, reading it on first use.
// A file that cannot be opened yields a *types.InputError.
func (s *Store) Lines(path string) ([]string, error) {
	s.mu.RLock()
	lines, ok := s.files[path]
	s.mu.RUnlock()
	if ok {
		return lines, nil
	}

	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another reader may have won the race; keep the first copy.
	if existing, ok := s.files[path]; ok {
		return existing, nil
	}
	s.files[path] = lines
	s.loads++
	return lines, nil
}

// Cached reports whether the file at path is already loaded.
func (s *Store) Cached(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.files[path]
	return ok
}

// Loads returns how many files were read from disk.
func (s *Store) Loads() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}

// Clear drops every cached file.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = make(map[string][]string)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewInputError(path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, types.NewInputError(path, err)
	}
	return lines, nil
}
