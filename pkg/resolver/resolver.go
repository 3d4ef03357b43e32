// Package resolver is the lookup surface shared by the CLI, the REST and gRPC
// APIs and the web UI.
package resolver

import (
	"log/slog"

	"github.com/lemonberrylabs/bufr-resolve/pkg/config"
	"github.com/lemonberrylabs/bufr-resolve/pkg/expand"
	"github.com/lemonberrylabs/bufr-resolve/pkg/store"
	"github.com/lemonberrylabs/bufr-resolve/pkg/tables"
	"github.com/lemonberrylabs/bufr-resolve/pkg/types"
)

// Service answers sequence, descriptor and centre lookups against one set of
// tables.
type Service struct {
	cfg      *config.Config
	reader   *tables.Reader
	expander *expand.Expander
}

// New creates a service over cfg's tables. s may be shared between services;
// nil gets a private cache.
func New(cfg *config.Config, s *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	reader := tables.NewReader(cfg.Paths(), s)
	return &Service{
		cfg:      cfg,
		reader:   reader,
		expander: expand.New(reader, logger),
	}
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Sequence expands id into its nested tree.
func (s *Service) Sequence(id string) (*expand.Tree, error) {
	return s.expander.Expand(id)
}

// Flat expands id and returns its leaf tokens in order.
func (s *Service) Flat(id string) ([]string, error) {
	t, err := s.expander.Expand(id)
	if err != nil {
		return nil, err
	}
	return t.Flatten(), nil
}

// Element looks up an elementary descriptor.
func (s *Service) Element(code string) (*types.Element, bool, error) {
	return s.reader.LookupElement(code)
}

// Centre looks up an originating centre.
func (s *Service) Centre(id string) (*types.Centre, bool, error) {
	return s.reader.LookupCentre(id)
}

// SequenceIDs lists every sequence defined in sequence.def.
func (s *Service) SequenceIDs() ([]string, error) {
	return s.reader.SequenceIDs()
}
