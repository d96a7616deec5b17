package ecxml

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

// Ensure Host implements the interface.
var _ driven.SchemaHost = (*Host)(nil)

// Host opens ECXML deserialization sessions.
type Host struct {
	readFile func(string) ([]byte, error)
}

// NewHost creates a host that reads candidate files from disk when the
// candidate does not carry its content.
func NewHost() *Host {
	return &Host{readFile: os.ReadFile}
}

// Open implements driven.SchemaHost.
func (h *Host) Open(ctx context.Context, searchDirs []string) (driven.SchemaSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{
		readFile:   h.readFile,
		searchDirs: append([]string(nil), searchDirs...),
		loaded:     make(map[string]*Document),
	}, nil
}

// session holds the documents deserialized during one resolution pass.
type session struct {
	mu         sync.Mutex
	readFile   func(string) ([]byte, error)
	searchDirs []string
	loaded     map[string]*Document
	closed     bool
}

// ReadHeader implements driven.HeaderReader.
func (s *session) ReadHeader(raw []byte) (*domain.SchemaHeader, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, domain.ErrSessionClosed
	}
	return ReadHeader(raw)
}

// Deserialize implements driven.SchemaSession.
func (s *session) Deserialize(ctx context.Context, candidate *domain.FileCandidate, refs []*domain.ResolvedSchema) (domain.SchemaDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := candidate.Raw
	if raw == nil {
		data, err := s.readFile(candidate.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", candidate.Path, err)
		}
		raw = data
	}

	doc, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", candidate.Path, err)
	}
	if !doc.Key().SameIdentity(candidate.Key) {
		return nil, fmt.Errorf("%s: file declares schema %q, expected %q", candidate.Path, doc.Key().Name, candidate.Key.Name)
	}

	supplied := make(map[string]*Document, len(refs))
	for _, ref := range refs {
		loaded, ok := s.loaded[ref.Key.ID()]
		if !ok {
			return nil, fmt.Errorf("%s: reference %s was not loaded in this session", candidate.Key, ref.Key)
		}
		supplied[ref.Key.Identity()] = loaded
	}
	for _, want := range doc.References() {
		loaded, ok := supplied[want.Identity()]
		if !ok {
			return nil, fmt.Errorf("%s: reference %s not supplied (searched %s)",
				candidate.Key, want, strings.Join(s.searchDirs, ", "))
		}
		doc.Loaded[want.Identity()] = loaded
	}

	s.loaded[candidate.Key.ID()] = doc
	return doc, nil
}

// Close implements driven.SchemaSession. Closing twice is a no-op.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.loaded = nil
	return nil
}
