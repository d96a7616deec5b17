package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driving"
	"github.com/custodia-labs/ecaudit/internal/logger"
)

// Ensure Resolver implements the interface.
var _ driving.SchemaResolver = (*Resolver)(nil)

// Resolver walks schema reference graphs and returns them in load order,
// every schema after all of its references.
type Resolver struct {
	fs      driven.FileSystem
	locater *Locater
	host    driven.SchemaHost
}

// NewResolver creates a resolver.
func NewResolver(fs driven.FileSystem, locater *Locater, host driven.SchemaHost) *Resolver {
	return &Resolver{fs: fs, locater: locater, host: host}
}

// Resolve locates root under policy and resolves its reference graph.
// Any failure aborts the pass and no schemas are returned.
func (r *Resolver) Resolve(ctx context.Context, root domain.VersionKey, policy domain.MatchPolicy, dirs []string) ([]*domain.ResolvedSchema, error) {
	if err := root.Version.Validate(); err != nil {
		return nil, err
	}
	candidate, ok := r.locater.Locate(ctx, root, policy, dirs)
	if !ok {
		return nil, &domain.SchemaNotFoundError{Key: root, Policy: policy}
	}
	return r.resolveCandidate(ctx, candidate, dirs)
}

// ResolveFile resolves the schema stored at path. Its directory is searched
// for references before dirs.
func (r *Resolver) ResolveFile(ctx context.Context, path string, dirs []string) ([]*domain.ResolvedSchema, error) {
	raw, err := r.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	searchDirs := withFirst(filepath.Dir(path), dirs)

	session, err := r.host.Open(ctx, searchDirs)
	if err != nil {
		return nil, fmt.Errorf("open schema session: %w", err)
	}
	defer session.Close()

	header, err := session.ReadHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	candidate := &domain.FileCandidate{Key: header.Key, Path: path, Raw: raw}
	return newPass(r.locater, session, searchDirs).run(ctx, candidate)
}

// Candidates implements driving.SchemaResolver.
func (r *Resolver) Candidates(ctx context.Context, target domain.VersionKey, policy domain.MatchPolicy, dirs []string) []domain.FileCandidate {
	return r.locater.Candidates(ctx, target, policy, dirs)
}

// resolveCandidate runs a pass rooted at an already located candidate.
func (r *Resolver) resolveCandidate(ctx context.Context, candidate *domain.FileCandidate, dirs []string) ([]*domain.ResolvedSchema, error) {
	session, err := r.host.Open(ctx, dirs)
	if err != nil {
		return nil, fmt.Errorf("open schema session: %w", err)
	}
	defer session.Close()

	return newPass(r.locater, session, dirs).run(ctx, candidate)
}

// pass is the state of one depth-first resolution.
// visited is keyed by key ID; onPath by schema identity, since a schema
// cannot be defined before its own ancestor whatever the version.
type pass struct {
	locater *Locater
	session driven.SchemaSession
	dirs    []string

	visited map[string]*domain.ResolvedSchema
	onPath  map[string]bool
	order   []*domain.ResolvedSchema
}

func newPass(locater *Locater, session driven.SchemaSession, dirs []string) *pass {
	return &pass{
		locater: locater,
		session: session,
		dirs:    dirs,
		visited: make(map[string]*domain.ResolvedSchema),
		onPath:  make(map[string]bool),
	}
}

func (p *pass) run(ctx context.Context, root *domain.FileCandidate) ([]*domain.ResolvedSchema, error) {
	if _, err := p.resolve(ctx, root); err != nil {
		return nil, err
	}
	return p.order, nil
}

func (p *pass) resolve(ctx context.Context, candidate *domain.FileCandidate) (*domain.ResolvedSchema, error) {
	if cached, ok := p.visited[candidate.Key.ID()]; ok {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	identity := candidate.Key.Identity()
	p.onPath[identity] = true

	header, err := p.session.ReadHeader(candidate.Raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", candidate.Path, err)
	}
	if !header.Key.SameIdentity(candidate.Key) {
		return nil, fmt.Errorf("%s: file declares schema %q, expected %q", candidate.Path, header.Key.Name, candidate.Key.Name)
	}

	deps := make([]*domain.ResolvedSchema, 0, len(header.References))
	for _, ref := range header.References {
		if p.onPath[ref.Identity()] {
			return nil, &domain.CyclicDependencyError{From: candidate.Key, To: ref}
		}
		located, ok := p.locater.Locate(ctx, ref, domain.MatchLatestWriteCompatible, p.dirs)
		if !ok {
			return nil, &domain.SchemaNotFoundError{Key: ref, Policy: domain.MatchLatestWriteCompatible, From: candidate.Key}
		}
		dep, err := p.resolve(ctx, located)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}

	delete(p.onPath, identity)

	doc, err := p.session.Deserialize(ctx, candidate, deps)
	if err != nil {
		return nil, fmt.Errorf("deserialize %s: %w", candidate.Key, err)
	}

	resolved := &domain.ResolvedSchema{
		Key:          candidate.Key,
		Path:         candidate.Path,
		References:   header.References,
		Dependencies: deps,
		Dynamic:      header.Dynamic,
		Document:     doc,
	}
	p.visited[candidate.Key.ID()] = resolved
	p.order = append(p.order, resolved)
	logger.Debug("resolved %s from %s", candidate.Key, candidate.Path)
	return resolved, nil
}

// withFirst returns dirs with first prepended, dropping a later duplicate.
func withFirst(first string, dirs []string) []string {
	out := make([]string, 0, len(dirs)+1)
	out = append(out, first)
	for _, d := range dirs {
		if filepath.Clean(d) != filepath.Clean(first) {
			out = append(out, d)
		}
	}
	return out
}
