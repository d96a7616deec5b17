// Package rules provides the built-in schema rule checker.
//
// Rules run in registration order against the deserialized document.
// Schemas on the standard list are reported as unsupported and not checked.
package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ecaudit/internal/adapters/driven/ecxml"
	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

// Ensure Checker implements the interface.
var _ driven.RuleChecker = (*Checker)(nil)

// Rule inspects one schema document.
type Rule interface {
	// Name identifies the rule in diagnostics.
	Name() string

	// Check returns the rule's findings. refs are the resolved dependencies.
	Check(doc *ecxml.Document, refs []*domain.ResolvedSchema) []domain.Diagnostic
}

// DefaultStandardSchemas are platform-owned schemas that are not audited.
var DefaultStandardSchemas = []string{
	"BisCore",
	"BisCustomAttributes",
	"CoreCustomAttributes",
	"ECDbFileInfo",
	"ECDbMap",
	"ECDbMeta",
	"ECDbSchemaPolicies",
	"ECDbSystem",
	"Formats",
	"SchemaLocalizationCustomAttributes",
	"Units",
}

// Checker runs a fixed list of rules.
type Checker struct {
	rules    []Rule
	standard map[string]bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithStandardSchemas replaces the list of schemas reported as unsupported.
func WithStandardSchemas(names ...string) Option {
	return func(c *Checker) {
		c.standard = make(map[string]bool, len(names))
		for _, n := range names {
			c.standard[strings.ToLower(n)] = true
		}
	}
}

// NewChecker creates a checker running rules in the order given.
func NewChecker(rules []Rule, opts ...Option) *Checker {
	c := &Checker{rules: rules}
	WithStandardSchemas(DefaultStandardSchemas...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewDefaultChecker creates a checker with every built-in rule.
func NewDefaultChecker(opts ...Option) (*Checker, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	built, err := r.BuildAll()
	if err != nil {
		return nil, err
	}
	return NewChecker(built, opts...), nil
}

// Len returns the number of rules.
func (c *Checker) Len() int {
	return len(c.rules)
}

// Check implements driven.RuleChecker.
func (c *Checker) Check(ctx context.Context, schema *domain.ResolvedSchema, refs []*domain.ResolvedSchema) ([]domain.Diagnostic, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: rules: schema is nil", domain.ErrCollaborator)
	}
	if c.standard[schema.Key.Identity()] {
		return []domain.Diagnostic{{
			Severity: domain.SeverityInfo,
			Code:     "StandardSchema",
			Message:  fmt.Sprintf("%s: %s, standard schemas are not audited", driven.UnsupportedSchemaMarker, schema.Key.Name),
		}}, nil
	}

	doc, ok := schema.Document.(*ecxml.Document)
	if !ok {
		return nil, fmt.Errorf("%w: rules: cannot inspect document of type %T", domain.ErrCollaborator, schema.Document)
	}

	var diags []domain.Diagnostic
	for _, rule := range c.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		diags = append(diags, rule.Check(doc, refs)...)
	}
	return diags, nil
}
