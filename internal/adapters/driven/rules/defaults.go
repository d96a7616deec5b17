package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/ecaudit/internal/adapters/driven/ecxml"
	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// RegisterDefaults registers all built-in rules with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("alias-required", static(aliasRequired{}))
	r.Register("valid-names", static(validNames{}))
	r.Register("unique-items", static(uniqueItems{}))
	r.Register("unique-properties", static(uniqueProperties{}))
	r.Register("known-alias-prefix", static(knownAliasPrefix{}))
	r.Register("legacy-format", static(legacyFormat{}))
}

func static(rule Rule) BuilderFunc {
	return func() (Rule, error) { return rule, nil }
}

func diag(sev domain.Severity, code, format string, args ...any) domain.Diagnostic {
	return domain.Diagnostic{Severity: sev, Code: code, Message: fmt.Sprintf(format, args...)}
}

type aliasRequired struct{}

func (aliasRequired) Name() string { return "alias-required" }

func (aliasRequired) Check(doc *ecxml.Document, _ []*domain.ResolvedSchema) []domain.Diagnostic {
	if strings.TrimSpace(doc.Alias()) == "" {
		return []domain.Diagnostic{diag(domain.SeverityError, "MissingAlias", "schema %s has no alias", doc.Key().Name)}
	}
	return nil
}

var ecName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type validNames struct{}

func (validNames) Name() string { return "valid-names" }

func (validNames) Check(doc *ecxml.Document, _ []*domain.ResolvedSchema) []domain.Diagnostic {
	var out []domain.Diagnostic
	if !ecName.MatchString(doc.Key().Name) {
		out = append(out, diag(domain.SeverityError, "InvalidName", "schema name %q is not a valid EC name", doc.Key().Name))
	}
	for _, it := range doc.Items {
		if !ecName.MatchString(it.Name) {
			out = append(out, diag(domain.SeverityError, "InvalidName", "%s %q is not a valid EC name", it.Kind, it.Name))
		}
		for _, p := range it.Properties {
			if !ecName.MatchString(p.Name) {
				out = append(out, diag(domain.SeverityError, "InvalidName", "property %s.%q is not a valid EC name", it.Name, p.Name))
			}
		}
	}
	return out
}

type uniqueItems struct{}

func (uniqueItems) Name() string { return "unique-items" }

func (uniqueItems) Check(doc *ecxml.Document, _ []*domain.ResolvedSchema) []domain.Diagnostic {
	var out []domain.Diagnostic
	seen := make(map[string]string, len(doc.Items))
	for _, it := range doc.Items {
		key := strings.ToLower(it.Name)
		if first, dup := seen[key]; dup {
			out = append(out, diag(domain.SeverityError, "DuplicateItem", "item %q conflicts with %q", it.Name, first))
			continue
		}
		seen[key] = it.Name
	}
	return out
}

type uniqueProperties struct{}

func (uniqueProperties) Name() string { return "unique-properties" }

func (uniqueProperties) Check(doc *ecxml.Document, _ []*domain.ResolvedSchema) []domain.Diagnostic {
	var out []domain.Diagnostic
	for _, it := range doc.Items {
		seen := make(map[string]bool, len(it.Properties))
		for _, p := range it.Properties {
			key := strings.ToLower(p.Name)
			if seen[key] {
				out = append(out, diag(domain.SeverityError, "DuplicateProperty", "%s declares property %q more than once", it.Name, p.Name))
				continue
			}
			seen[key] = true
		}
	}
	return out
}

// knownAliasPrefix checks that qualified base class names use the schema's
// own alias or the alias of a resolved reference.
type knownAliasPrefix struct{}

func (knownAliasPrefix) Name() string { return "known-alias-prefix" }

func (knownAliasPrefix) Check(doc *ecxml.Document, refs []*domain.ResolvedSchema) []domain.Diagnostic {
	known := map[string]bool{strings.ToLower(doc.Alias()): true}
	for _, ref := range refs {
		if refDoc, ok := ref.Document.(*ecxml.Document); ok {
			known[strings.ToLower(refDoc.Alias())] = true
		}
	}

	var out []domain.Diagnostic
	for _, it := range doc.Items {
		for _, base := range it.BaseClasses {
			prefix, _, qualified := strings.Cut(base, ":")
			if qualified && !known[strings.ToLower(prefix)] {
				out = append(out, diag(domain.SeverityError, "UnknownAlias", "%s base class %q uses unknown alias %q", it.Name, base, prefix))
			}
		}
	}
	return out
}

// legacyFormat warns about EC2 documents, which carry a namespace prefix
// instead of an alias.
type legacyFormat struct{}

func (legacyFormat) Name() string { return "legacy-format" }

func (legacyFormat) Check(doc *ecxml.Document, _ []*domain.ResolvedSchema) []domain.Diagnostic {
	if _, ec2 := doc.Attrs["nameSpacePrefix"]; ec2 {
		return []domain.Diagnostic{diag(domain.SeverityWarning, "LegacyFormat", "schema %s uses the EC2 format", doc.Key().Name)}
	}
	return nil
}
