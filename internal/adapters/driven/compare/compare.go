// Package compare diffs two deserialized ECSchema documents.
//
// Differences limited to reference declarations are tagged with the
// reference-only codes so the pipeline can treat them as warnings.
package compare

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/ecaudit/internal/adapters/driven/ecxml"
	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

// Delta codes for semantic differences.
const (
	CodeSchemaDelta    = "SchemaDelta"
	CodeItemDelta      = "ItemDelta"
	CodeBaseClassDelta = "BaseClassDelta"
	CodePropertyDelta  = "PropertyDelta"
)

// Ensure Comparer implements the interface.
var _ driven.SchemaComparer = (*Comparer)(nil)

// Comparer compares ecxml documents.
type Comparer struct{}

// New creates a comparer.
func New() *Comparer {
	return &Comparer{}
}

// Compare implements driven.SchemaComparer. a is the schema under audit
// and b its baseline.
func (c *Comparer) Compare(ctx context.Context, a, b *domain.ResolvedSchema, refPathsA, refPathsB []string) ([]domain.CompareEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docA, err := document(a)
	if err != nil {
		return nil, err
	}
	docB, err := document(b)
	if err != nil {
		return nil, err
	}

	entries := []domain.CompareEntry{{
		Kind: domain.EntryMessage,
		Message: fmt.Sprintf("compared %s (%d references) with %s (%d references)",
			a.Key, len(refPathsA), b.Key, len(refPathsB)),
	}}
	if Fingerprint(docA) == Fingerprint(docB) {
		return entries, nil
	}

	d := &differ{}
	d.schema(docA, docB)
	d.references(docA, docB)
	d.items(docA, docB)
	return append(entries, d.entries...), nil
}

func document(s *domain.ResolvedSchema) (*ecxml.Document, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: compare: schema is nil", domain.ErrCollaborator)
	}
	doc, ok := s.Document.(*ecxml.Document)
	if !ok {
		return nil, fmt.Errorf("%w: compare: cannot inspect document of type %T", domain.ErrCollaborator, s.Document)
	}
	return doc, nil
}

// Fingerprint hashes everything the comparer looks at except the schema's
// own version, so equal fingerprints mean no differences.
func Fingerprint(doc *ecxml.Document) uint64 {
	h := xxhash.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.WriteString(p)
			_, _ = h.WriteString("\x00")
		}
		_, _ = h.WriteString("\n")
	}

	write("schema", strings.ToLower(doc.Key().Name), doc.Alias())
	writeAttrs(write, doc.Attrs)
	for _, ref := range sortedRefs(doc) {
		write("ref", ref.Identity(), ref.Version.String())
	}
	for _, it := range doc.Items {
		write("item", it.Kind, it.Name)
		writeAttrs(write, it.Attrs)
		write(append([]string{"base"}, it.BaseClasses...)...)
		for _, p := range it.Properties {
			write("prop", p.Kind, p.Name)
			writeAttrs(write, p.Attrs)
		}
	}
	return h.Sum64()
}

func writeAttrs(write func(...string), attrs map[string]string) {
	for _, k := range sortedKeys(attrs) {
		write("attr", k, attrs[k])
	}
}

type differ struct {
	entries []domain.CompareEntry
}

func (d *differ) add(code, item, format string, args ...any) {
	d.entries = append(d.entries, domain.CompareEntry{
		Kind:    domain.EntryDelta,
		Code:    code,
		Item:    item,
		Message: fmt.Sprintf(format, args...),
	})
}

func (d *differ) schema(a, b *ecxml.Document) {
	if a.Alias() != b.Alias() {
		d.add(CodeSchemaDelta, "alias", "alias changed from %q to %q", b.Alias(), a.Alias())
	}
	d.attrs(CodeSchemaDelta, a.Key().Name, a.Attrs, b.Attrs, "alias", "nameSpacePrefix")
}

func (d *differ) references(a, b *ecxml.Document) {
	refsB := make(map[string]domain.VersionKey)
	for _, ref := range b.References() {
		refsB[ref.Identity()] = ref
	}
	seen := make(map[string]bool)
	for _, ref := range sortedRefs(a) {
		seen[ref.Identity()] = true
		old, ok := refsB[ref.Identity()]
		switch {
		case !ok:
			d.add(domain.CodeSchemaReferenceDelta, ref.Name, "reference to %s added", ref)
		case old.Version != ref.Version:
			d.add(domain.CodeSchemaReferenceVersionDelta, ref.Name, "reference to %s changed from %s to %s", ref.Name, old.Version, ref.Version)
		}
	}
	for _, ref := range sortedRefs(b) {
		if !seen[ref.Identity()] {
			d.add(domain.CodeSchemaReferenceDelta, ref.Name, "reference to %s removed", ref)
		}
	}
}

func (d *differ) items(a, b *ecxml.Document) {
	for _, itA := range a.Items {
		itB, ok := b.Item(itA.Name)
		if !ok {
			d.add(CodeItemDelta, itA.Name, "%s %s added", itA.Kind, itA.Name)
			continue
		}
		if itA.Kind != itB.Kind {
			d.add(CodeItemDelta, itA.Name, "%s changed kind from %s to %s", itA.Name, itB.Kind, itA.Kind)
		}
		d.attrs(CodeItemDelta, itA.Name, itA.Attrs, itB.Attrs)
		if strings.Join(itA.BaseClasses, ",") != strings.Join(itB.BaseClasses, ",") {
			d.add(CodeBaseClassDelta, itA.Name, "%s base classes changed from [%s] to [%s]",
				itA.Name, strings.Join(itB.BaseClasses, ", "), strings.Join(itA.BaseClasses, ", "))
		}
		d.properties(itA, itB)
	}
	for _, itB := range b.Items {
		if _, ok := a.Item(itB.Name); !ok {
			d.add(CodeItemDelta, itB.Name, "%s %s removed", itB.Kind, itB.Name)
		}
	}
}

func (d *differ) properties(a, b ecxml.Item) {
	propsB := make(map[string]ecxml.Property, len(b.Properties))
	for _, p := range b.Properties {
		propsB[strings.ToLower(p.Name)] = p
	}
	seen := make(map[string]bool, len(a.Properties))
	for _, p := range a.Properties {
		key := strings.ToLower(p.Name)
		seen[key] = true
		old, ok := propsB[key]
		if !ok {
			d.add(CodePropertyDelta, a.Name+"."+p.Name, "property %s.%s added", a.Name, p.Name)
			continue
		}
		if old.Kind != p.Kind {
			d.add(CodePropertyDelta, a.Name+"."+p.Name, "property %s.%s changed kind from %s to %s", a.Name, p.Name, old.Kind, p.Kind)
		}
		d.attrs(CodePropertyDelta, a.Name+"."+p.Name, p.Attrs, old.Attrs)
	}
	for _, p := range b.Properties {
		if !seen[strings.ToLower(p.Name)] {
			d.add(CodePropertyDelta, b.Name+"."+p.Name, "property %s.%s removed", b.Name, p.Name)
		}
	}
}

// attrs reports attribute changes between a and its baseline b.
func (d *differ) attrs(code, item string, a, b map[string]string, skip ...string) {
	ignored := make(map[string]bool, len(skip))
	for _, s := range skip {
		ignored[s] = true
	}
	keys := sortedKeys(a)
	for _, k := range sortedKeys(b) {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		if ignored[k] {
			continue
		}
		va, inA := a[k]
		vb, inB := b[k]
		switch {
		case inA && !inB:
			d.add(code, item, "%s: attribute %s added with %q", item, k, va)
		case !inA && inB:
			d.add(code, item, "%s: attribute %s removed", item, k)
		case va != vb:
			d.add(code, item, "%s: attribute %s changed from %q to %q", item, k, vb, va)
		}
	}
}

func sortedRefs(doc *ecxml.Document) []domain.VersionKey {
	refs := append([]domain.VersionKey(nil), doc.References()...)
	sort.Slice(refs, func(i, j int) bool { return refs[i].Identity() < refs[j].Identity() })
	return refs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
