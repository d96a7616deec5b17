package ecxml

import (
	"context"
	"crypto/sha1" //nolint:gosec // G505: inventory digests are sha1
	"encoding/hex"
	"fmt"
	"os"

	"github.com/beevik/etree"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

// Ensure Checksummer implements the interface.
var _ driven.ChecksumTool = (*Checksummer)(nil)

// Checksummer hashes the canonical form of a schema document.
//
// Before hashing, every reference version is rewritten to the version of
// the matching schema in the reference set, every version is written in
// the three-part form, comments and formatting whitespace are dropped and
// attributes are sorted. Two files that differ only in those respects hash
// the same.
type Checksummer struct {
	readFile func(string) ([]byte, error)
}

// NewChecksummer creates a checksum tool reading from disk.
func NewChecksummer() *Checksummer {
	return &Checksummer{readFile: os.ReadFile}
}

// Hash implements driven.ChecksumTool.
func (c *Checksummer) Hash(ctx context.Context, schemaPath string, refPaths []string, includeSelfPath bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := c.readFile(schemaPath)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrCollaborator, schemaPath, err)
	}

	paths := refPaths
	if includeSelfPath {
		paths = append(append([]string(nil), refPaths...), schemaPath)
	}
	versions, err := c.referenceVersions(paths)
	if err != nil {
		return "", err
	}

	canonical, err := Canonicalize(raw, versions)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrCollaborator, schemaPath, err)
	}

	sum := sha1.Sum(canonical) //nolint:gosec // G401: matches inventory digests
	return hex.EncodeToString(sum[:]), nil
}

// referenceVersions maps lower-case schema names to the versions found in paths.
func (c *Checksummer) referenceVersions(paths []string) (map[string]domain.Version, error) {
	versions := make(map[string]domain.Version, len(paths))
	for _, p := range paths {
		raw, err := c.readFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: read reference %s: %v", domain.ErrCollaborator, p, err)
		}
		header, err := ReadHeader(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: reference %s: %v", domain.ErrCollaborator, p, err)
		}
		versions[header.Key.Identity()] = header.Key.Version
	}
	return versions, nil
}

// Canonicalize returns the canonical bytes of a schema document. Reference
// versions found in versions replace the declared ones.
func Canonicalize(raw []byte, versions map[string]domain.Version) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil || root.Tag != tagSchema {
		return nil, fmt.Errorf("not an %s document", tagSchema)
	}

	normaliseVersionAttr(root)
	for _, ref := range root.SelectElements(tagReference) {
		name := ref.SelectAttrValue(attrName, "")
		key := domain.VersionKey{Name: name}
		if v, ok := versions[key.Identity()]; ok {
			ref.CreateAttr(attrVersion, v.String())
			continue
		}
		normaliseVersionAttr(ref)
	}

	stripTokens(&doc.Element)
	doc.Indent(etree.NoIndent)
	doc.WriteSettings.CanonicalEndTags = true
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true

	return doc.WriteToBytes()
}

// normaliseVersionAttr rewrites a parseable version attribute in RR.WW.MM form.
func normaliseVersionAttr(el *etree.Element) {
	text := el.SelectAttrValue(attrVersion, "")
	if text == "" {
		return
	}
	if v, err := domain.ParseVersion(text); err == nil {
		el.CreateAttr(attrVersion, v.String())
	}
}

// stripTokens removes comments, processing instructions and directives
// and sorts attributes, recursively.
func stripTokens(el *etree.Element) {
	for _, tok := range append([]etree.Token(nil), el.Child...) {
		switch t := tok.(type) {
		case *etree.Comment, *etree.ProcInst, *etree.Directive:
			el.RemoveChild(t)
		case *etree.Element:
			t.SortAttrs()
			stripTokens(t)
		}
	}
}
