package ecxml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

// Element and attribute names of the ECXML format.
const (
	tagSchema           = "ECSchema"
	tagReference        = "ECSchemaReference"
	tagCustomAttributes = "ECCustomAttributes"
	tagDynamicSchema    = "DynamicSchema"

	attrSchemaName = "schemaName"
	attrVersion    = "version"
	attrAlias      = "alias"
	attrPrefix     = "nameSpacePrefix"
	attrName       = "name"
)

// Ensure HeaderReader implements the interface.
var _ driven.HeaderReader = HeaderReader{}

// HeaderReader reads schema headers without a session.
type HeaderReader struct{}

// ReadHeader implements driven.HeaderReader.
func (HeaderReader) ReadHeader(raw []byte) (*domain.SchemaHeader, error) {
	return ReadHeader(raw)
}

// ReadHeader parses raw and returns its schema header.
func ReadHeader(raw []byte) (*domain.SchemaHeader, error) {
	root, err := parseRoot(raw)
	if err != nil {
		return nil, err
	}
	return headerFrom(root)
}

func parseRoot(raw []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parse schema xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("parse schema xml: document has no root element")
	}
	if root.Tag != tagSchema {
		return nil, fmt.Errorf("parse schema xml: root element is %q, want %q", root.Tag, tagSchema)
	}
	return root, nil
}

func headerFrom(root *etree.Element) (*domain.SchemaHeader, error) {
	name := root.SelectAttrValue(attrSchemaName, "")
	key, err := parseKey(name, root.SelectAttrValue(attrVersion, ""))
	if err != nil {
		return nil, fmt.Errorf("schema %q: %w", name, err)
	}

	header := &domain.SchemaHeader{
		Key:     key,
		Alias:   aliasOf(root),
		Dynamic: isDynamic(root),
	}
	for _, el := range root.SelectElements(tagReference) {
		refName := el.SelectAttrValue(attrName, "")
		ref, err := parseKey(refName, el.SelectAttrValue(attrVersion, ""))
		if err != nil {
			return nil, fmt.Errorf("schema %s reference %q: %w", key, refName, err)
		}
		header.References = append(header.References, ref)
	}
	return header, nil
}

// parseKey builds a key from attribute text. Legacy two-part versions
// are normalised, and a version with unparseable components is rejected.
func parseKey(name, version string) (domain.VersionKey, error) {
	if strings.TrimSpace(name) == "" {
		return domain.VersionKey{}, fmt.Errorf("%w: missing schema name", domain.ErrInvalidInput)
	}
	return domain.ParseVersionKey(name, version)
}

// aliasOf returns the EC3 alias, falling back to the EC2 namespace prefix.
func aliasOf(root *etree.Element) string {
	if alias := root.SelectAttrValue(attrAlias, ""); alias != "" {
		return alias
	}
	return root.SelectAttrValue(attrPrefix, "")
}

// isDynamic reports whether the schema-level custom attributes carry the marker.
func isDynamic(root *etree.Element) bool {
	for _, ca := range root.SelectElements(tagCustomAttributes) {
		if ca.SelectElement(tagDynamicSchema) != nil {
			return true
		}
	}
	return false
}
