package ecxml

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// Ensure Document implements the interface.
var _ domain.SchemaDocument = (*Document)(nil)

// Document is a deserialized ECSchema.
type Document struct {
	header domain.SchemaHeader

	// Attrs holds the schema element's own attributes, except identity.
	Attrs map[string]string

	// Items are the schema's top-level named elements in document order.
	Items []Item

	// Loaded holds the documents this one was loaded against, by lower-case name.
	Loaded map[string]*Document
}

// Item is a top-level schema element carrying a typeName, such as a class,
// enumeration or kind of quantity.
type Item struct {
	Kind        string
	Name        string
	Attrs       map[string]string
	BaseClasses []string
	Properties  []Property
}

// Property is a property of a class item.
type Property struct {
	Kind  string
	Name  string
	Attrs map[string]string
}

// Key implements domain.SchemaDocument.
func (d *Document) Key() domain.VersionKey { return d.header.Key }

// References implements domain.SchemaDocument.
func (d *Document) References() []domain.VersionKey { return d.header.References }

// Dynamic implements domain.SchemaDocument.
func (d *Document) Dynamic() bool { return d.header.Dynamic }

// Alias returns the schema alias or EC2 namespace prefix.
func (d *Document) Alias() string { return d.header.Alias }

// Header returns a copy of the document header.
func (d *Document) Header() domain.SchemaHeader { return d.header }

// Item returns the item named name, compared case-insensitively.
func (d *Document) Item(name string) (Item, bool) {
	for _, it := range d.Items {
		if strings.EqualFold(it.Name, name) {
			return it, true
		}
	}
	return Item{}, false
}

// Parse reads a whole schema document. Referenced documents are not attached.
func Parse(raw []byte) (*Document, error) {
	root, err := parseRoot(raw)
	if err != nil {
		return nil, err
	}
	header, err := headerFrom(root)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		header: *header,
		Attrs:  attrMap(root, attrSchemaName, attrVersion, "xmlns"),
		Loaded: make(map[string]*Document),
	}
	for _, el := range root.ChildElements() {
		name := el.SelectAttrValue("typeName", "")
		if name == "" {
			continue
		}
		doc.Items = append(doc.Items, itemFrom(el, name))
	}
	return doc, nil
}

func itemFrom(el *etree.Element, name string) Item {
	it := Item{
		Kind:  el.Tag,
		Name:  name,
		Attrs: attrMap(el, "typeName"),
	}
	for _, child := range el.ChildElements() {
		switch {
		case child.Tag == "BaseClass":
			it.BaseClasses = append(it.BaseClasses, strings.TrimSpace(child.Text()))
		case strings.HasSuffix(child.Tag, "Property"):
			it.Properties = append(it.Properties, Property{
				Kind:  child.Tag,
				Name:  child.SelectAttrValue("propertyName", ""),
				Attrs: attrMap(child, "propertyName"),
			})
		}
	}
	return it
}

// attrMap collects attributes keyed by local name, skipping namespace
// declarations and the excluded keys.
func attrMap(el *etree.Element, exclude ...string) map[string]string {
	m := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		skip := false
		for _, ex := range exclude {
			if a.Key == ex {
				skip = true
				break
			}
		}
		if !skip {
			m[a.Key] = a.Value
		}
	}
	return m
}
