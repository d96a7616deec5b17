package domain

// SchemaFileSuffix is the file extension of schema documents.
const SchemaFileSuffix = ".ecschema.xml"

// FileCandidate is a schema file whose name or header encodes a VersionKey.
// Candidates are transient and owned by the Locater call that produced them.
type FileCandidate struct {
	Key  VersionKey
	Path string

	// Raw holds the file content. Only set on the candidate a Locater selects.
	Raw []byte

	// DirIndex is the position of the search directory the file was found in.
	DirIndex int
}

// ReferenceEdge is a declared reference between two schemas.
type ReferenceEdge struct {
	From VersionKey
	To   VersionKey
}

// SchemaHeader is the part of a schema document needed for resolution.
// It is read without deserializing the whole document.
type SchemaHeader struct {
	Key        VersionKey
	Alias      string
	References []VersionKey

	// Dynamic is set when the document carries the dynamic schema marker.
	Dynamic bool
}

// Edges returns one edge per declared reference.
func (h *SchemaHeader) Edges() []ReferenceEdge {
	edges := make([]ReferenceEdge, 0, len(h.References))
	for _, ref := range h.References {
		edges = append(edges, ReferenceEdge{From: h.Key, To: ref})
	}
	return edges
}

// SchemaDocument is a deserialized schema. The concrete type belongs to
// the deserializer; the core only needs identity and references.
type SchemaDocument interface {
	Key() VersionKey
	References() []VersionKey
	Dynamic() bool
}

// ResolvedSchema is one node of a resolution pass.
// It is created once per unique key and shared by every schema referencing it.
type ResolvedSchema struct {
	Key  VersionKey
	Path string

	// References are the declared reference keys, as written in the document.
	References []VersionKey

	// Dependencies are the schemas the references resolved to, in declaration order.
	Dependencies []*ResolvedSchema

	Dynamic  bool
	Document SchemaDocument
}

// ReferencePaths returns the file paths of the transitive dependency closure,
// in dependency order and without duplicates.
func (s *ResolvedSchema) ReferencePaths() []string {
	seen := make(map[string]bool)
	var paths []string
	var walk func(*ResolvedSchema)
	walk = func(node *ResolvedSchema) {
		for _, dep := range node.Dependencies {
			if seen[dep.Key.ID()] {
				continue
			}
			seen[dep.Key.ID()] = true
			walk(dep)
			paths = append(paths, dep.Path)
		}
	}
	walk(s)
	return paths
}

// Severity classifies a rule checker diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is one rule checker finding.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message"`
}

// CompareEntryKind tags a comparer output entry.
type CompareEntryKind string

const (
	EntryDelta   CompareEntryKind = "delta"
	EntryError   CompareEntryKind = "error"
	EntryMessage CompareEntryKind = "message"
)

// Reference-only delta codes. A difference limited to these is a warning.
const (
	CodeSchemaReferenceDelta        = "SchemaReferenceDelta"
	CodeSchemaReferenceVersionDelta = "SchemaReferenceVersionDelta"
)

// ReferenceOnlyCodes lists the delta codes classified as reference-only.
var ReferenceOnlyCodes = map[string]bool{
	CodeSchemaReferenceDelta:        true,
	CodeSchemaReferenceVersionDelta: true,
}

// CompareEntry is one comparer output entry.
type CompareEntry struct {
	Kind    CompareEntryKind `json:"kind"`
	Code    string           `json:"code,omitempty"`
	Item    string           `json:"item,omitempty"`
	Message string           `json:"message"`
}

// ReferenceOnly reports whether the entry is a reference-only delta.
func (e CompareEntry) ReferenceOnly() bool {
	return e.Kind == EntryDelta && ReferenceOnlyCodes[e.Code]
}

// InventoryEntry is one row of the approval inventory.
type InventoryEntry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Released bool   `json:"released"`
	Approved bool   `json:"approved"`
	Verified bool   `json:"verified"`
	Checksum string `json:"checksum,omitempty"`
	Path     string `json:"path,omitempty"`
	Comment  string `json:"comment,omitempty"`
}
