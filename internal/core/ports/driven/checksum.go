package driven

import "context"

// ChecksumTool computes the content checksum recorded in the inventory.
type ChecksumTool interface {
	// Hash returns a hex digest of the schema at schemaPath after its
	// references are normalised against refPaths. includeSelfPath adds the
	// schema's own file to the reference set.
	Hash(ctx context.Context, schemaPath string, refPaths []string, includeSelfPath bool) (string, error)
}
