package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ecaudit/internal/adapters/driven/ecxml"
	"github.com/custodia-labs/ecaudit/internal/adapters/driven/fsys"
)

// schemaRef is a reference written into a generated schema document.
type schemaRef struct {
	name, version, alias string
}

func ref(name, version, alias string) schemaRef {
	return schemaRef{name: name, version: version, alias: alias}
}

// schemaXML renders a minimal schema document. body is inserted after the references.
func schemaXML(name, version, alias, body string, refs ...schemaRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<ECSchema schemaName=%q alias=%q version=%q xmlns="http://www.bentley.com/schemas/Bentley.ECXML.3.2">
`, name, alias, version)
	for _, r := range refs {
		fmt.Fprintf(&b, "    <ECSchemaReference name=%q version=%q alias=%q/>\n", r.name, r.version, r.alias)
	}
	b.WriteString(body)
	b.WriteString("</ECSchema>\n")
	return b.String()
}

func writeSchema(t *testing.T, dir, file, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestResolver() *Resolver {
	fs := fsys.New()
	return NewResolver(fs, NewLocater(fs, ecxml.HeaderReader{}), ecxml.NewHost())
}
