package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ecaudit/internal/adapters/driven/ecxml"
	"github.com/custodia-labs/ecaudit/internal/adapters/driven/fsys"
	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

func TestParseSchemaFileName(t *testing.T) {
	tests := []struct {
		stem string
		want domain.VersionKey
		ok   bool
	}{
		{"Formats.01.00.01", domain.MustVersionKey("Formats", 1, 0, 1), true},
		{"Formats.01.03", domain.MustVersionKey("Formats", 1, 0, 3), true},
		{"Bis.Core.01.00.16", domain.MustVersionKey("Bis.Core", 1, 0, 16), true},
		{"Formats", domain.VersionKey{}, false},
		{"Formats.01", domain.VersionKey{}, false},
		{"Formats.v1.00", domain.VersionKey{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.stem, func(t *testing.T) {
			got, ok := ParseSchemaFileName(tt.stem)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLocater_Candidates(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "first")
	second := filepath.Join(root, "second")
	writeSchema(t, first, "Formats.01.00.01.ecschema.xml", schemaXML("Formats", "01.00.01", "f", ""))
	writeSchema(t, second, "Formats.01.00.02.ecschema.xml", schemaXML("Formats", "01.00.02", "f", ""))
	writeSchema(t, second, "Formats.01.00.01.ecschema.xml", schemaXML("Formats", "01.00.01", "f", ""))
	writeSchema(t, second, "Formats.02.00.00.ecschema.xml", schemaXML("Formats", "02.00.00", "f", ""))
	writeSchema(t, second, "Units.01.00.01.ecschema.xml", schemaXML("Units", "01.00.01", "u", ""))
	writeSchema(t, second, "notes.txt", "not a schema")

	fs := fsys.New()
	locater := NewLocater(fs, ecxml.HeaderReader{})
	dirs := []string{first, second}
	target := domain.MustVersionKey("Formats", 1, 0, 1)
	ctx := context.Background()

	t.Run("exact prefers earliest directory", func(t *testing.T) {
		got := locater.Candidates(ctx, target, domain.MatchExact, dirs)
		require.Len(t, got, 2)
		assert.Equal(t, 0, got[0].DirIndex)
		assert.Equal(t, 1, got[1].DirIndex)
	})

	t.Run("latest prefers highest version", func(t *testing.T) {
		got := locater.Candidates(ctx, target, domain.MatchLatest, dirs)
		require.Len(t, got, 4)
		assert.Equal(t, domain.NewVersion(2, 0, 0), got[0].Key.Version)
	})

	t.Run("write compatible stays within read version", func(t *testing.T) {
		got := locater.Candidates(ctx, target, domain.MatchLatestWriteCompatible, dirs)
		require.Len(t, got, 3)
		assert.Equal(t, domain.NewVersion(1, 0, 2), got[0].Key.Version)
	})

	t.Run("missing directory is skipped", func(t *testing.T) {
		got := locater.Candidates(ctx, target, domain.MatchExact, []string{filepath.Join(root, "nope"), first})
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].DirIndex)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.Empty(t, locater.Candidates(cancelled, target, domain.MatchLatest, dirs))
	})

	t.Run("dirs are not modified", func(t *testing.T) {
		before := append([]string(nil), dirs...)
		locater.Candidates(ctx, target, domain.MatchLatest, dirs)
		assert.Equal(t, before, dirs)
	})
}

func TestLocater_Locate(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, "Formats.01.00.01.ecschema.xml", schemaXML("Formats", "01.00.01", "f", ""))
	locater := NewLocater(fsys.New(), ecxml.HeaderReader{})
	ctx := context.Background()

	t.Run("loads content of the best match", func(t *testing.T) {
		got, ok := locater.Locate(ctx, domain.MustVersionKey("Formats", 1, 0, 0), domain.MatchLatestWriteCompatible, []string{dir})
		require.True(t, ok)
		assert.Equal(t, path, got.Path)
		assert.Contains(t, string(got.Raw), `schemaName="Formats"`)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := locater.Locate(ctx, domain.MustVersionKey("Formats", 1, 0, 0), domain.MatchExact, []string{dir})
		assert.False(t, ok)
	})

	t.Run("unreadable file is not found", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root can read any file")
		}
		locked := t.TempDir()
		p := writeSchema(t, locked, "Units.01.00.00.ecschema.xml", schemaXML("Units", "01.00.00", "u", ""))
		require.NoError(t, os.Chmod(p, 0))
		_, ok := locater.Locate(ctx, domain.MustVersionKey("Units", 1, 0, 0), domain.MatchExact, []string{locked})
		assert.False(t, ok)
	})
}

func TestLocater_UnversionedFileName(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "Formats.ecschema.xml", schemaXML("Formats", "01.00.04", "f", ""))
	writeSchema(t, dir, "Other.ecschema.xml", schemaXML("Formats", "01.00.09", "f", ""))
	ctx := context.Background()
	target := domain.MustVersionKey("Formats", 1, 0, 0)

	t.Run("version read from header", func(t *testing.T) {
		locater := NewLocater(fsys.New(), ecxml.HeaderReader{})
		got := locater.Candidates(ctx, target, domain.MatchLatest, []string{dir})
		require.Len(t, got, 1)
		assert.Equal(t, domain.NewVersion(1, 0, 4), got[0].Key.Version)
	})

	t.Run("ignored without a header reader", func(t *testing.T) {
		locater := NewLocater(fsys.New(), nil)
		assert.Empty(t, locater.Candidates(ctx, target, domain.MatchLatest, []string{dir}))
	})
}
