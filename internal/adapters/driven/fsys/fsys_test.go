package fsys

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("<ECSchema/>"), 0644))
}

func TestFileSystem_ReadDir(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.ecschema.xml"))
	touch(t, filepath.Join(dir, "a.ecschema.xml"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	paths, err := New().ReadDir(dir)

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.ecschema.xml"),
		filepath.Join(dir, "b.ecschema.xml"),
	}, paths)

	_, err = New().ReadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestFileSystem_Discover(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Units.01.00.00.ecschema.xml"))
	touch(t, filepath.Join(root, "nested", "deep", "Formats.ECSCHEMA.XML"))
	touch(t, filepath.Join(root, "nested", "readme.md"))
	touch(t, filepath.Join(root, ".git", "Hidden.ecschema.xml"))
	touch(t, filepath.Join(root, "node_modules", "Pkg.ecschema.xml"))
	touch(t, filepath.Join(root, ".Dot.ecschema.xml"))

	paths, err := New().Discover(root, ".ecschema.xml")

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "Units.01.00.00.ecschema.xml"),
		filepath.Join(root, "nested", "deep", "Formats.ECSCHEMA.XML"),
	}, paths)
}

func TestFileSystem_Discover_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A.ecschema.xml")
	touch(t, path)

	paths, err := New().Discover(path, ".ecschema.xml")

	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths)

	_, err = New().Discover(filepath.Join(t.TempDir(), "missing"), ".ecschema.xml")
	assert.Error(t, err)
}

func TestFileSystem_IsDirAndReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.ecschema.xml")
	touch(t, path)
	fs := New()

	isDir, err := fs.IsDir(dir)
	require.NoError(t, err)
	assert.True(t, isDir)

	isDir, err = fs.IsDir(path)
	require.NoError(t, err)
	assert.False(t, isDir)

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<ECSchema/>", string(data))
}

func TestHasSuffixFold(t *testing.T) {
	assert.True(t, HasSuffixFold("A.ecschema.xml", ".ecschema.xml"))
	assert.True(t, HasSuffixFold("A.ECSchema.XML", ".ecschema.xml"))
	assert.False(t, HasSuffixFold("A.xml", ".ecschema.xml"))
	assert.False(t, HasSuffixFold("xml", ".ecschema.xml"))
}

func TestWatcher_Relevant(t *testing.T) {
	w := NewWatcher(".ecschema.xml")

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"schema write", fsnotify.Event{Name: "/s/A.ecschema.xml", Op: fsnotify.Write}, true},
		{"schema remove", fsnotify.Event{Name: "/s/A.ecschema.xml", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: "/s/A.ecschema.xml", Op: fsnotify.Chmod}, false},
		{"hidden file", fsnotify.Event{Name: "/s/.A.ecschema.xml", Op: fsnotify.Write}, false},
		{"other file", fsnotify.Event{Name: "/s/notes.txt", Op: fsnotify.Create}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.event))
		})
	}
}

func TestWatcher_ReportsBatches(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(".ecschema.xml")
	w.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx, []string{dir})
	require.NoError(t, err)

	path := filepath.Join(dir, "A.01.00.00.ecschema.xml")
	touch(t, path)
	touch(t, filepath.Join(dir, "ignored.txt"))

	select {
	case batch := <-changes:
		assert.Contains(t, batch, path)
		assert.NotContains(t, batch, filepath.Join(dir, "ignored.txt"))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
	}

	cancel()
	for range changes {
	}
}

func TestWatcher_MissingRoot(t *testing.T) {
	_, err := NewWatcher(".ecschema.xml").Watch(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}
