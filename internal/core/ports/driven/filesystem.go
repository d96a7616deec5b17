package driven

// FileSystem abstracts the directory and file access the core needs.
// Directory walking itself belongs to the adapter.
type FileSystem interface {
	// ReadDir returns the full paths of regular files directly inside dir, sorted by name.
	ReadDir(dir string) ([]string, error)

	// ReadFile returns the content of a file.
	ReadFile(path string) ([]byte, error)

	// Discover returns every file under root whose name ends with suffix,
	// compared case-insensitively, sorted by path. A file root is returned as-is.
	Discover(root, suffix string) ([]string, error)

	// IsDir reports whether path exists and is a directory.
	IsDir(path string) (bool, error)
}
