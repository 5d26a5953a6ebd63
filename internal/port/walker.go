package port

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	RelPath string
	ModTime int64
	Size    int64
}

// DocumentLoader extracts title and plain text from a file. Supports reports
// whether Load can read the file's format.
type DocumentLoader interface {
	Supports(path string) bool
	Load(path string) (title, text string, err error)
}
