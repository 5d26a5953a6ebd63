package fs

import (
	iofs "io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"ragquery/internal/port"
)

// Walker lists knowledge-base files under a root. A file is returned when its
// slash-separated path relative to root matches an include glob and no
// exclude glob. Directories matching an exclude glob are not descended.
// Empty files and symlinks are skipped.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Walk returns matching files ordered by relative path.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []port.FileInfo
	err = filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			if matchAny(w.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		case !d.Type().IsRegular():
			return nil
		case !matchAny(w.includes, rel) || matchAny(w.excludes, rel):
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			return nil
		}

		files = append(files, port.FileInfo{
			Path:    path,
			RelPath: rel,
			ModTime: info.ModTime().Unix(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// matchAny reports whether path matches one of patterns. Malformed patterns
// never match.
func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

var _ port.FileWalker = (*Walker)(nil)
