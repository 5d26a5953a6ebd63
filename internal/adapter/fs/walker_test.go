package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalker_IncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "guide.md", "# Guide")
	writeFile(t, root, "ops/runbook.txt", "runbook")
	writeFile(t, root, "ops/diagram.png", "png")
	writeFile(t, root, "node_modules/pkg/readme.md", "vendored")
	writeFile(t, root, ".ragquery/config.yaml", "x: 1")

	w := NewWalker(
		[]string{"**/*.md", "**/*.txt"},
		[]string{"**/node_modules/**", "**/.ragquery/**"},
	)

	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(files), files)
	}
	if files[0].RelPath != "guide.md" || files[1].RelPath != "ops/runbook.txt" {
		t.Errorf("unexpected files %s, %s", files[0].RelPath, files[1].RelPath)
	}
	if !filepath.IsAbs(files[0].Path) {
		t.Errorf("expected absolute path, got %s", files[0].Path)
	}
	if files[1].Size != int64(len("runbook")) {
		t.Errorf("expected size %d, got %d", len("runbook"), files[1].Size)
	}
}

func TestWalker_DefaultIncludesEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.bin", "x")
	writeFile(t, root, "sub/b.md", "y")

	files, err := NewWalker(nil, nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files, got %d", len(files))
	}
}

func TestWalker_MissingRoot(t *testing.T) {
	if _, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestWalker_SkipsEmptyFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "empty.md", "")
	writeFile(t, root, "full.md", "# Full")

	files, err := NewWalker([]string{"**/*.md"}, nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].RelPath != "full.md" {
		t.Errorf("expected only full.md, got %+v", files)
	}
}
