package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.jpg"))
	touch(t, filepath.Join(dir, "a.PNG"))
	touch(t, filepath.Join(dir, "sub", "c.webp"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, ".thumbnails", "d.jpg"))

	s := New(nil)
	paths, err := s.Discover(context.Background(), dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if len(paths) != 3 {
		t.Fatalf("expected 3 images, got %d: %v", len(paths), paths)
	}
	// Sorted order
	for i := 1; i < len(paths); i++ {
		if paths[i-1] > paths[i] {
			t.Errorf("paths not sorted: %v", paths)
		}
	}
	for _, p := range paths {
		if filepath.Base(p) == "d.jpg" {
			t.Error("hidden directory should be skipped")
		}
	}
}

func TestDiscoverSingleFile(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "photo.jpeg")
	touch(t, img)

	s := New(nil)
	paths, err := s.Discover(context.Background(), img)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != img {
		t.Errorf("expected [%s], got %v", img, paths)
	}

	txt := filepath.Join(dir, "notes.txt")
	touch(t, txt)
	if _, err := s.Discover(context.Background(), txt); err == nil {
		t.Error("expected error for unsupported single file")
	}
}

func TestDiscoverMissingPath(t *testing.T) {
	s := New(nil)
	if _, err := s.Discover(context.Background(), "/nonexistent/dir"); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestAdditionalExtensions(t *testing.T) {
	s := New(&Config{AdditionalExts: []string{"tiff", ".HEIC"}})

	if !s.IsImageFile("x.tiff") {
		t.Error("expected .tiff to be supported")
	}
	if !s.IsImageFile("x.heic") {
		t.Error("expected .heic to be supported case-insensitively")
	}
	if s.IsImageFile("x.txt") {
		t.Error(".txt must not be supported")
	}
}
