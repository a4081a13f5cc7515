package util

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestUniqueIDDeterministic(t *testing.T) {
	a := UniqueID("/photos/cat.jpg")
	b := UniqueID("/photos/cat.jpg")

	if a != b {
		t.Errorf("same path produced different IDs: %s vs %s", a, b)
	}
}

func TestUniqueIDRelativeForms(t *testing.T) {
	// Different relative spellings of the same file must resolve to
	// the same identifier.
	abs := UniqueID("/photos/album/cat.jpg")
	dotted := UniqueID("/photos/album/../album/./cat.jpg")

	if abs != dotted {
		t.Errorf("equivalent paths produced different IDs: %s vs %s", abs, dotted)
	}
}

func TestUniqueIDDistinctPaths(t *testing.T) {
	paths := []string{
		"/photos/cat.jpg",
		"/photos/dog.jpg",
		"/photos/cat.png",
		"/archive/cat.jpg",
	}

	seen := make(map[string]string)
	for _, p := range paths {
		id := UniqueID(p)
		if prior, ok := seen[id]; ok {
			t.Errorf("paths %s and %s collided on ID %s", prior, p, id)
		}
		seen[id] = p
	}
}

func TestUniqueIDNonexistentPath(t *testing.T) {
	// Resolution is lexical; the file does not need to exist.
	id := UniqueID("/does/not/exist/anywhere.webp")
	if len(id) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(id))
	}
	if strings.ToLower(id) != id {
		t.Errorf("expected lowercase hex digest, got %s", id)
	}
}

func TestUniqueIDRelativeMatchesAbsolute(t *testing.T) {
	wd, err := filepath.Abs(".")
	if err != nil {
		t.Skip("working directory unavailable")
	}

	rel := UniqueID("cat.jpg")
	abs := UniqueID(filepath.Join(wd, "cat.jpg"))

	if rel != abs {
		t.Errorf("relative path did not resolve against the working directory")
	}
}
