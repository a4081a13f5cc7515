package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/autotag/internal/store"
)

func TestGenerateRunSummary(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	ok := &store.TagRecord{
		UniqueID: "id1", Path: "/img/1.jpg", Tags: "cat",
		ModelName: "m", TagCount: 1, Status: store.StatusSuccess, Language: "en",
	}
	if err := db.UpsertRecord(ok); err != nil {
		t.Fatal(err)
	}
	for i, msg := range []string{"[TIMEOUT] slow", "[TIMEOUT] slow", "[PARSE_FAILED] junk"} {
		rec := &store.TagRecord{
			UniqueID: "bad" + string(rune('a'+i)), Path: "/img/bad.jpg",
			ModelName: "m", Status: store.StatusFailed, ErrorMessage: msg, Language: "en",
		}
		if err := db.UpsertRecord(rec); err != nil {
			t.Fatal(err)
		}
	}

	summary, err := GenerateRunSummary(db, "artifacts/events.jsonl")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	if summary.TotalRecords != 4 {
		t.Errorf("expected 4 records, got %d", summary.TotalRecords)
	}
	if len(summary.TopErrors) != 2 {
		t.Fatalf("expected 2 distinct errors, got %d", len(summary.TopErrors))
	}
	if summary.TopErrors[0].Error != "[TIMEOUT] slow" || summary.TopErrors[0].Count != 2 {
		t.Errorf("most frequent error first, got %+v", summary.TopErrors[0])
	}
}

func TestWriteMarkdownReport(t *testing.T) {
	summary := &RunSummary{
		ImagesProcessed: 5,
		ImagesSucceeded: 4,
		ImagesFailed:    1,
		TotalRecords:    10,
		TotalIndexed:    9,
		ModelName:       "qwen2.5vl:7b",
		TopErrors:       []ErrorSummary{{Error: "[TIMEOUT] slow", Count: 1}},
	}

	path := filepath.Join(t.TempDir(), "report", "summary.md")
	if err := WriteMarkdownReport(summary, path); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)

	for _, want := range []string{"Run Summary", "qwen2.5vl:7b", "| Succeeded | 4 |", "[TIMEOUT] slow"} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
