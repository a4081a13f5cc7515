package annotate

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/franz/autotag/internal/model"
	"github.com/franz/autotag/internal/report"
	"github.com/franz/autotag/internal/store"
)

type fakeBackend struct {
	tags  string
	desc  string
	err   error
	calls atomic.Int64
}

func (f *fakeBackend) GenerateTags(ctx context.Context, img []byte, count int) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.tags, nil
}

func (f *fakeBackend) GenerateDescription(ctx context.Context, img []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.desc, nil
}

func (f *fakeBackend) Name() string { return "fake-model" }

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeTestImages(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 99, A: 255})
		}
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
		paths = append(paths, path)
	}
	return paths
}

func TestRunTagsImages(t *testing.T) {
	db := openTestStore(t)
	backend := &fakeBackend{tags: "cat,whiskers,sofa"}
	paths := writeTestImages(t, "a.png", "b.png")

	a := New(&Config{
		Store:       db,
		Backend:     backend,
		Logger:      report.NullLogger(),
		Concurrency: 2,
		TagCount:    5,
	})

	result, err := a.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 0 || result.Skipped != 0 {
		t.Errorf("unexpected result: %+v", result)
	}

	records, err := db.GetRecordsByStatus(store.StatusSuccess)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 success records, got %d", len(records))
	}

	rec := records[0]
	if rec.Tags != "cat,whiskers,sofa" || rec.TagCount != 3 {
		t.Errorf("unexpected tags: %q (count %d)", rec.Tags, rec.TagCount)
	}
	if rec.OriginalWidth != 64 || rec.OriginalHeight != 48 {
		t.Errorf("unexpected dimensions: %dx%d", rec.OriginalWidth, rec.OriginalHeight)
	}
	if rec.ImageFormat != "png" || rec.ModelName != "fake-model" {
		t.Errorf("unexpected metadata: %q %q", rec.ImageFormat, rec.ModelName)
	}
}

func TestRunSkipsProcessed(t *testing.T) {
	db := openTestStore(t)
	backend := &fakeBackend{tags: "cat"}
	paths := writeTestImages(t, "a.png")

	cfg := &Config{Store: db, Backend: backend, Logger: report.NullLogger()}

	a := New(cfg)
	if _, err := a.Run(context.Background(), paths); err != nil {
		t.Fatal(err)
	}
	if got := backend.calls.Load(); got != 1 {
		t.Fatalf("expected 1 model call, got %d", got)
	}

	// Second run hits the cache
	result, err := New(cfg).Run(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped != 1 || backend.calls.Load() != 1 {
		t.Errorf("expected cached skip, got %+v (%d calls)", result, backend.calls.Load())
	}

	// Force reprocesses
	cfg.Force = true
	result, err = New(cfg).Run(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 1 || backend.calls.Load() != 2 {
		t.Errorf("force should reprocess, got %+v (%d calls)", result, backend.calls.Load())
	}
}

func TestRunRecordsModelFailure(t *testing.T) {
	db := openTestStore(t)
	backend := &fakeBackend{
		err: &model.APIError{Kind: model.KindTimeout, Detail: "API request timed out"},
	}
	paths := writeTestImages(t, "a.png")

	a := New(&Config{Store: db, Backend: backend, Logger: report.NullLogger()})
	result, err := a.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("run itself should not fail: %v", err)
	}
	if result.Failed != 1 || len(result.Errors) != 1 {
		t.Errorf("expected 1 failure, got %+v", result)
	}

	records, _ := db.GetRecordsByStatus(store.StatusFailed)
	if len(records) != 1 {
		t.Fatalf("expected 1 failed record, got %d", len(records))
	}
	if !strings.HasPrefix(records[0].ErrorMessage, "[TIMEOUT]") {
		t.Errorf("expected structured error message, got %q", records[0].ErrorMessage)
	}
	if records[0].TagCount != 0 {
		t.Errorf("failed record should have no tags, got %d", records[0].TagCount)
	}
}

func TestRunNonImageFile(t *testing.T) {
	db := openTestStore(t)
	backend := &fakeBackend{tags: "cat"}

	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := New(&Config{Store: db, Backend: backend, Logger: report.NullLogger()})
	result, err := a.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 1 {
		t.Errorf("undecodable file should fail, got %+v", result)
	}
	if backend.calls.Load() != 0 {
		t.Error("model must not be called for undecodable files")
	}
}

func TestRunWithDescription(t *testing.T) {
	db := openTestStore(t)
	backend := &fakeBackend{tags: "beach,sand", desc: "A sandy beach."}
	paths := writeTestImages(t, "a.png")

	a := New(&Config{
		Store:           db,
		Backend:         backend,
		Logger:          report.NullLogger(),
		WithDescription: true,
	})
	if _, err := a.Run(context.Background(), paths); err != nil {
		t.Fatal(err)
	}

	records, _ := db.GetRecordsByStatus(store.StatusSuccess)
	if len(records) != 1 || records[0].Description != "A sandy beach." {
		t.Errorf("expected stored description, got %+v", records)
	}
}

func TestRunTruncatesToRequestedCount(t *testing.T) {
	db := openTestStore(t)
	backend := &fakeBackend{tags: "a,b,c,d,e,f"}
	paths := writeTestImages(t, "a.png")

	a := New(&Config{Store: db, Backend: backend, Logger: report.NullLogger(), TagCount: 3})
	if _, err := a.Run(context.Background(), paths); err != nil {
		t.Fatal(err)
	}

	records, _ := db.GetRecordsByStatus(store.StatusSuccess)
	if len(records) != 1 {
		t.Fatal("expected one record")
	}
	if records[0].Tags != "a,b,c" || records[0].TagCount != 3 {
		t.Errorf("expected truncation to 3 tags, got %q", records[0].Tags)
	}
}
