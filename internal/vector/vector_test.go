package vector

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/franz/autotag/internal/report"
	"github.com/franz/autotag/internal/store"
)

// fixedEmbedder maps known words onto fixed vectors so similarity is
// deterministic
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fixedEmbedder) Model() string  { return "fixed" }
func (f *fixedEmbedder) Dimension() int { return 3 }

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertSuccess(t *testing.T, db *store.Store, uniqueID, path, tags string) *store.TagRecord {
	t.Helper()
	rec := &store.TagRecord{
		UniqueID:  uniqueID,
		Path:      path,
		Tags:      tags,
		ModelName: "test-model",
		TagCount:  1,
		Status:    store.StatusSuccess,
		Language:  "en",
	}
	if err := db.UpsertRecord(rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{1, 0}, []float32{0, 0}, 0},
		{[]float32{1, 0}, []float32{1, 0, 0}, 0}, // dimension mismatch
		{nil, nil, 0},
	}

	for _, tc := range cases {
		got := cosineSimilarity(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("cosineSimilarity(%v, %v) = %f, want %f", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestBuildAndSearch(t *testing.T) {
	db := openTestStore(t)
	insertSuccess(t, db, "id1", "/img/cat.jpg", "cat")
	insertSuccess(t, db, "id2", "/img/car.jpg", "car")

	emb := &fixedEmbedder{vectors: map[string][]float32{
		"cat":    {1, 0, 0},
		"car":    {0, 1, 0},
		"kitten": {0.9, 0.1, 0},
	}}

	ix := NewIndex(db, emb, report.NullLogger())

	result, err := ix.Build(context.Background())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if result.Embedded != 2 || result.Failed != 0 {
		t.Errorf("unexpected build result: %+v", result)
	}

	count, _ := db.CountEmbeddings()
	if count != 2 {
		t.Fatalf("expected 2 stored embeddings, got %d", count)
	}

	hits, err := ix.Search(context.Background(), "kitten", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("only cat clears the threshold for kitten, got %d hits", len(hits))
	}
	if hits[0].Record.UniqueID != "id1" {
		t.Errorf("expected id1, got %s", hits[0].Record.UniqueID)
	}
	if hits[0].Score < SimilarityThreshold {
		t.Errorf("hit below threshold: %f", hits[0].Score)
	}
}

func TestSearchTopK(t *testing.T) {
	db := openTestStore(t)
	emb := &fixedEmbedder{vectors: map[string][]float32{}}

	// Ten records all embedding to the same vector as the query
	for i := 0; i < 10; i++ {
		rec := insertSuccess(t, db, string(rune('a'+i)), "/img/x.jpg", "cat")
		db.UpsertEmbedding(&store.Embedding{
			ImageID:  rec.ID,
			UniqueID: rec.UniqueID,
			Model:    "fixed",
			Vector:   []float32{0, 0, 1},
		})
	}

	ix := NewIndex(db, emb, report.NullLogger())
	hits, err := ix.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Errorf("expected k=3 hits, got %d", len(hits))
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	db := openTestStore(t)
	insertSuccess(t, db, "id1", "/img/cat.jpg", "cat")

	emb := &fixedEmbedder{vectors: map[string][]float32{"cat": {1, 0, 0}}}
	ix := NewIndex(db, emb, report.NullLogger())

	for i := 0; i < 2; i++ {
		if _, err := ix.Build(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	count, _ := db.CountEmbeddings()
	if count != 1 {
		t.Errorf("rebuild must not duplicate embeddings, got %d", count)
	}
}

func TestOllamaEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "all-minilm" || req.Prompt == "" {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(embeddingResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer server.Close()
	t.Setenv("OLLAMA_HOST", server.URL)

	e := NewOllamaEmbedder("", 3)
	vec, err := e.Embed(context.Background(), "cat sitting on a sofa")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("unexpected vector: %v", vec)
	}
}

func TestOllamaEmbedderBlankText(t *testing.T) {
	// No server: blank text must not make a network call
	t.Setenv("OLLAMA_HOST", "http://127.0.0.1:1")

	e := NewOllamaEmbedder("m", 4)
	vec, err := e.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("blank text should embed locally: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("expected zero vector of dim 4, got %v", vec)
	}
	for _, f := range vec {
		if f != 0 {
			t.Errorf("expected zero vector, got %v", vec)
		}
	}
}
