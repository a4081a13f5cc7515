package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/franz/autotag/internal/report"
	"github.com/franz/autotag/internal/store"
	"github.com/franz/autotag/internal/util"
)

const (
	// DefaultTopK is the result count when the caller does not specify one
	DefaultTopK = 10
	// MaxTopK caps the result count
	MaxTopK = 100
	// SimilarityThreshold is the minimum cosine similarity for a hit
	SimilarityThreshold = 0.5
)

// Index builds and queries the stored tag embeddings
type Index struct {
	store    *store.Store
	embedder Embedder
	logger   *report.EventLogger
}

// NewIndex creates an Index
func NewIndex(db *store.Store, embedder Embedder, logger *report.EventLogger) *Index {
	return &Index{store: db, embedder: embedder, logger: logger}
}

// BuildResult holds embedding-build statistics
type BuildResult struct {
	Embedded int
	Failed   int
	Duration time.Duration
}

// Build embeds every successful record's tag text and stores the
// vectors. Records are re-embedded unconditionally; the upsert makes
// repeated builds idempotent.
func (ix *Index) Build(ctx context.Context) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{}

	records, err := ix.store.GetRecordsByStatus(store.StatusSuccess)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		vec, err := ix.embedder.Embed(ctx, embeddingText(rec))
		ix.logger.LogEmbed(rec.UniqueID, rec.Path, ix.embedder.Model(), len(vec), err)
		if err != nil {
			result.Failed++
			util.WarnLog("Failed to embed %s: %v", rec.Path, err)
			continue
		}

		if err := ix.store.UpsertEmbedding(&store.Embedding{
			ImageID:  rec.ID,
			UniqueID: rec.UniqueID,
			Model:    ix.embedder.Model(),
			Vector:   vec,
		}); err != nil {
			result.Failed++
			util.WarnLog("Failed to store embedding for %s: %v", rec.Path, err)
			continue
		}
		result.Embedded++
	}

	result.Duration = time.Since(start)
	util.DebugLog("Embedded %d records (%d failed) in %s",
		result.Embedded, result.Failed, result.Duration.Round(time.Millisecond))
	return result, nil
}

// embeddingText is the text embedded per record: tags as words plus
// the description when present
func embeddingText(rec *store.TagRecord) string {
	text := strings.ReplaceAll(rec.Tags, ",", " ")
	if rec.Description != "" {
		text += " " + rec.Description
	}
	return text
}

// Hit is one semantic search result
type Hit struct {
	Record *store.TagRecord
	Score  float64
}

// Search embeds the query and returns the k most similar records above
// the similarity threshold, best first
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if k > MaxTopK {
		k = MaxTopK
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	embeddings, err := ix.store.GetAllEmbeddings()
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	type scored struct {
		imageID int64
		score   float64
	}
	var candidates []scored
	for _, e := range embeddings {
		score := cosineSimilarity(queryVec, e.Vector)
		if score >= SimilarityThreshold {
			candidates = append(candidates, scored{imageID: e.ImageID, score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		rec, err := ix.store.GetRecordByID(c.imageID)
		if err != nil {
			return nil, fmt.Errorf("failed to load record %d: %w", c.imageID, err)
		}
		if rec == nil {
			continue // Embedding outlived its record
		}
		hits = append(hits, Hit{Record: rec, Score: c.score})
	}
	return hits, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched dimensions and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
