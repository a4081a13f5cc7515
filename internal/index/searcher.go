package index

import (
	"fmt"
	"strings"

	"github.com/franz/autotag/internal/store"
	"github.com/franz/autotag/internal/util"
)

// MatchMode controls how multi-tag searches combine their terms
type MatchMode string

const (
	MatchAny MatchMode = "any"
	MatchAll MatchMode = "all"
)

// Searcher answers queries against the built index structures
type Searcher struct {
	store *store.Store
}

// NewSearcher creates a Searcher
func NewSearcher(db *store.Store) *Searcher {
	return &Searcher{store: db}
}

// SearchByTag returns all records carrying an exact tag
func (s *Searcher) SearchByTag(tag string) ([]*store.TagRecord, error) {
	rows, err := s.store.DB().Query(`
		SELECT `+store.RecordColumns("it")+`
		FROM image_tags it
		JOIN tag_index ti ON ti.image_id = it.id
		WHERE ti.tag = ?
		ORDER BY it.id`, strings.TrimSpace(tag))
	if err != nil {
		return nil, fmt.Errorf("tag search failed: %w", err)
	}
	return store.CollectRecords(rows)
}

// SearchByTags returns records matching several exact tags. MatchAny
// returns records carrying at least one of the tags, MatchAll only
// records carrying every tag.
func (s *Searcher) SearchByTags(tags []string, mode MatchMode) ([]*store.TagRecord, error) {
	cleaned := make([]string, 0, len(tags))
	args := make([]any, 0, len(tags)+1)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		cleaned = append(cleaned, t)
		args = append(args, t)
	}
	if len(cleaned) == 0 {
		return nil, nil
	}
	if len(cleaned) == 1 {
		return s.SearchByTag(cleaned[0])
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(cleaned)), ",")

	var query string
	switch mode {
	case MatchAll:
		query = `
			SELECT ` + store.RecordColumns("it") + `
			FROM image_tags it
			JOIN tag_index ti ON ti.image_id = it.id
			WHERE ti.tag IN (` + placeholders + `)
			GROUP BY it.id
			HAVING COUNT(DISTINCT ti.tag) = ?
			ORDER BY it.id`
		args = append(args, len(cleaned))
	case MatchAny, "":
		query = `
			SELECT DISTINCT ` + store.RecordColumns("it") + `
			FROM image_tags it
			JOIN tag_index ti ON ti.image_id = it.id
			WHERE ti.tag IN (` + placeholders + `)
			ORDER BY it.id`
	default:
		return nil, fmt.Errorf("%w: unknown match mode %q", util.ErrInvalidConfig, mode)
	}

	rows, err := s.store.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("multi-tag search failed: %w", err)
	}
	return store.CollectRecords(rows)
}

// Fulltext runs an FTS5 query over tags and descriptions, best match
// first. Malformed query syntax yields no results rather than an error;
// search input is user-typed and often not valid FTS syntax.
func (s *Searcher) Fulltext(query string) ([]*store.TagRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	rows, err := s.store.DB().Query(`
		SELECT `+store.RecordColumns("it")+`
		FROM image_tags it
		JOIN image_fts f ON f.rowid = it.id
		WHERE image_fts MATCH ?
		ORDER BY f.rank`, query)
	if err != nil {
		util.DebugLog("FTS query %q rejected: %v", query, err)
		return nil, nil
	}

	records, err := store.CollectRecords(rows)
	if err != nil {
		// Malformed MATCH syntax surfaces while stepping the result set
		util.DebugLog("FTS query %q rejected: %v", query, err)
		return nil, nil
	}
	return records, nil
}

// Keyword searches by keyword: full-text first, falling back to a
// substring scan over tags when FTS finds nothing. The fallback catches
// partial words FTS tokenization cannot match.
func (s *Searcher) Keyword(keyword string) ([]*store.TagRecord, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}

	records, err := s.Fulltext(keyword)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		return records, nil
	}

	pattern := "%" + keyword + "%"
	rows, err := s.store.DB().Query(`
		SELECT `+store.RecordColumns("")+`
		FROM image_tags
		WHERE status = ? AND tags LIKE ?
		ORDER BY id`, store.StatusSuccess, pattern)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return store.CollectRecords(rows)
}

// TagCount is one tag's usage count
type TagCount struct {
	Tag   string
	Count int
}

// TagStats returns tags by descending usage. A non-positive limit
// returns all tags.
func (s *Searcher) TagStats(limit int) ([]TagCount, error) {
	query := `
		SELECT tag, COUNT(*) AS n
		FROM tag_index
		GROUP BY tag
		ORDER BY n DESC, tag`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("tag stats failed: %w", err)
	}
	defer rows.Close()

	var stats []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag stat: %w", err)
		}
		stats = append(stats, tc)
	}
	return stats, rows.Err()
}

// SimilarTags returns indexed tags containing the fragment with their
// usage counts, most used first
func (s *Searcher) SimilarTags(fragment string, limit int) ([]TagCount, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.store.DB().Query(`
		SELECT tag, COUNT(*) AS n
		FROM tag_index
		WHERE tag LIKE ?
		GROUP BY tag
		ORDER BY n DESC, tag
		LIMIT ?`, "%"+strings.TrimSpace(fragment)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("similar tag search failed: %w", err)
	}
	defer rows.Close()

	var tags []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}
