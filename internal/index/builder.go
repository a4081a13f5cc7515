// Package index maintains the search structures derived from tag
// records: an inverted tag index and an FTS5 table for free-text
// queries. Both are derived data and are rebuilt from image_tags
// rather than updated incrementally.
package index

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/franz/autotag/internal/report"
	"github.com/franz/autotag/internal/store"
	"github.com/franz/autotag/internal/util"
)

// Builder rebuilds the tag index and full-text table
type Builder struct {
	store  *store.Store
	logger *report.EventLogger
}

// NewBuilder creates a Builder
func NewBuilder(db *store.Store, logger *report.EventLogger) *Builder {
	return &Builder{store: db, logger: logger}
}

// Result holds rebuild statistics
type Result struct {
	Records    int
	TagEntries int
	Duration   time.Duration
}

// Rebuild drops and repopulates both search structures from all
// successful records in a single transaction. Readers either see the
// old index or the new one, never a partial rebuild.
//
// Rebuild does not touch index_status; callers mark records indexed
// once the rebuild has committed.
func (b *Builder) Rebuild() (*Result, error) {
	start := time.Now()
	result := &Result{}

	records, err := b.store.GetRecordsByStatus(store.StatusSuccess)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	result.Records = len(records)

	err = b.store.Transaction(func(tx *sql.Tx) error {
		if err := rebuildTagIndex(tx, records, result); err != nil {
			return err
		}
		return rebuildFulltext(tx)
	})

	result.Duration = time.Since(start)
	b.logger.LogIndex(result.TagEntries, result.Duration, err)

	if err != nil {
		return nil, fmt.Errorf("index rebuild failed: %w", err)
	}

	util.DebugLog("Index rebuilt: %d records, %d tag entries in %s",
		result.Records, result.TagEntries, result.Duration.Round(time.Millisecond))
	return result, nil
}

// rebuildTagIndex repopulates the inverted tag table. The UNIQUE
// constraint plus INSERT OR IGNORE collapses duplicate tags within one
// record's tag list.
func rebuildTagIndex(tx *sql.Tx, records []*store.TagRecord, result *Result) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS tag_index (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tag TEXT NOT NULL,
			image_id INTEGER NOT NULL,
			UNIQUE(tag, image_id)
		)`); err != nil {
		return fmt.Errorf("failed to create tag_index: %w", err)
	}
	if _, err := tx.Exec(
		"CREATE INDEX IF NOT EXISTS idx_tag_index_tag ON tag_index(tag)"); err != nil {
		return fmt.Errorf("failed to create tag_index index: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM tag_index"); err != nil {
		return fmt.Errorf("failed to clear tag_index: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT OR IGNORE INTO tag_index (tag, image_id) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		for _, tag := range rec.TagList() {
			res, err := stmt.Exec(tag, rec.ID)
			if err != nil {
				return fmt.Errorf("failed to index tag %q: %w", tag, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				result.TagEntries++
			}
		}
	}
	return nil
}

// rebuildFulltext drops and recreates the FTS5 table. Rowids mirror
// image_tags.id so search hits join straight back to their records.
func rebuildFulltext(tx *sql.Tx) error {
	if _, err := tx.Exec("DROP TABLE IF EXISTS image_fts"); err != nil {
		return fmt.Errorf("failed to drop image_fts: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE VIRTUAL TABLE image_fts USING fts5(
			tags, description, tokenize='unicode61'
		)`); err != nil {
		return fmt.Errorf("failed to create image_fts: %w", err)
	}

	// Commas become spaces so each tag is its own token
	if _, err := tx.Exec(`
		INSERT INTO image_fts (rowid, tags, description)
		SELECT id, REPLACE(tags, ',', ' '), COALESCE(description, '')
		FROM image_tags WHERE status = ?`, store.StatusSuccess); err != nil {
		return fmt.Errorf("failed to populate image_fts: %w", err)
	}
	return nil
}
