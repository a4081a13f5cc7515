package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/franz/autotag/internal/util"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	currentSchemaVersion = 2
)

// Store is the single source of truth for tagged images. The derived
// search structures (tag_index, image_fts) are rebuilt from it and are
// managed by the index package.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path
func Open(path string) (*Store, error) {
	// Open with pragmas for performance and reliability
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate applies database migrations
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := s.setSchemaVersion(tx, 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if version < 2 {
		// v2 columns were added after v1 shipped; tolerate databases
		// that already carry them.
		addColumnIfMissing(tx, "image_tags", "index_status TEXT DEFAULT 'not_indexed'")
		addColumnIfMissing(tx, "image_tags", "language TEXT DEFAULT 'en'")

		if _, err := tx.Exec(schemaV2); err != nil {
			return fmt.Errorf("failed to apply schema v2: %w", err)
		}
		if err := s.setSchemaVersion(tx, 2); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	// Future migrations would go here:
	// if version < 3 { ... }

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

// addColumnIfMissing adds a column, logging but tolerating the case where
// the column already exists. Schema evolution must not halt startup.
func addColumnIfMissing(tx *sql.Tx, table, columnDef string) {
	_, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, columnDef))
	if err != nil {
		if strings.Contains(err.Error(), "duplicate column name") {
			return
		}
		util.WarnLog("Schema evolution: could not add column to %s: %v", table, err)
	}
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion records a schema version in a transaction
func (s *Store) setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// Transaction executes a function within a transaction. Any error from
// the function rolls the transaction back and is returned to the caller.
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Annotation status values for TagRecord.Status
const (
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusProcessing = "processing"
)

// Index status values for TagRecord.IndexStatus. The index builder does
// not flip this flag itself; callers mark records after a build.
const (
	IndexStatusNotIndexed = "not_indexed"
	IndexStatusIndexing   = "indexing"
	IndexStatusIndexed    = "indexed"
	IndexStatusFailed     = "failed"
)

// TagRecord is one row per processed image
type TagRecord struct {
	ID             int64
	UniqueID       string
	Path           string
	Tags           string // comma-joined, ordered
	Description    string
	ModelName      string
	ImageSize      string // source dimensions, "WxH"
	TagCount       int
	GeneratedAt    time.Time
	OriginalWidth  int
	OriginalHeight int
	ImageFormat    string
	Status         string
	ErrorMessage   string
	ProcessingMs   int64
	IndexStatus    string
	Language       string
}

// TagList returns the record's tags split on commas, trimmed, with
// empty entries dropped.
func (r *TagRecord) TagList() []string {
	if r.Tags == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(r.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
