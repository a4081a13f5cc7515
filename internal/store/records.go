package store

import (
	"database/sql"
	"fmt"
)

var recordColumns = RecordColumns("")

// RecordColumns returns the image_tags column list matching
// CollectRecords, qualified with a table alias when one is given so
// callers can compose their own joins
func RecordColumns(alias string) string {
	p := ""
	if alias != "" {
		p = alias + "."
	}
	return fmt.Sprintf(`%[1]sid, %[1]simage_unique_id, %[1]simage_path, %[1]stags, COALESCE(%[1]sdescription, ''),
		%[1]smodel_name, %[1]simage_size, %[1]stag_count, %[1]sgenerated_at,
		COALESCE(%[1]soriginal_width, 0), COALESCE(%[1]soriginal_height, 0),
		COALESCE(%[1]simage_format, ''), COALESCE(%[1]sstatus, 'success'),
		COALESCE(%[1]serror_message, ''), COALESCE(%[1]sprocessing_time, 0),
		COALESCE(%[1]sindex_status, 'not_indexed'), COALESCE(%[1]slanguage, 'en')`, p)
}

// CollectRecords drains a result set produced with RecordColumns
func CollectRecords(rows *sql.Rows) ([]*TagRecord, error) {
	defer rows.Close()

	var records []*TagRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanRecord(row interface{ Scan(...any) error }) (*TagRecord, error) {
	r := &TagRecord{}
	err := row.Scan(
		&r.ID, &r.UniqueID, &r.Path, &r.Tags, &r.Description,
		&r.ModelName, &r.ImageSize, &r.TagCount, &r.GeneratedAt,
		&r.OriginalWidth, &r.OriginalHeight,
		&r.ImageFormat, &r.Status,
		&r.ErrorMessage, &r.ProcessingMs,
		&r.IndexStatus, &r.Language,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpsertRecord inserts or replaces a tag record keyed by its unique ID.
// The row-level upsert is atomic; concurrent workers writing different
// images never conflict.
func (s *Store) UpsertRecord(r *TagRecord) error {
	err := s.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO image_tags (
				image_unique_id, image_path, tags, description,
				model_name, image_size, tag_count,
				original_width, original_height, image_format,
				status, error_message, processing_time, language
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(image_unique_id) DO UPDATE SET
				image_path = excluded.image_path,
				tags = excluded.tags,
				description = excluded.description,
				model_name = excluded.model_name,
				image_size = excluded.image_size,
				tag_count = excluded.tag_count,
				original_width = excluded.original_width,
				original_height = excluded.original_height,
				image_format = excluded.image_format,
				status = excluded.status,
				error_message = excluded.error_message,
				processing_time = excluded.processing_time,
				language = excluded.language,
				generated_at = CURRENT_TIMESTAMP,
				index_status = 'not_indexed'
		`,
			r.UniqueID, r.Path, r.Tags, nullIfEmpty(r.Description),
			r.ModelName, r.ImageSize, r.TagCount,
			nullIfZero(r.OriginalWidth), nullIfZero(r.OriginalHeight), nullIfEmpty(r.ImageFormat),
			r.Status, nullIfEmpty(r.ErrorMessage), r.ProcessingMs, r.Language,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}

	if err := s.db.QueryRow(
		"SELECT id FROM image_tags WHERE image_unique_id = ?", r.UniqueID,
	).Scan(&r.ID); err != nil {
		return fmt.Errorf("failed to get record ID: %w", err)
	}

	return nil
}

// GetRecordByUniqueID retrieves a record by its unique identifier.
// Returns (nil, nil) when no record exists.
func (s *Store) GetRecordByUniqueID(uniqueID string) (*TagRecord, error) {
	r, err := scanRecord(s.db.QueryRow(
		"SELECT "+recordColumns+" FROM image_tags WHERE image_unique_id = ?", uniqueID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return r, nil
}

// GetRecordByID retrieves a record by its numeric row ID
func (s *Store) GetRecordByID(id int64) (*TagRecord, error) {
	r, err := scanRecord(s.db.QueryRow(
		"SELECT "+recordColumns+" FROM image_tags WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return r, nil
}

// HasRecord reports whether a record exists for the given unique ID
func (s *Store) HasRecord(uniqueID string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM image_tags WHERE image_unique_id = ?", uniqueID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check record: %w", err)
	}
	return count > 0, nil
}

// GetRecordsByStatus retrieves all records with a given annotation status,
// ordered by row ID
func (s *Store) GetRecordsByStatus(status string) ([]*TagRecord, error) {
	rows, err := s.db.Query(
		"SELECT "+recordColumns+" FROM image_tags WHERE status = ? ORDER BY id", status)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*TagRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// FindRecordsByPath retrieves records whose stored path contains the
// given fragment
func (s *Store) FindRecordsByPath(pathFragment string) ([]*TagRecord, error) {
	rows, err := s.db.Query(
		"SELECT "+recordColumns+" FROM image_tags WHERE image_path LIKE ? ORDER BY id",
		"%"+pathFragment+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*TagRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// CountRecords returns the total number of records
func (s *Store) CountRecords() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM image_tags").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// CountRecordsByStatus returns the number of records with a given
// annotation status
func (s *Store) CountRecordsByStatus(status string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM image_tags WHERE status = ?", status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// CountRecordsByIndexStatus returns the number of records with a given
// index status
func (s *Store) CountRecordsByIndexStatus(indexStatus string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM image_tags WHERE index_status = ?", indexStatus).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// MarkIndexed flips index_status to 'indexed' for all successful records.
// Index status is caller-maintained: the index builder never writes this
// flag, so commands call MarkIndexed after a successful build.
func (s *Store) MarkIndexed() (int64, error) {
	result, err := s.db.Exec(
		"UPDATE image_tags SET index_status = ? WHERE status = ?",
		IndexStatusIndexed, StatusSuccess)
	if err != nil {
		return 0, fmt.Errorf("failed to mark records indexed: %w", err)
	}
	return result.RowsAffected()
}

// SetIndexStatus updates the index status of a single record
func (s *Store) SetIndexStatus(uniqueID, indexStatus string) error {
	_, err := s.db.Exec(
		"UPDATE image_tags SET index_status = ? WHERE image_unique_id = ?",
		indexStatus, uniqueID)
	if err != nil {
		return fmt.Errorf("failed to set index status: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
