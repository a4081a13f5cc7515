package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Embedding is a stored tag-text vector for one image record
type Embedding struct {
	ImageID  int64
	UniqueID string
	Model    string
	Vector   []float32
}

// UpsertEmbedding inserts or replaces the embedding for an image record
func (s *Store) UpsertEmbedding(e *Embedding) error {
	_, err := s.db.Exec(`
		INSERT INTO tag_embeddings (image_id, image_unique_id, model, dim, vector)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(image_id) DO UPDATE SET
			image_unique_id = excluded.image_unique_id,
			model = excluded.model,
			dim = excluded.dim,
			vector = excluded.vector,
			created_at = CURRENT_TIMESTAMP
	`, e.ImageID, e.UniqueID, e.Model, len(e.Vector), encodeVector(e.Vector))
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// GetAllEmbeddings retrieves every stored embedding, ordered by image ID
func (s *Store) GetAllEmbeddings() ([]*Embedding, error) {
	rows, err := s.db.Query(`
		SELECT image_id, image_unique_id, model, dim, vector
		FROM tag_embeddings ORDER BY image_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []*Embedding
	for rows.Next() {
		e := &Embedding{}
		var dim int
		var blob []byte
		if err := rows.Scan(&e.ImageID, &e.UniqueID, &e.Model, &dim, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		e.Vector = decodeVector(blob, dim)
		embeddings = append(embeddings, e)
	}

	return embeddings, rows.Err()
}

// CountEmbeddings returns the number of stored embeddings
func (s *Store) CountEmbeddings() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM tag_embeddings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

// ClearEmbeddings removes all stored embeddings
func (s *Store) ClearEmbeddings() error {
	if _, err := s.db.Exec("DELETE FROM tag_embeddings"); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}
	return nil
}

// encodeVector packs float32 values as little-endian bytes
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks little-endian bytes into float32 values
func decodeVector(buf []byte, dim int) []float32 {
	if len(buf) < 4*dim {
		dim = len(buf) / 4
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
