package store

// Schema v1 - initial database schema.
// One wide row per processed image; the derived tag_index and image_fts
// structures are created and rebuilt by the index package.
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Tagging results, one row per image
CREATE TABLE IF NOT EXISTS image_tags (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  image_unique_id TEXT UNIQUE NOT NULL,
  image_path TEXT NOT NULL,
  tags TEXT NOT NULL,
  description TEXT,
  model_name TEXT NOT NULL,
  image_size TEXT NOT NULL,
  tag_count INTEGER NOT NULL CHECK (status != 'success' OR tag_count > 0),
  generated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  original_width INTEGER,
  original_height INTEGER,
  image_format TEXT,
  status TEXT DEFAULT 'success',
  error_message TEXT,
  processing_time INTEGER,
  index_status TEXT DEFAULT 'not_indexed',
  language TEXT DEFAULT 'en'
);

CREATE INDEX IF NOT EXISTS idx_image_unique_id ON image_tags(image_unique_id);
CREATE INDEX IF NOT EXISTS idx_image_path ON image_tags(image_path);
CREATE INDEX IF NOT EXISTS idx_model_name ON image_tags(model_name);
CREATE INDEX IF NOT EXISTS idx_generated_at ON image_tags(generated_at);
CREATE INDEX IF NOT EXISTS idx_status ON image_tags(status);
`

// Schema v2 - embedding storage and query-path indexes
const schemaV2 = `
-- Tag-text embeddings, one row per successful image record
CREATE TABLE IF NOT EXISTS tag_embeddings (
  image_id INTEGER PRIMARY KEY REFERENCES image_tags(id) ON DELETE CASCADE,
  image_unique_id TEXT UNIQUE NOT NULL,
  model TEXT NOT NULL,
  dim INTEGER NOT NULL,
  vector BLOB NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_index_status ON image_tags(index_status);
CREATE INDEX IF NOT EXISTS idx_status_id ON image_tags(status, id);
CREATE INDEX IF NOT EXISTS idx_model_time ON image_tags(model_name, generated_at);
`
