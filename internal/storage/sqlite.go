package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/cmassist/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		text TEXT NOT NULL,
		metadata TEXT,
		vector BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sources (
		path TEXT PRIMARY KEY,
		mod_time INTEGER NOT NULL,
		size INTEGER NOT NULL,
		chunks INTEGER NOT NULL,
		ingested_at INTEGER NOT NULL,
		generation TEXT NOT NULL DEFAULT ''
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return addColumn(db, "sources", "generation", `TEXT NOT NULL DEFAULT ''`)
}

// addColumn adds a column that databases created by older builds lack.
func addColumn(db *sql.DB, table, column, decl string) error {
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// InsertRecords inserts records in one transaction.
func (s *SQLiteStore) InsertRecords(ctx context.Context, records []models.EmbeddingRecord) error {
	return s.InsertRecordsWithMeta(ctx, records, nil)
}

// InsertRecordsWithMeta inserts records and upserts meta in one transaction.
func (s *SQLiteStore) InsertRecordsWithMeta(ctx context.Context, records []models.EmbeddingRecord, meta map[string]string) error {
	if len(records) == 0 && len(meta) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, text, metadata, vector, created_at) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Text, string(metadataJSON), EncodeVector(r.Vector), r.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, upsertMetaSQL, key, value); err != nil {
			return fmt.Errorf("set meta %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// LoadRecords returns all records ordered by insertion.
func (s *SQLiteStore) LoadRecords(ctx context.Context) ([]models.EmbeddingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, metadata, vector, created_at FROM records ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.EmbeddingRecord
	for rows.Next() {
		var (
			r            models.EmbeddingRecord
			metadataJSON sql.NullString
			blob         []byte
			created      int64
		)
		if err := rows.Scan(&r.ID, &r.Text, &metadataJSON, &blob, &created); err != nil {
			return nil, err
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &r.Metadata); err != nil {
				return nil, fmt.Errorf("record %s: failed to unmarshal metadata: %w", r.ID, err)
			}
		}
		if r.Metadata == nil {
			r.Metadata = map[string]string{}
		}
		if r.Vector, err = DecodeVector(blob); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		r.CreatedAt = time.Unix(0, created)
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountRecords returns the number of stored records.
func (s *SQLiteStore) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

const upsertMetaSQL = `INSERT INTO meta (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`

// GetMeta returns the value stored under key.
func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetMeta stores value under key, replacing any previous value.
func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, upsertMetaSQL, key, value)
	return err
}

// GetSource returns the ledger entry for path.
func (s *SQLiteStore) GetSource(ctx context.Context, path string) (*models.SourceRecord, error) {
	var (
		src      models.SourceRecord
		ingested int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT path, mod_time, size, chunks, ingested_at, generation FROM sources WHERE path = ?`, path,
	).Scan(&src.Path, &src.ModTime, &src.Size, &src.Chunks, &ingested, &src.Generation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewPathError(models.KindNotFound, "get source", path, nil)
	}
	if err != nil {
		return nil, err
	}
	src.IngestedAt = time.Unix(0, ingested)
	return &src, nil
}

// PutSource inserts or replaces the ledger entry for src.Path.
func (s *SQLiteStore) PutSource(ctx context.Context, src models.SourceRecord) error {
	if src.IngestedAt.IsZero() {
		src.IngestedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (path, mod_time, size, chunks, ingested_at, generation) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   mod_time = excluded.mod_time,
		   size = excluded.size,
		   chunks = excluded.chunks,
		   ingested_at = excluded.ingested_at,
		   generation = excluded.generation`,
		src.Path, src.ModTime, src.Size, src.Chunks, src.IngestedAt.UnixNano(), src.Generation,
	)
	return err
}

// ListSources returns the ledger ordered by path.
func (s *SQLiteStore) ListSources(ctx context.Context) ([]models.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, mod_time, size, chunks, ingested_at, generation FROM sources ORDER BY path`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SourceRecord
	for rows.Next() {
		var (
			src      models.SourceRecord
			ingested int64
		)
		if err := rows.Scan(&src.Path, &src.ModTime, &src.Size, &src.Chunks, &ingested, &src.Generation); err != nil {
			return nil, err
		}
		src.IngestedAt = time.Unix(0, ingested)
		out = append(out, src)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
