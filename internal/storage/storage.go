// Package storage persists embedding records, index metadata and the ingested
// source ledger in a single SQLite database.
package storage

import (
	"context"

	"github.com/hyperjump/cmassist/internal/models"
)

// Well-known meta keys.
const (
	MetaDimensions = "dimensions"
	MetaModel      = "model"
)

// Store defines record, metadata and source ledger persistence.
type Store interface {
	// InsertRecords writes all records or none.
	InsertRecords(ctx context.Context, records []models.EmbeddingRecord) error
	// InsertRecordsWithMeta writes records and meta entries all or none.
	InsertRecordsWithMeta(ctx context.Context, records []models.EmbeddingRecord, meta map[string]string) error
	// LoadRecords returns every record in insertion order.
	LoadRecords(ctx context.Context) ([]models.EmbeddingRecord, error)
	CountRecords(ctx context.Context) (int64, error)

	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error

	// GetSource returns models.ErrNotFound when path has not been ingested.
	GetSource(ctx context.Context, path string) (*models.SourceRecord, error)
	PutSource(ctx context.Context, src models.SourceRecord) error
	ListSources(ctx context.Context) ([]models.SourceRecord, error)

	Close() error
}
