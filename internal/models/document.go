// Package models defines the core data structures shared by ingestion and retrieval.
package models

import "time"

// Well-known metadata keys.
const (
	MetaSource   = "source"
	MetaFilename = "filename"
	MetaCategory = "category"
	MetaPage     = "page"
	MetaSheet    = "sheet"

	// MetaGeneration ties a chunk to one ingestion of its file; see SourceRecord.Generation.
	MetaGeneration = "generation"
)

// DefaultCategory is assigned to files that sit directly under an ingestion root.
const DefaultCategory = "general"

// Document is the text extracted from one file (or one page of it) plus its metadata.
// Documents are transient: they are never persisted, only their chunks are.
type Document struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Source returns the document's source metadata value.
func (d *Document) Source() string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[MetaSource]
}

// Chunk is a contiguous substring of a Document's text with a copy of its metadata.
// Start and End are rune offsets into the parent text.
type Chunk struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	Index    int               `json:"index"`
	Start    int               `json:"start"`
	End      int               `json:"end"`
}

// Source returns the chunk's source metadata value.
func (c *Chunk) Source() string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[MetaSource]
}

// EmbeddingRecord is the unit owned by the vector index.
type EmbeddingRecord struct {
	ID        string            `json:"id"`
	Vector    []float32         `json:"-"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// Chunk returns the record as a Chunk (offsets are not persisted).
func (r *EmbeddingRecord) Chunk() Chunk {
	return Chunk{ID: r.ID, Text: r.Text, Metadata: CopyMetadata(r.Metadata)}
}

// SourceRecord tracks a file that has been ingested so unchanged files can be skipped.
// Generation names the latest successful ingestion; chunks tagged with an older
// generation of the same file are superseded.
type SourceRecord struct {
	Path       string    `json:"path"`
	ModTime    int64     `json:"mod_time"`
	Size       int64     `json:"size"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
	Generation string    `json:"generation,omitempty"`
}

// MetadataFilter reports whether a stored record with the given metadata may be returned.
type MetadataFilter func(metadata map[string]string) bool

// CopyMetadata returns a shallow copy of m. A nil map yields an empty, non-nil map.
func CopyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MergeMetadata returns base overlaid with extra. Neither input is modified.
func MergeMetadata(base, extra map[string]string) map[string]string {
	out := CopyMetadata(base)
	for k, v := range extra {
		out[k] = v
	}
	return out
}
