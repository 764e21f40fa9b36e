// Package loader turns files on disk into Documents. Extraction is dispatched on
// the lower-cased file extension through a strategy table; extensions without an
// entry are read as plain text.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/models"
)

// LoadFunc extracts documents from the raw bytes of the file at path.
type LoadFunc func(path string, content []byte) ([]models.Document, error)

// Loader loads documents using a per-extension strategy table.
type Loader struct {
	strategies map[string]LoadFunc
	fallback   LoadFunc
	logger     *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// WithStrategy registers fn for ext, replacing any built-in entry.
func WithStrategy(ext string, fn LoadFunc) Option {
	return func(ld *Loader) { ld.strategies[normalizeExt(ext)] = fn }
}

// New returns a Loader with the built-in strategies.
func New(opts ...Option) *Loader {
	ld := &Loader{
		strategies: map[string]LoadFunc{
			".txt":      loadPlain,
			".pdf":      loadPDF,
			".docx":     loadDOCX,
			".doc":      loadDOC,
			".md":       loadMarkdown,
			".markdown": loadMarkdown,
			".xlsx":     loadExcel,
			".pptx":     loadPPTX,
			".odp":      loadODP,
			".ods":      loadODS,
			".odt":      loadWithCat,
			".rtf":      loadWithCat,
		},
		fallback: loadPlain,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	if ld.logger == nil {
		ld.logger = zap.NewNop()
	}
	return ld
}

// Extensions returns the extensions with a dedicated strategy.
func (ld *Loader) Extensions() []string {
	out := make([]string, 0, len(ld.strategies))
	for ext := range ld.strategies {
		out = append(out, ext)
	}
	return out
}

// Load reads the file at path and returns its documents. A missing path yields a
// models.ErrNotFound error. Every returned document carries a "source" entry, set
// to path unless the strategy already provided one.
func (ld *Loader) Load(ctx context.Context, path string) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.NewPathError(models.KindNotFound, "load", path, err)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, models.NewPathError(models.KindInvalidInput, "load", path, errors.New("is a directory"))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	ext := normalizeExt(filepath.Ext(path))
	fn, ok := ld.strategies[ext]
	if !ok {
		fn = ld.fallback
		ld.logger.Debug("no loader for extension, reading as plain text",
			zap.String("path", path), zap.String("ext", ext))
	}
	docs, err := extract(fn, path, content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]string)
		}
		if docs[i].Metadata[models.MetaSource] == "" {
			docs[i].Metadata[models.MetaSource] = path
		}
	}
	ld.logger.Debug("loaded file", zap.String("path", path), zap.Int("documents", len(docs)))
	return docs, nil
}

// extract runs fn, converting a panic into an error. The PDF reader panics on
// some malformed files.
func extract(fn LoadFunc, path string, content []byte) (docs []models.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return fn(path, content)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// single wraps one text in a document slice.
func single(text string) []models.Document {
	return []models.Document{{Text: text, Metadata: map[string]string{}}}
}
