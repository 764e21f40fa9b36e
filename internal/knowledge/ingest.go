package knowledge

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/models"
)

type ingestOptions struct {
	changedOnly bool
}

// IngestOption configures a single ingestion call.
type IngestOption func(*ingestOptions)

// ChangedOnly skips files whose size and modification time match the ledger.
// It has no effect on a service without a ledger.
func ChangedOnly() IngestOption {
	return func(o *ingestOptions) { o.changedOnly = true }
}

// IngestDocument loads path, overlays metadata on every document, chunks and
// indexes the result. It never fails outright: a failure is reported in the
// result, with Chunks holding whatever was stored before it.
func (s *Service) IngestDocument(ctx context.Context, path string, metadata map[string]string) models.IngestResult {
	res := models.IngestResult{Path: path}
	docs, err := s.loader.Load(ctx, path)
	if err != nil {
		res.Err = err
		s.logger.Warn("failed to load document", zap.String("path", path), zap.Error(err))
		return res
	}
	for i := range docs {
		docs[i].Metadata = models.MergeMetadata(docs[i].Metadata, metadata)
	}

	chunks := s.splitter.Split(docs)
	if len(chunks) == 0 {
		s.logger.Info("document has no text", zap.String("path", path))
		return res
	}
	n, err := s.index.Add(ctx, chunks)
	res.Chunks = n
	if err != nil {
		res.Err = err
		s.logger.Warn("failed to index document",
			zap.String("path", path), zap.Int("chunks", len(chunks)), zap.Error(err))
		return res
	}
	if n < len(chunks) {
		s.logger.Warn("some chunks were skipped",
			zap.String("path", path), zap.Int("added", n), zap.Int("chunks", len(chunks)))
	}
	s.logger.Info("ingested document", zap.String("path", path), zap.Int("chunks", n))
	return res
}

// IngestFile ingests path, which lies under root, tagging it with source,
// filename and category metadata. With ChangedOnly, files the ledger has seen
// in the same state are skipped. With a ledger, a successful ingestion
// supersedes the chunks of the file's previous one.
func (s *Service) IngestFile(ctx context.Context, root, path string, opts ...IngestOption) models.IngestResult {
	var o ingestOptions
	for _, opt := range opts {
		opt(&o)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = models.NewPathError(models.KindNotFound, "ingest", path, err)
		}
		return models.IngestResult{Path: path, Err: err}
	}

	ledgerKey := absPath(path)
	var previous *models.SourceRecord
	if s.ledger != nil {
		if src, err := s.ledger.GetSource(ctx, ledgerKey); err == nil {
			previous = src
		}
	}
	if o.changedOnly && previous != nil &&
		previous.ModTime == info.ModTime().UnixNano() && previous.Size == info.Size() {
		s.logger.Debug("skipping unchanged file", zap.String("path", path))
		return models.IngestResult{Path: path, Skipped: true}
	}

	metadata := map[string]string{
		models.MetaSource:   path,
		models.MetaFilename: filepath.Base(path),
		models.MetaCategory: Category(root, path),
	}
	generation := ""
	if s.ledger != nil {
		generation = uuid.NewString()
		metadata[models.MetaGeneration] = generation
	}
	res := s.IngestDocument(ctx, path, metadata)
	if res.Err != nil || s.ledger == nil {
		return res
	}

	err = s.ledger.PutSource(ctx, models.SourceRecord{
		Path:       ledgerKey,
		ModTime:    info.ModTime().UnixNano(),
		Size:       info.Size(),
		Chunks:     res.Chunks,
		Generation: generation,
	})
	if err != nil {
		s.logger.Warn("failed to record source", zap.String("path", path), zap.Error(err))
		return res
	}
	prevGen := ""
	if previous != nil {
		prevGen = previous.Generation
		s.logger.Info("superseded previous ingestion", zap.String("path", path), zap.Int("previous_chunks", previous.Chunks))
	}
	s.gens.supersede(prevGen, generation)
	return res
}

// IngestDirectory walks root recursively, dot-directories included, and
// ingests every regular file whose name does not start with a dot. Per-file
// failures are recorded in the report and do not stop the walk. The error is
// non-nil only when root is unusable or ctx is canceled.
func (s *Service) IngestDirectory(ctx context.Context, root string, opts ...IngestOption) (*models.IngestReport, error) {
	report := &models.IngestReport{Root: root}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return report, models.NewPathError(models.KindNotFound, "ingest directory", root, err)
		}
		return report, models.NewPathError(models.KindIndexIO, "ingest directory", root, err)
	}
	if !info.IsDir() {
		return report, models.NewPathError(models.KindInvalidInput, "ingest directory", root, errors.New("not a directory"))
	}

	s.logger.Info("ingesting directory", zap.String("root", root))
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			report.Add(models.IngestResult{Path: path, Err: walkErr})
			s.logger.Warn("failed to read path", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		// Follow symlinks; only regular files are ingested.
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			return nil
		}
		report.Add(s.IngestFile(ctx, root, path, opts...))
		return nil
	})
	s.logger.Info("directory ingested",
		zap.String("root", root),
		zap.Int("files", len(report.Files)),
		zap.Int("chunks", report.Chunks),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))
	return report, err
}

// Category returns the first path component of path relative to root, or
// models.DefaultCategory for files directly under root.
func Category(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return models.DefaultCategory
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 || parts[0] == ".." {
		return models.DefaultCategory
	}
	return parts[0]
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
