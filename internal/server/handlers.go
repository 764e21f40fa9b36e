package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/knowledge"
	"github.com/hyperjump/cmassist/internal/models"
	"github.com/hyperjump/cmassist/internal/storage"
)

type ingestRequest struct {
	Path     string            `json:"path" validate:"required"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleKnowledgeHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"chunk_count": s.kb.ChunkCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"chunk_count": s.kb.ChunkCount(),
	}
	if s.index != nil {
		resp["dimensions"] = s.index.Dimensions()
		resp["model"] = s.index.Model()
		resp["index_path"] = s.index.Path()
		if diskBytes, err := storage.DiskUsageBytes(s.index.Path()); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("retrieve request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))

	resp := models.RetrieveResponse{Query: req.Query, Results: []models.SimilarityResult{}}
	results, err := s.kb.Retrieve(r.Context(), req)
	if err != nil {
		// Retrieval degrades to "nothing found" so callers can still answer.
		s.logger.Warn("retrieval failed", zap.String("query", req.Query), zap.Error(err))
		resp.Warning = err.Error()
	} else {
		resp.Results = results
	}
	resp.Context = knowledge.BuildContext(knowledge.Chunks(resp.Results))
	resp.ChunkCount = len(resp.Results)
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Path = strings.TrimSpace(req.Path)
	if err := models.ValidateStruct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, err := os.Stat(req.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.respondError(w, http.StatusNotFound, "path not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("ingest request", zap.String("path", req.Path), zap.Bool("dir", info.IsDir()))

	if info.IsDir() {
		report, err := s.kb.IngestDirectory(r.Context(), req.Path)
		if err != nil {
			s.logger.Error("ingestion failed", zap.Error(err))
			s.respondError(w, statusFor(err), err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, report)
		return
	}

	metadata := models.MergeMetadata(map[string]string{models.MetaSource: req.Path}, req.Metadata)
	report := &models.IngestReport{Root: req.Path}
	report.Add(s.kb.IngestDocument(r.Context(), req.Path, metadata))
	s.respondJSON(w, http.StatusOK, report)
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindInvalidInput:
		return http.StatusBadRequest
	case models.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case models.KindEmbeddingBackend:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
