package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with the environment variables the service has always
// honoured (DEBUG, NUM_DOCS_TO_RETRIEVE, SIMILARITY_THRESHOLD, ...). Empty values
// are ignored; malformed numbers are an error.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	setInt := func(key string, dst *int) error {
		v, ok := get(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	if v, ok := get("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env DEBUG: %w", err)
		}
		cfg.Debug = b
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("HOST"); ok {
		cfg.Server.Host = v
	}
	if err := setInt("PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	if v, ok := get("VECTOR_DB_PATH"); ok {
		cfg.Storage.IndexPath = v
	}
	if v, ok := get("KNOWLEDGE_BASE_DIR"); ok {
		cfg.Storage.KnowledgeDir = v
	}
	if v, ok := get("EMBEDDING_PROVIDER"); ok {
		cfg.Embedding.Provider = strings.ToLower(v)
	}
	if v, ok := get("EMBEDDING_MODEL"); ok {
		cfg.Embedding.Model = v
	}
	if v, ok := get("EMBEDDING_BASE_URL"); ok {
		cfg.Embedding.BaseURL = v
	}
	if err := setInt("NUM_DOCS_TO_RETRIEVE", &cfg.Retrieval.TopK); err != nil {
		return err
	}
	if v, ok := get("SIMILARITY_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("env SIMILARITY_THRESHOLD: %w", err)
		}
		cfg.Retrieval.SimilarityThreshold = &f
	}
	if err := setInt("DOCUMENT_CHUNK_SIZE", &cfg.Chunking.ChunkSize); err != nil {
		return err
	}
	if _, ok := get("DOCUMENT_CHUNK_OVERLAP"); ok {
		var o int
		if err := setInt("DOCUMENT_CHUNK_OVERLAP", &o); err != nil {
			return err
		}
		cfg.Chunking.ChunkOverlap = &o
	}
	return nil
}
