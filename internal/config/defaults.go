package config

import "path/filepath"

const (
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.7
	DefaultChunkSize           = 1000
	DefaultChunkOverlap        = 200
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.TimeoutSeconds == 0 {
		cfg.Server.TimeoutSeconds = 60
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "data/processed/vectordb"
	}
	if cfg.Storage.KnowledgeDir == "" {
		cfg.Storage.KnowledgeDir = "data/change_management"
	}

	e := &cfg.Embedding
	if e.Provider == "" {
		e.Provider = ProviderONNX
	}
	switch e.Provider {
	case ProviderHTTP:
		if e.Model == "" {
			e.Model = "text-embedding-3-small"
		}
		if e.BaseURL == "" {
			e.BaseURL = "https://api.openai.com/v1"
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "OPENAI_API_KEY"
		}
		if e.RequestsPerSecond == 0 {
			e.RequestsPerSecond = 5
		}
		if e.Burst == 0 {
			e.Burst = 5
		}
		if e.MaxRetries == 0 {
			e.MaxRetries = 3
		}
	case ProviderONNX:
		if e.Model == "" {
			e.Model = "all-MiniLM-L6-v2"
		}
		if e.ModelPath == "" {
			e.ModelPath = "data/models/all-MiniLM-L6-v2/model.onnx"
		}
		if e.VocabPath == "" {
			e.VocabPath = filepath.Join(filepath.Dir(e.ModelPath), "vocab.txt")
		}
		if e.OutputName == "" {
			e.OutputName = "last_hidden_state"
		}
		if e.Dimensions == 0 {
			e.Dimensions = 384
		}
		if e.MaxTokens == 0 {
			e.MaxTokens = 256
		}
	case ProviderHashing:
		if e.Model == "" {
			e.Model = "hashing-bow"
		}
		if e.Dimensions == 0 {
			e.Dimensions = 512
		}
	}
	if e.CacheSize == 0 {
		e.CacheSize = 10000
	}
	if e.TimeoutSeconds == 0 {
		e.TimeoutSeconds = 30
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}
	if cfg.Retrieval.SimilarityThreshold == nil {
		th := DefaultSimilarityThreshold
		cfg.Retrieval.SimilarityThreshold = &th
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = DefaultChunkSize
	}
	if cfg.Chunking.ChunkOverlap == nil {
		o := DefaultChunkOverlap
		cfg.Chunking.ChunkOverlap = &o
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".markdown", ".pdf", ".docx", ".doc", ".xlsx", ".pptx", ".odt", ".odp", ".ods", ".rtf"}
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 400
	}
}
