// Package config provides configuration loading for the knowledge base service.
// Files may be YAML or TOML (chosen by extension); environment variables override
// file values, and defaults fill whatever is still unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug" toml:"debug"`
	LogLevel  string          `yaml:"log_level,omitempty" toml:"log_level,omitempty"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval" toml:"retrieval"`
	Chunking  ChunkingConfig  `yaml:"chunking" toml:"chunking"`
	Watch     WatchConfig     `yaml:"watch" toml:"watch"`
	MCP       MCPConfig       `yaml:"mcp" toml:"mcp"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host" toml:"host"`
	Port           int    `yaml:"port" toml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds"`
	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins" toml:"cors_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds the on-disk locations.
type StorageConfig struct {
	// IndexPath is the directory holding the vector index. It may be absent.
	IndexPath string `yaml:"index_path" toml:"index_path"`
	// KnowledgeDir is the default directory ingested by "ingest --default" and watched by "serve --watch".
	KnowledgeDir string `yaml:"knowledge_dir" toml:"knowledge_dir"`
}

// Embedding providers.
const (
	ProviderONNX    = "onnx"
	ProviderHTTP    = "http"
	ProviderHashing = "hashing"
)

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" toml:"provider"`
	Model             string  `yaml:"model" toml:"model"`
	Dimensions        int     `yaml:"dimensions" toml:"dimensions"`
	CacheSize         int     `yaml:"cache_size" toml:"cache_size"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" toml:"timeout_seconds"`
	BaseURL           string  `yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	APIKeyEnv         string  `yaml:"api_key_env,omitempty" toml:"api_key_env,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" toml:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty" toml:"burst,omitempty"`
	MaxRetries        int     `yaml:"max_retries,omitempty" toml:"max_retries,omitempty"`
	ModelPath         string  `yaml:"model_path,omitempty" toml:"model_path,omitempty"`
	VocabPath         string  `yaml:"vocab_path,omitempty" toml:"vocab_path,omitempty"`
	OutputName        string  `yaml:"output_name,omitempty" toml:"output_name,omitempty"`
	MaxTokens         int     `yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
}

// RetrievalConfig holds the retrieval defaults.
type RetrievalConfig struct {
	TopK                int      `yaml:"top_k" toml:"top_k"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold" toml:"similarity_threshold"`
}

// Threshold returns the similarity threshold; defaults to 0.7 when unset.
func (r *RetrievalConfig) Threshold() float64 {
	if r.SimilarityThreshold != nil {
		return *r.SimilarityThreshold
	}
	return DefaultSimilarityThreshold
}

// ChunkingConfig holds chunk size and overlap, in characters.
type ChunkingConfig struct {
	ChunkSize    int  `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap" toml:"chunk_overlap"`
}

// Overlap returns the chunk overlap; defaults to 200 when unset.
func (c *ChunkingConfig) Overlap() int {
	if c.ChunkOverlap != nil {
		return *c.ChunkOverlap
	}
	return DefaultChunkOverlap
}

// WatchConfig holds knowledge directory watch settings.
type WatchConfig struct {
	Enabled        bool     `yaml:"enabled" toml:"enabled"`
	Extensions     []string `yaml:"extensions" toml:"extensions"`
	DebounceMillis int      `yaml:"debounce_millis" toml:"debounce_millis"`
}

// MCPConfig holds settings for the MCP tool server.
type MCPConfig struct {
	// Addr is the listen address for streamable HTTP; empty means stdio.
	Addr string `yaml:"addr,omitempty" toml:"addr,omitempty"`
}

// Load reads and parses the config file at path, applies environment overrides
// and defaults, resolves relative paths against the config file's directory, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(&cfg, filepath.Dir(path))
}

// Default returns the configuration used when no config file exists: defaults
// plus environment overrides, with relative paths resolved against the working
// directory.
func Default() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	return finish(&Config{}, cwd)
}

func finish(cfg *Config, baseDir string) (*Config, error) {
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, baseDir)
	cfg.Storage.KnowledgeDir = expandPath(cfg.Storage.KnowledgeDir, baseDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, baseDir)
	}
	if cfg.Embedding.VocabPath != "" {
		cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, baseDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path in the format implied by its extension.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderONNX, ProviderHTTP, ProviderHashing:
	default:
		return fmt.Errorf("embedding.provider %q is not one of %s, %s, %s",
			c.Embedding.Provider, ProviderONNX, ProviderHTTP, ProviderHashing)
	}
	if c.Embedding.Provider != ProviderHTTP && c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive for provider %s", c.Embedding.Provider)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if o := c.Chunking.Overlap(); o < 0 || o >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap must be in [0, chunk_size), got %d", o)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if th := c.Retrieval.Threshold(); th < 0 || th > 1 {
		return fmt.Errorf("retrieval.similarity_threshold must be in [0, 1], got %g", th)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Storage.IndexPath == "" {
		return fmt.Errorf("storage.index_path must be set")
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// expandPath makes path absolute. "~/" is the home directory; other relative
// paths are relative to baseDir.
func expandPath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(baseDir, path)
}
