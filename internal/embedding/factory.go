package embedding

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/config"
)

// New builds the embedder selected by cfg.Provider and wraps it in an LRU cache
// of cfg.CacheSize entries.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var inner Embedder
	switch cfg.Provider {
	case config.ProviderHashing:
		inner = NewHashingEmbedder(cfg.Dimensions)
	case config.ProviderHTTP:
		e, err := NewHTTPEmbedder(HTTPConfig{
			BaseURL:           cfg.BaseURL,
			APIKey:            os.Getenv(cfg.APIKeyEnv),
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
			MaxRetries:        cfg.MaxRetries,
		}, WithLogger(logger.Named("embedding")))
		if err != nil {
			return nil, err
		}
		inner = e
	case config.ProviderONNX:
		e, err := NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			VocabPath:  cfg.VocabPath,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
			OutputName: cfg.OutputName,
		})
		if err != nil {
			return nil, err
		}
		inner = e
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: %s, %s, %s)",
			cfg.Provider, config.ProviderONNX, config.ProviderHTTP, config.ProviderHashing)
	}
	logger.Info("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", inner.Model()),
		zap.Int("dimensions", inner.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize))
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
