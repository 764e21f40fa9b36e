package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/cmassist/internal/models"
	"github.com/hyperjump/cmassist/pkg/utils"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	retryBase          = 200 * time.Millisecond
	retryCap           = 5 * time.Second
)

// HTTPConfig configures an OpenAI-compatible embeddings endpoint. Ollama serves
// the same protocol under /v1.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	// Timeout bounds each request attempt.
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	Client            *http.Client
}

// HTTPEmbedder calls POST {BaseURL}/embeddings. Requests are throttled with a
// token bucket and retried with capped exponential backoff on transport errors,
// 429 and 5xx responses. Every failure is reported as models.ErrEmbeddingBackend.
type HTTPEmbedder struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	mu         sync.RWMutex
	dimensions int
}

// HTTPOption configures an HTTPEmbedder.
type HTTPOption func(*HTTPEmbedder)

// WithLogger sets a logger for retry diagnostics.
func WithLogger(l *zap.Logger) HTTPOption {
	return func(e *HTTPEmbedder) { e.logger = l }
}

// NewHTTPEmbedder returns an embedder for cfg.
func NewHTTPEmbedder(cfg HTTPConfig, opts ...HTTPOption) (*HTTPEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("embedding base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("embedding model is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	e := &HTTPEmbedder{
		cfg:        cfg,
		client:     client,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     zap.NewNop(),
		dimensions: cfg.Dimensions,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e, nil
}

// embeddingRequest is the OpenAI /embeddings body; servers reject unknown fields.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	// Ollama /api/embed and /api/embeddings shapes.
	Embeddings [][]float32 `json:"embeddings"`
	Embedding  []float32   `json:"embedding"`
}

// Embed returns the embedding for one text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

// EmbedBatch embeds texts in a single request.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embeddingRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, models.NewError(models.KindEmbeddingBackend, "embed", err)
		}
		embs, retryAfter, err := e.do(ctx, body, len(texts))
		if err == nil {
			return embs, nil
		}
		lastErr = err
		var perm *permanentError
		if errors.As(err, &perm) || ctx.Err() != nil {
			break
		}
		if attempt == e.cfg.MaxRetries {
			break
		}
		delay := retryDelay(attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		e.logger.Warn("embedding request failed, retrying",
			zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))
		if err := sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	return nil, models.NewError(models.KindEmbeddingBackend, "embed", lastErr)
}

// permanentError marks a response that retrying will not fix.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

func (e *HTTPEmbedder) do(ctx context.Context, body []byte, n int) ([][]float32, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, 0, &permanentError{err}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("embeddings endpoint returned %s", resp.Status)
	case resp.StatusCode >= 300:
		return nil, 0, &permanentError{fmt.Errorf("embeddings endpoint returned %s: %s", resp.Status, truncateBody(payload))}
	}

	embs, err := e.decode(payload, n)
	if err != nil {
		return nil, 0, err
	}
	return embs, 0, nil
}

func (e *HTTPEmbedder) decode(payload []byte, n int) ([][]float32, error) {
	var out embeddingResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	var embs [][]float32
	switch {
	case len(out.Data) > 0:
		embs = make([][]float32, len(out.Data))
		for i, d := range out.Data {
			idx := d.Index
			if idx < 0 || idx >= len(out.Data) || embs[idx] != nil {
				idx = i
			}
			embs[idx] = d.Embedding
		}
	case len(out.Embeddings) > 0:
		embs = out.Embeddings
	case len(out.Embedding) > 0:
		embs = [][]float32{out.Embedding}
	}
	if len(embs) != n {
		return nil, fmt.Errorf("expected %d embeddings, got %d", n, len(embs))
	}
	for _, v := range embs {
		if err := e.checkDimensions(len(v)); err != nil {
			return nil, &permanentError{err}
		}
	}
	return embs, nil
}

// checkDimensions learns the dimension from the first response and rejects
// vectors that disagree with it afterwards.
func (e *HTTPEmbedder) checkDimensions(n int) error {
	if n == 0 {
		return errors.New("empty embedding")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dimensions == 0 {
		e.dimensions = n
		return nil
	}
	if n != e.dimensions {
		return fmt.Errorf("embedding dimension %d, expected %d", n, e.dimensions)
	}
	return nil
}

// Dimensions returns the configured or learned dimension (0 before the first call when unconfigured).
func (e *HTTPEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimensions
}

// Model returns the configured model name.
func (e *HTTPEmbedder) Model() string {
	return e.cfg.Model
}

// Close releases idle connections.
func (e *HTTPEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return retryCap
	}
	d := retryBase << attempt
	if d > retryCap {
		d = retryCap
	}
	return d
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		d := time.Duration(secs) * time.Second
		if d > retryCap {
			d = retryCap
		}
		return d
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncateBody(b []byte) string {
	return utils.Truncate(strings.TrimSpace(string(b)), 200)
}
