//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/cmassist/pkg/utils"
)

// ONNXEmbedder runs a BERT-style sentence model through ONNX Runtime and
// mean-pools its token states over the attention mask. It requires CGO and the
// onnxruntime shared library. Inference is serialized over pre-allocated tensors.
type ONNXEmbedder struct {
	model      string
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer

	mu                  sync.Mutex
	session             *ort.AdvancedSession
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
}

// NewONNXEmbedder creates an ONNX embedder, initializing the runtime environment if needed.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("onnx: dimensions must be positive")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	if cfg.OutputName == "" {
		cfg.OutputName = DefaultONNXOutput
	}
	tok, err := LoadVocab(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		maxTokens:  cfg.MaxTokens,
		tokenizer:  tok,
	}
	if err := e.allocate(cfg.ModelPath, cfg.OutputName); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *ONNXEmbedder) allocate(modelPath, outputName string) error {
	shape := ort.NewShape(1, int64(e.maxTokens))
	ids, mask, types := e.tokenizer.Tokenize("", e.maxTokens)

	var err error
	if e.inputIDsTensor, err = ort.NewTensor(shape, ids); err != nil {
		return fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMaskTensor, err = ort.NewTensor(shape, mask); err != nil {
		return fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDsTensor, err = ort.NewTensor(shape, types); err != nil {
		return fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	hidden := ort.NewShape(1, int64(e.maxTokens), int64(e.dimensions))
	if e.outputTensor, err = ort.NewTensor(hidden, make([]float32, e.maxTokens*e.dimensions)); err != nil {
		return fmt.Errorf("failed to create output tensor: %w", err)
	}
	e.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{outputName},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}
	return nil
}

// Embed runs inference for text and returns the L2-normalized sentence vector.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx embedder is closed")
	}

	ids, mask, types := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), ids)
	copy(e.attentionMaskTensor.GetData(), mask)
	copy(e.tokenTypeIDsTensor.GetData(), types)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	emb := meanPool(e.outputTensor.GetData(), mask, e.dimensions)
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns the configured model identifier.
func (e *ONNXEmbedder) Model() string {
	return e.model
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
