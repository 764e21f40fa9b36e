package embedding

// ONNXConfig configures a local sentence-embedding model.
type ONNXConfig struct {
	ModelPath string
	// VocabPath is the model's WordPiece vocab.txt.
	VocabPath  string
	Model      string
	Dimensions int
	MaxTokens  int
	// OutputName is the token-state output, [1, tokens, dims].
	OutputName string
}

// DefaultONNXOutput is the token-state output of a stock transformers export.
const DefaultONNXOutput = "last_hidden_state"
