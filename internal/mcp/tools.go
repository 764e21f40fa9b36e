package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/knowledge"
	"github.com/hyperjump/cmassist/internal/models"
)

// RetrieveInput is the input schema for the retrieve_knowledge tool.
type RetrieveInput struct {
	Query     string   `json:"query" jsonschema:"the question or topic to find change-management knowledge for"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"maximum number of chunks to consider (default from config)"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum similarity between 0 and 1 (default from config)"`
}

// RetrieveOutput is the output schema for the retrieve_knowledge tool.
type RetrieveOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
	// Context is ready to paste into a prompt.
	Context string `json:"context"`
	Warning string `json:"warning,omitempty"`
}

// ChunkOutput is one retrieved chunk.
type ChunkOutput struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Category   string  `json:"category,omitempty"`
	Similarity float64 `json:"similarity"`
}

// StatusInput is the (empty) input schema for the knowledge_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the knowledge_status tool.
type StatusOutput struct {
	ChunkCount int  `json:"chunk_count"`
	Populated  bool `json:"populated"`
}

// IngestInput is the input schema for the ingest_path tool.
type IngestInput struct {
	Path string `json:"path" jsonschema:"file or directory to add to the knowledge base"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve_knowledge",
		Description: "Find knowledge base passages relevant to a change-management question",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "knowledge_status",
		Description: "Report how many chunks the knowledge base holds",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_path",
		Description: "Ingest a file or directory into the knowledge base",
	}, s.handleIngest)
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	req := models.RetrieveRequest{Query: input.Query, TopK: input.TopK, Threshold: input.Threshold}
	if err := req.Validate(); err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{Results: []ChunkOutput{}}
	results, err := s.kb.Retrieve(ctx, req)
	if err != nil {
		s.logger.Warn("retrieval failed", zap.String("query", input.Query), zap.Error(err))
		output.Warning = err.Error()
		results = nil
	}
	for _, r := range results {
		output.Results = append(output.Results, ChunkOutput{
			ID:         r.Chunk.ID,
			Text:       r.Chunk.Text,
			Source:     r.Chunk.Source(),
			Category:   r.Chunk.Metadata[models.MetaCategory],
			Similarity: r.Similarity,
		})
	}
	output.Count = len(output.Results)
	output.Context = knowledge.BuildContext(knowledge.Chunks(results))
	return nil, output, nil
}

func (s *Server) handleStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	n := s.kb.ChunkCount()
	return nil, StatusOutput{ChunkCount: n, Populated: n > 0}, nil
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, models.IngestReport, error) {
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return nil, models.IngestReport{}, models.NewError(models.KindInvalidInput, "ingest", errPathRequired)
	}
	report, err := s.kb.IngestDirectory(ctx, path)
	if models.KindOf(err) == models.KindInvalidInput {
		// Not a directory: ingest the single file.
		report = &models.IngestReport{Root: path}
		report.Add(s.kb.IngestDocument(ctx, path, map[string]string{models.MetaSource: path}))
		err = nil
	}
	if err != nil {
		return nil, models.IngestReport{}, err
	}
	return nil, *report, nil
}
