package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "cmassist://"

var errPathRequired = errors.New("path is required")

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "Files ingested into the knowledge base",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)
}

func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	text := "[]"
	if s.sources != nil {
		sources, err := s.sources.ListSources(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing sources: %w", err)
		}
		if len(sources) > 0 {
			data, err := json.Marshal(sources)
			if err != nil {
				return nil, fmt.Errorf("marshaling sources: %w", err)
			}
			text = string(data)
		}
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     text,
		}},
	}, nil
}
