package models

import (
	"errors"
	"strings"
)

// RetrieveRequest is a per-request retrieval query. Zero-valued TopK and nil
// Threshold mean "use the service defaults".
type RetrieveRequest struct {
	Query     string   `json:"query" validate:"required"`
	TopK      int      `json:"top_k,omitempty" validate:"gte=0"`
	Threshold *float64 `json:"threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Validate checks the request for obviously invalid values.
func (r *RetrieveRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return errors.New("query must not be empty")
	}
	return ValidateStruct(r)
}

// RetrieveResponse is returned by the HTTP and MCP retrieval surfaces.
type RetrieveResponse struct {
	Query      string             `json:"query"`
	Results    []SimilarityResult `json:"results"`
	Context    string             `json:"context"`
	ChunkCount int                `json:"chunk_count"`
	// Warning is set when retrieval degraded to an empty result because of a backend failure.
	Warning string `json:"warning,omitempty"`
}
