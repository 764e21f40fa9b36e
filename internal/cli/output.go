// Package cli formats knowledge base results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/cmassist/internal/models"
	"github.com/hyperjump/cmassist/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputContext writes only the assembled prompt context.
	OutputContext OutputFormat = "context"
)

const previewRunes = 200

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputContext:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or context)", s)
	}
}

// WriteRetrieveResults writes a retrieval response to w in the given format.
func WriteRetrieveResults(w io.Writer, response *models.RetrieveResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputContext:
		_, err := fmt.Fprintln(w, response.Context)
		return err
	default:
		writeRetrieveText(w, response)
		return nil
	}
}

func writeRetrieveText(w io.Writer, response *models.RetrieveResponse) {
	if response.Warning != "" {
		fmt.Fprintf(w, "warning: %s\n", response.Warning)
	}
	fmt.Fprintf(w, "\nFound %d relevant chunks for %q\n\n", len(response.Results), response.Query)
	for i, result := range response.Results {
		writeOneResult(w, i+1, result)
	}
}

func writeOneResult(w io.Writer, rank int, result models.SimilarityResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Similarity: %.4f (distance %.4f)\n", rank, result.Similarity, result.Distance)
	source := result.Chunk.Source()
	if source == "" {
		source = "Unknown source"
	}
	fmt.Fprintf(w, "Source: %s\n", source)
	if cat := result.Chunk.Metadata[models.MetaCategory]; cat != "" {
		fmt.Fprintf(w, "Category: %s\n", cat)
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(strings.TrimSpace(result.Chunk.Text), previewRunes))
}

// WriteIngestReport writes an ingestion report to w.
func WriteIngestReport(w io.Writer, report *models.IngestReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Ingested %s: %d chunks from %d files (%d skipped, %d failed)\n",
		report.Root, report.Chunks, len(report.Files)-report.Failed-report.Skipped, report.Skipped, report.Failed)
	for _, f := range report.Files {
		if f.Error != "" {
			fmt.Fprintf(w, "  FAILED %s: %s\n", f.Path, f.Error)
		}
	}
	return nil
}

// Status summarises the local index.
type Status struct {
	ChunkCount     int    `json:"chunk_count"`
	Dimensions     int    `json:"dimensions"`
	Model          string `json:"model"`
	IndexPath      string `json:"index_path"`
	KnowledgeDir   string `json:"knowledge_dir"`
	Sources        int    `json:"sources"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
}

// WriteStatus writes index status to w.
func WriteStatus(w io.Writer, st *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Chunks:        %d\n", st.ChunkCount)
	fmt.Fprintf(w, "Sources:       %d\n", st.Sources)
	fmt.Fprintf(w, "Model:         %s (%d dims)\n", st.Model, st.Dimensions)
	fmt.Fprintf(w, "Index:         %s\n", st.IndexPath)
	fmt.Fprintf(w, "Knowledge dir: %s\n", st.KnowledgeDir)
	fmt.Fprintf(w, "Disk usage:    %s\n", FormatBytes(st.DiskUsageBytes))
	return nil
}

// FormatBytes renders n in binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
