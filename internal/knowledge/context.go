package knowledge

import (
	"fmt"
	"strings"

	"github.com/hyperjump/cmassist/internal/models"
)

// NoContext is the prompt context used when retrieval found nothing.
const NoContext = "No relevant information found in the knowledge base."

// BuildContext renders retrieved chunks as numbered prompt context blocks.
func BuildContext(chunks []models.Chunk) string {
	if len(chunks) == 0 {
		return NoContext
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		source := c.Source()
		if source == "" {
			source = "Unknown source"
		}
		parts[i] = fmt.Sprintf("[Document %d] From %s:\n%s\n", i+1, source, c.Text)
	}
	return strings.Join(parts, "\n")
}
