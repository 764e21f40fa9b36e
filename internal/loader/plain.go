package loader

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/cmassist/internal/models"
)

// loadPlain returns content as one document. Invalid UTF-8 sequences are
// replaced with the replacement character.
func loadPlain(_ string, content []byte) ([]models.Document, error) {
	return single(toValidUTF8(content)), nil
}

func toValidUTF8(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�")
	}
	return string(content)
}
