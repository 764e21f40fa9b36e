package loader

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/cmassist/internal/models"
)

// loadPDF returns one document per non-null page, tagged with its 1-based page number.
func loadPDF(_ string, content []byte) ([]models.Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	docs := make([]models.Document, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		docs = append(docs, models.Document{
			Text:     text,
			Metadata: map[string]string{models.MetaPage: strconv.Itoa(i)},
		})
	}
	return docs, nil
}
