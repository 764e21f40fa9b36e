package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/cmassist/internal/models"
)

// loadExcel returns one document per non-empty sheet, rows tab-separated.
func loadExcel(_ string, content []byte) ([]models.Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var docs []models.Document
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var buf strings.Builder
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
		text := strings.TrimSpace(buf.String())
		if text == "" {
			continue
		}
		docs = append(docs, models.Document{
			Text:     text,
			Metadata: map[string]string{models.MetaSheet: sheet},
		})
	}
	return docs, nil
}
