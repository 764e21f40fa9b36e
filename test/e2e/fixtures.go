// Package e2e ingests a corpus written in every supported office format and
// checks that retrieval finds each document again.
package e2e

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// FileExtensions are the formats the corpus is written in. PDF is absent: there
// is no small way to produce a PDF with extractable text.
var FileExtensions = []string{".txt", ".md", ".docx", ".xlsx", ".pptx", ".odp", ".ods"}

// MinimalFile returns the bytes of a minimal file of type ext holding text.
func MinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".txt":
		return []byte(text), nil
	case ".md":
		return []byte("# Notes\n\n" + text + "\n"), nil
	case ".docx":
		return zipped("word/document.xml",
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>`+escape(text)+`</w:t></w:r></w:p></w:body></w:document>`)
	case ".pptx":
		return zipped("ppt/slides/slide1.xml",
			`<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>`+escape(text)+`</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
	case ".odp":
		return zipped("content.xml",
			`<office:document><office:body><draw:page><draw:text-box><text:p>`+escape(text)+`</text:p></draw:text-box></draw:page></office:body></office:document>`)
	case ".ods":
		return zipped("content.xml",
			`<office:document><office:body><table:table><table:table-row><table:table-cell><text:p>`+escape(text)+`</text:p></table:table-cell></table:table-row></table:table></office:body></office:document>`)
	case ".xlsx":
		return workbook(text)
	default:
		return nil, fmt.Errorf("no fixture for %s", ext)
	}
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func zipped(name, content string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func workbook(text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", text); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
