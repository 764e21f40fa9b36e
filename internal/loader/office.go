package loader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lu4p/cat"

	"github.com/hyperjump/cmassist/internal/models"
)

const (
	docxDefaultPart  = "word/document.xml"
	contentTypesPart = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	pptxSlidePrefix  = "ppt/slides/slide"
	odfContentPart   = "content.xml"
)

var (
	// Word runs, including attributed forms such as <w:t xml:space="preserve">.
	wordText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// Paragraph ends in WordprocessingML.
	wordParagraphEnd = regexp.MustCompile(`</w:p>`)
	drawingText      = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	odfParagraph     = regexp.MustCompile(`(?s)<text:(?:p|h)(?:\s[^>]*)?>(.*?)</text:(?:p|h)>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)

	// The main document part may be renamed (e.g. word/document2.xml); [Content_Types].xml
	// lists it with either attribute order.
	mainPartByName = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainType) + `"`)
	mainPartByType = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainType) + `"[^>]+PartName="([^"]+)"`)

	slideNumber = regexp.MustCompile(`slide(\d+)\.xml$`)
)

var xmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")

func openZip(content []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip archive: %w", err)
	}
	return zr, nil
}

// readPart returns the named archive entry, or nil if it does not exist.
func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}

func docxMainPart(zr *zip.Reader) string {
	data, err := readPart(zr, contentTypesPart)
	if err != nil || data == nil {
		return docxDefaultPart
	}
	for _, re := range []*regexp.Regexp{mainPartByName, mainPartByType} {
		if m := re.FindSubmatch(data); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDefaultPart
}

// loadDOCX reads the text runs of the main document part, one line per paragraph.
func loadDOCX(_ string, content []byte) ([]models.Document, error) {
	zr, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("DOCX: %w", err)
	}
	part := docxMainPart(zr)
	data, err := readPart(zr, part)
	if err != nil {
		return nil, fmt.Errorf("DOCX: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("DOCX: %s not found", part)
	}
	var b strings.Builder
	for _, para := range wordParagraphEnd.Split(string(data), -1) {
		runs := wordText.FindAllStringSubmatch(para, -1)
		if len(runs) == 0 {
			continue
		}
		for _, r := range runs {
			b.WriteString(xmlEntities.Replace(r[1]))
		}
		b.WriteByte('\n')
	}
	return single(strings.TrimSpace(b.String())), nil
}

// loadDOC handles legacy .doc names. Files saved as OOXML with a .doc suffix are
// common; anything else is read through cat.
func loadDOC(path string, content []byte) ([]models.Document, error) {
	if docs, err := loadDOCX(path, content); err == nil {
		return docs, nil
	}
	return loadWithCat(path, content)
}

// loadWithCat extracts RTF and ODT through github.com/lu4p/cat.
func loadWithCat(path string, _ []byte) ([]models.Document, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("cat: %w", err)
	}
	return single(strings.TrimSpace(text)), nil
}

// loadPPTX returns one document per slide in slide order.
func loadPPTX(_ string, content []byte) ([]models.Document, error) {
	zr, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("PPTX: %w", err)
	}
	type slide struct {
		n    int
		text string
	}
	var slides []slide
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		data, err := readPart(zr, f.Name)
		if err != nil {
			return nil, fmt.Errorf("PPTX: %w", err)
		}
		var parts []string
		for _, m := range drawingText.FindAllSubmatch(data, -1) {
			if t := strings.TrimSpace(xmlEntities.Replace(string(m[1]))); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 {
			continue
		}
		n := 0
		if m := slideNumber.FindStringSubmatch(f.Name); len(m) > 1 {
			n, _ = strconv.Atoi(m[1])
		}
		slides = append(slides, slide{n: n, text: strings.Join(parts, " ")})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })
	docs := make([]models.Document, 0, len(slides))
	for _, s := range slides {
		docs = append(docs, models.Document{
			Text:     s.text,
			Metadata: map[string]string{models.MetaPage: strconv.Itoa(s.n)},
		})
	}
	return docs, nil
}

// loadODP and loadODS read content.xml of OpenDocument presentations and spreadsheets.
func loadODP(_ string, content []byte) ([]models.Document, error) {
	return loadODF("ODP", content)
}

func loadODS(_ string, content []byte) ([]models.Document, error) {
	return loadODF("ODS", content)
}

func loadODF(kind string, content []byte) ([]models.Document, error) {
	zr, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	data, err := readPart(zr, odfContentPart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%s: %s not found", kind, odfContentPart)
	}
	var lines []string
	for _, m := range odfParagraph.FindAllSubmatch(data, -1) {
		line := strings.TrimSpace(xmlEntities.Replace(xmlTag.ReplaceAllString(string(m[1]), "")))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return single(strings.Join(lines, "\n")), nil
}
