package loader

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/hyperjump/cmassist/internal/models"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// loadMarkdown reduces a Markdown file to its readable text.
// Paragraph breaks are kept because the chunker prefers to split on them.
func loadMarkdown(_ string, content []byte) ([]models.Document, error) {
	return single(stripMarkdown(toValidUTF8(content))), nil
}

// stripMarkdown parses s and keeps only the text a reader would see.
// HTML is dropped; code is kept verbatim.
func stripMarkdown(s string) string {
	src := []byte(strings.ReplaceAll(s, "\r\n", "\n"))
	doc := markdown.Parser().Parse(text.NewReader(src))

	var out mdWriter
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				out.Write(unescapeMarkdown(node.Segment.Value(src)))
				if node.SoftLineBreak() || node.HardLineBreak() {
					out.breakLines(1)
				}
			}
			return ast.WalkContinue, nil
		case *ast.String:
			if entering {
				out.Write(node.Value)
			}
			return ast.WalkContinue, nil
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					out.Write(t.Segment.Value(src))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			if entering {
				out.Write(node.Label(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					out.Write(seg.Value(src))
				}
				out.breakLines(2)
			}
			return ast.WalkSkipChildren, nil
		case *extast.TableCell:
			if entering && node.PreviousSibling() != nil {
				out.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		case *extast.TableRow, *extast.TableHeader, *ast.TextBlock, *ast.ListItem:
			if !entering {
				out.breakLines(1)
			}
			return ast.WalkContinue, nil
		}
		if !entering && n.Type() == ast.TypeBlock {
			out.breakLines(2)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(out.String())
}

// unescapeMarkdown resolves backslash escapes and character references the
// way a renderer would.
func unescapeMarkdown(b []byte) []byte {
	if bytes.IndexByte(b, '\\') >= 0 {
		b = util.UnescapePunctuations(b)
	}
	if bytes.IndexByte(b, '&') >= 0 {
		b = util.ResolveEntityNames(util.ResolveNumericReferences(b))
	}
	return b
}

type mdWriter struct {
	bytes.Buffer
}

// breakLines ends the output with at least n newlines. Leading breaks are never written.
func (w *mdWriter) breakLines(n int) {
	if w.Len() == 0 {
		return
	}
	b := w.Bytes()
	have := 0
	for i := len(b) - 1; i >= 0 && b[i] == '\n' && have < n; i-- {
		have++
	}
	for ; have < n; have++ {
		w.WriteByte('\n')
	}
}
