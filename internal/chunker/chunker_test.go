package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/cmassist/internal/models"
)

func doc(text string) models.Document {
	return models.Document{Text: text, Metadata: map[string]string{
		models.MetaSource:   "kb/frameworks/adkar.md",
		models.MetaCategory: "frameworks",
	}}
}

// reconstruct rebuilds the document text from the non-overlapping part of each chunk.
func reconstruct(chunks []models.Chunk) string {
	var b strings.Builder
	prevEnd := 0
	for _, c := range chunks {
		r := []rune(c.Text)
		b.WriteString(string(r[prevEnd-c.Start:]))
		prevEnd = c.End
	}
	return b.String()
}

func longText() string {
	var b strings.Builder
	for p := 0; p < 12; p++ {
		for s := 0; s < 6; s++ {
			fmt.Fprintf(&b, "Paragraph %d sentence %d explains how sponsors reinforce the change. ", p, s)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func mustNew(t *testing.T, size, overlap int) *Chunker {
	t.Helper()
	c, err := New(size, overlap)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", size, overlap, err)
	}
	return c
}

func TestNew_validatesOverlap(t *testing.T) {
	for _, cfg := range []struct{ size, overlap int }{{100, 100}, {100, -1}, {0, 0}} {
		if _, err := New(cfg.size, cfg.overlap); err == nil {
			t.Errorf("New(%d, %d): expected error", cfg.size, cfg.overlap)
		}
	}

	c := mustNew(t, DefaultChunkSize, DefaultChunkOverlap)
	if c.Size() != 1000 || c.Overlap() != 200 {
		t.Errorf("size %d, overlap %d", c.Size(), c.Overlap())
	}
}

func TestSplit_shortTextIsOneChunk(t *testing.T) {
	c := mustNew(t, 1000, 200)

	text := "ADKAR stands for Awareness, Desire, Knowledge, Ability and Reinforcement."
	chunks := c.Split([]models.Document{doc(text)})
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	ch := chunks[0]
	if ch.Text != text || ch.Start != 0 || ch.End != utf8.RuneCountInString(text) {
		t.Errorf("chunk = %q [%d, %d)", ch.Text, ch.Start, ch.End)
	}
	if ch.ID == "" {
		t.Error("chunk has no ID")
	}
}

func TestSplit_emptyTextHasNoChunks(t *testing.T) {
	c := mustNew(t, 100, 10)
	for _, docs := range [][]models.Document{{doc("")}, {doc(" \n\t\n ")}, nil} {
		if got := c.Split(docs); len(got) != 0 {
			t.Errorf("Split(%v) = %d chunks", docs, len(got))
		}
	}
}

func TestSplit_coverageAndOverlap(t *testing.T) {
	text := longText()
	for _, cfg := range []struct{ size, overlap int }{{1000, 200}, {300, 50}, {120, 0}, {80, 79}} {
		t.Run(fmt.Sprintf("%d/%d", cfg.size, cfg.overlap), func(t *testing.T) {
			chunks := mustNew(t, cfg.size, cfg.overlap).Split([]models.Document{doc(text)})
			if len(chunks) < 2 {
				t.Fatalf("got %d chunks", len(chunks))
			}

			if reconstruct(chunks) != text {
				t.Error("chunks do not reconstruct the document")
			}
			for i, ch := range chunks {
				if n := utf8.RuneCountInString(ch.Text); n > cfg.size {
					t.Errorf("chunk %d has %d runes", i, n)
				}
				if ch.Index != i {
					t.Errorf("chunk %d has index %d", i, ch.Index)
				}
				if i == 0 {
					continue
				}
				prev := chunks[i-1]
				if ch.Start <= prev.Start {
					t.Errorf("chunk %d does not advance", i)
				}
				if ch.Start > prev.End-cfg.overlap {
					t.Errorf("chunk %d shares fewer than %d runes", i, cfg.overlap)
				}
			}
		})
	}
}

func TestSplit_prefersParagraphBoundary(t *testing.T) {
	c := mustNew(t, 100, 10)

	text := strings.Repeat("A", 60) + "\n\n" + strings.Repeat("B", 60)
	chunks := c.Split([]models.Document{doc(text)})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if want := strings.Repeat("A", 60) + "\n\n"; chunks[0].Text != want {
		t.Errorf("first chunk = %q", chunks[0].Text)
	}
	if !strings.HasPrefix(chunks[1].Text, strings.Repeat("A", 8)+"\n\n") || !strings.HasSuffix(chunks[1].Text, strings.Repeat("B", 60)) {
		t.Errorf("second chunk = %q", chunks[1].Text)
	}
}

func TestSplit_avoidsSplittingWords(t *testing.T) {
	c := mustNew(t, 50, 10)

	text := strings.Repeat("stakeholder engagement builds commitment ", 20)
	chunks := c.Split([]models.Document{doc(text)})
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	for _, ch := range chunks[:len(chunks)-1] {
		if last, _ := utf8.DecodeLastRuneInString(ch.Text); !unicode.IsSpace(last) {
			t.Errorf("chunk %q ends mid-word", ch.Text)
		}
	}
}

func TestSplit_hardCutCountsRunes(t *testing.T) {
	c := mustNew(t, 100, 20)

	text := strings.Repeat("é", 250)
	chunks := c.Split([]models.Document{doc(text)})
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if starts := []int{chunks[0].Start, chunks[1].Start, chunks[2].Start}; !reflect.DeepEqual(starts, []int{0, 80, 160}) {
		t.Errorf("starts = %v", starts)
	}
	if n := utf8.RuneCountInString(chunks[0].Text); n != 100 {
		t.Errorf("first chunk has %d runes", n)
	}
	if n := utf8.RuneCountInString(chunks[2].Text); n != 90 {
		t.Errorf("last chunk has %d runes", n)
	}
	if reconstruct(chunks) != text {
		t.Error("chunks do not reconstruct the document")
	}
}

func TestSplit_metadataInherited(t *testing.T) {
	c := mustNew(t, 100, 10)

	d := doc(strings.Repeat("Lewin unfreeze change refreeze. ", 20))
	chunks := c.Split([]models.Document{d, doc("second document")})
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if !reflect.DeepEqual(ch.Metadata, d.Metadata) {
			t.Errorf("chunk %d metadata = %v", i, ch.Metadata)
		}
	}

	chunks[0].Metadata["category"] = "mutated"
	if d.Metadata["category"] != "frameworks" || chunks[1].Metadata["category"] != "frameworks" {
		t.Error("chunk metadata is shared")
	}

	last := chunks[len(chunks)-1]
	if last.Text != "second document" || last.Index != 0 {
		t.Errorf("last chunk = %q index %d", last.Text, last.Index)
	}
}
