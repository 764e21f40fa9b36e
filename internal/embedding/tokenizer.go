package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

const maxWordRunes = 100

// WordPiece is the uncased BERT tokenizer: basic splitting on whitespace and
// punctuation followed by greedy longest-match against vocab.txt.
type WordPiece struct {
	vocab              map[string]int64
	cls, sep, unk, pad int64
}

// LoadVocab reads a vocab.txt file that sits next to the ONNX model.
func LoadVocab(path string) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()
	wp, err := NewWordPiece(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return wp, nil
}

// NewWordPiece reads one token per line; the line number is the token ID.
func NewWordPiece(r io.Reader) (*WordPiece, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	wp := &WordPiece{vocab: vocab}
	for tok, dst := range map[string]*int64{"[CLS]": &wp.cls, "[SEP]": &wp.sep, "[UNK]": &wp.unk, "[PAD]": &wp.pad} {
		v, ok := vocab[tok]
		if !ok {
			return nil, fmt.Errorf("vocabulary has no %s token", tok)
		}
		*dst = v
	}
	return wp, nil
}

// Tokenize encodes text as [CLS] pieces... [SEP], truncated and padded to maxTokens.
func (w *WordPiece) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 2
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	for i := range inputIDs {
		inputIDs[i] = w.pad
	}

	inputIDs[0] = w.cls
	attentionMask[0] = 1
	pos := 1
	for _, id := range w.Encode(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = w.sep
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// Encode returns the word-piece IDs of text without special tokens.
func (w *WordPiece) Encode(text string) []int64 {
	var ids []int64
	for _, word := range basicTokens(text) {
		ids = append(ids, w.pieces(word)...)
	}
	return ids
}

func (w *WordPiece) pieces(word string) []int64 {
	rs := []rune(word)
	if len(rs) > maxWordRunes {
		return []int64{w.unk}
	}
	var ids []int64
	for start := 0; start < len(rs); {
		end := len(rs)
		found := false
		for ; end > start; end-- {
			sub := string(rs[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := w.vocab[sub]; ok {
				ids = append(ids, id)
				found = true
				break
			}
		}
		if !found {
			return []int64{w.unk}
		}
		start = end
	}
	return ids
}

// basicTokens lower-cases, strips accents, and splits text into words with
// every punctuation mark and CJK character as its own token.
func basicTokens(text string) []string {
	text = strings.ToLower(text)
	if s, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text); err == nil {
		text = s
	}
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)):
		case unicode.IsSpace(r):
			flush()
		case isPunct(r) || unicode.Is(unicode.Han, r):
			flush()
			out = append(out, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// isPunct follows BERT: all non-alphanumeric ASCII symbols count as punctuation.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// Tokens lower-cases text and splits it into runs of letters and digits.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
