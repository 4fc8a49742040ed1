package ai

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxWordPieceChars = 100

// WordPiece is a BERT-style uncased tokenizer driven by a vocab.txt file.
type WordPiece struct {
	vocab map[string]int64
	unk   int64
	cls   int64
	sep   int64
	lower bool
}

// LoadWordPiece reads a vocabulary with one token per line; the line number is the id.
func LoadWordPiece(path string, lower bool) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	var tokens []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		tokens = append(tokens, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	return NewWordPiece(tokens, lower)
}

func NewWordPiece(tokens []string, lower bool) (*WordPiece, error) {
	vocab := make(map[string]int64, len(tokens))
	for i, t := range tokens {
		if _, dup := vocab[t]; !dup {
			vocab[t] = int64(i)
		}
	}
	w := &WordPiece{vocab: vocab, lower: lower}
	for _, special := range []struct {
		tok string
		dst *int64
	}{{"[UNK]", &w.unk}, {"[CLS]", &w.cls}, {"[SEP]", &w.sep}} {
		id, ok := vocab[special.tok]
		if !ok {
			return nil, fmt.Errorf("vocab is missing %s", special.tok)
		}
		*special.dst = id
	}
	return w, nil
}

// Encode returns [CLS] tokens... [SEP], truncated to maxTokens ids in total.
// truncated reports whether word pieces were dropped.
func (w *WordPiece) Encode(text string, maxTokens int) (ids []int64, truncated bool) {
	ids = []int64{w.cls}
	for _, word := range w.basicTokens(text) {
		ids = append(ids, w.pieces(word)...)
	}
	if maxTokens >= 2 && len(ids)+1 > maxTokens {
		ids = ids[:maxTokens-1]
		truncated = true
	}
	return append(ids, w.sep), truncated
}

func (w *WordPiece) basicTokens(text string) []string {
	if w.lower {
		text = strings.ToLower(text)
		stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		if s, _, err := transform.String(stripAccents, text); err == nil {
			text = s
		}
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
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush()
		case isPunct(r):
			flush()
			out = append(out, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// pieces splits one word greedily into the longest vocabulary matches.
func (w *WordPiece) pieces(word string) []int64 {
	rs := []rune(word)
	if len(rs) > maxWordPieceChars {
		return []int64{w.unk}
	}
	var ids []int64
	for start := 0; start < len(rs); {
		end := len(rs)
		found := int64(-1)
		for end > start {
			sub := string(rs[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := w.vocab[sub]; ok {
				found = id
				break
			}
			end--
		}
		if found < 0 {
			return []int64{w.unk}
		}
		ids = append(ids, found)
		start = end
	}
	return ids
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
