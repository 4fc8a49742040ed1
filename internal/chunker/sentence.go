package chunker

import (
	"regexp"

	"semantic-plagiarism/internal/model"
)

// Defaults for the sentence strategy, in words.
const (
	DefaultSentenceChunkSize = 500
	DefaultSentenceOverlap   = 50
)

var (
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
	wordPattern      = regexp.MustCompile(`\S+`)
)

// SentenceChunker packs whole sentences into chunks of at most size words. Consecutive chunks
// share trailing sentences totalling at most overlap words.
type SentenceChunker struct {
	size    int
	overlap int
}

// NewSentenceChunker creates a sentence chunker.
func NewSentenceChunker(opts ...Option) *SentenceChunker {
	o := buildOptions(DefaultSentenceChunkSize, DefaultSentenceOverlap, opts)
	return &SentenceChunker{size: o.size, overlap: o.overlap}
}

func (c *SentenceChunker) Name() string { return StrategySentence }

type span struct {
	start int
	end   int
	words int
}

// Chunk splits normalized text. Empty text yields no chunks.
func (c *SentenceChunker) Chunk(text string) []model.Chunk {
	units := c.units(text)
	if len(units) == 0 {
		return nil
	}

	var (
		chunks  []model.Chunk
		current []span
		words   int
	)
	flush := func() {
		start, end := current[0].start, current[len(current)-1].end
		chunks = append(chunks, model.Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  text[start:end],
		})
	}

	for _, u := range units {
		if words+u.words > c.size && len(current) > 0 {
			flush()
			current, words = c.tail(current)
			if words+u.words > c.size {
				current, words = nil, 0
			}
		}
		current = append(current, u)
		words += u.words
	}
	if len(current) > 0 {
		flush()
	}
	return chunks
}

// tail keeps the trailing sentences that fit in the overlap budget.
func (c *SentenceChunker) tail(current []span) ([]span, int) {
	if c.overlap == 0 {
		return nil, 0
	}
	words := 0
	i := len(current)
	for i > 0 && words+current[i-1].words <= c.overlap {
		words += current[i-1].words
		i--
	}
	if i == len(current) {
		return nil, 0
	}
	kept := make([]span, len(current)-i)
	copy(kept, current[i:])
	return kept, words
}

// units returns sentence spans, with sentences longer than the budget cut into word windows.
func (c *SentenceChunker) units(text string) []span {
	if text == "" {
		return nil
	}
	var units []span
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		units = c.appendSentence(units, text, start, loc[0]+1)
		start = loc[1]
	}
	if start < len(text) {
		units = c.appendSentence(units, text, start, len(text))
	}
	return units
}

func (c *SentenceChunker) appendSentence(units []span, text string, start, end int) []span {
	words := wordPattern.FindAllStringIndex(text[start:end], -1)
	if len(words) == 0 {
		return units
	}
	if len(words) <= c.size {
		return append(units, span{start: start, end: end, words: len(words)})
	}
	for i := 0; i < len(words); i += c.size {
		j := i + c.size
		if j > len(words) {
			j = len(words)
		}
		units = append(units, span{
			start: start + words[i][0],
			end:   start + words[j-1][1],
			words: j - i,
		})
	}
	return units
}
