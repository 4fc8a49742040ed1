package chunker

import (
	"strings"
	"unicode/utf8"

	"semantic-plagiarism/internal/model"
)

// Defaults for the window strategy, in characters.
const (
	DefaultWindowSize    = 512
	DefaultWindowOverlap = 64
)

// WindowChunker cuts text into fixed windows of size characters that overlap by overlap characters.
// The last window may be shorter.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker creates a window chunker.
func NewWindowChunker(opts ...Option) *WindowChunker {
	o := buildOptions(DefaultWindowSize, DefaultWindowOverlap, opts)
	return &WindowChunker{size: o.size, overlap: o.overlap}
}

func (c *WindowChunker) Name() string { return StrategyWindow }

// Chunk splits normalized text by rune count so multi-byte characters are never cut.
// Blank text yields no chunks.
func (c *WindowChunker) Chunk(text string) []model.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	runes := len(offsets)
	offsets = append(offsets, len(text))

	var chunks []model.Chunk
	step := c.size - c.overlap
	for i := 0; i < runes; i += step {
		end := i + c.size
		if end > runes {
			end = runes
		}
		start, stop := offsets[i], offsets[end]
		chunks = append(chunks, model.Chunk{
			Index: len(chunks),
			Start: start,
			End:   stop,
			Text:  text[start:stop],
		})
		if end == runes {
			break
		}
	}
	return chunks
}
