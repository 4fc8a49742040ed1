// Package chunker splits document text into ordered, deterministic spans for embedding.
package chunker

import (
	"fmt"
	"strings"

	"semantic-plagiarism/internal/model"
)

// Strategy names accepted by New.
const (
	StrategySentence = "sentence"
	StrategyWindow   = "window"
)

// Chunker turns normalized text into chunks whose spans index into that same text.
type Chunker interface {
	Name() string
	Chunk(text string) []model.Chunk
}

// Normalize collapses every run of whitespace into a single space and trims the ends.
// Chunk spans always refer to normalized text.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// New returns the chunker for a configured strategy. Size and overlap are in words for the
// sentence strategy and in characters for the window strategy.
func New(strategy string, size, overlap int) (Chunker, error) {
	switch strategy {
	case StrategySentence, "":
		return NewSentenceChunker(WithChunkSize(size), WithOverlap(overlap)), nil
	case StrategyWindow:
		return NewWindowChunker(WithChunkSize(size), WithOverlap(overlap)), nil
	default:
		return nil, fmt.Errorf("%w: unknown chunk strategy %q", model.ErrInvalidInput, strategy)
	}
}

type options struct {
	size    int
	overlap int
}

// Option configures a chunker.
type Option func(*options)

// WithChunkSize sets the maximum chunk size. Non-positive values keep the default.
func WithChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.size = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks. Negative values keep the default.
func WithOverlap(overlap int) Option {
	return func(o *options) {
		if overlap >= 0 {
			o.overlap = overlap
		}
	}
}

func buildOptions(size, overlap int, opts []Option) options {
	o := options{size: size, overlap: overlap}
	for _, opt := range opts {
		opt(&o)
	}
	if o.overlap >= o.size {
		o.overlap = o.size / 4
	}
	return o
}
