package similarity

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"semantic-plagiarism/internal/model"
)

// Matcher compares one source document against every corpus document.
// Each corpus document is scored independently, so documents run concurrently.
type Matcher struct {
	concurrency int
}

type Option func(*Matcher)

// WithConcurrency bounds how many corpus documents are scored at once.
func WithConcurrency(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{concurrency: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns one DocumentMatches per corpus document, in corpus order. Every pair
// scoring at least threshold is kept, so one source chunk may match many corpus chunks.
func (m *Matcher) Match(ctx context.Context, source model.Document, corpus []model.Document, threshold float64) ([]model.DocumentMatches, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0,1]", model.ErrInvalidInput, threshold)
	}

	results := make([]model.DocumentMatches, len(corpus))
	srcVecs := source.Embeddings()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i := range corpus {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dm, err := matchDocument(source, srcVecs, corpus[i], i, threshold)
			if err != nil {
				return fmt.Errorf("match %q: %w", corpus[i].Filename, err)
			}
			results[i] = dm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func matchDocument(source model.Document, srcVecs [][]float32, doc model.Document, docIndex int, threshold float64) (model.DocumentMatches, error) {
	dm := model.DocumentMatches{DocumentIndex: docIndex, Matches: []model.Match{}}
	if len(srcVecs) == 0 || len(doc.Chunks) == 0 {
		return dm, nil
	}

	sims, err := Matrix(srcVecs, doc.Embeddings())
	if err != nil {
		return dm, err
	}

	rows, cols := sims.Dims()
	stats := model.PairStats{Pairs: rows * cols, Min: 1}
	var sum float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := sims.At(i, j)
			sum += v
			if v < stats.Min {
				stats.Min = v
			}
			if v > stats.Max {
				stats.Max = v
			}
			if v < threshold {
				continue
			}
			dm.Matches = append(dm.Matches, model.Match{
				SourceIndex:    i,
				CorpusIndex:    j,
				CorpusDocument: docIndex,
				CorpusFilename: doc.Filename,
				SourceText:     source.Chunks[i].Text,
				CorpusText:     doc.Chunks[j].Text,
				Similarity:     v,
			})
		}
	}
	stats.Mean = sum / float64(stats.Pairs)
	dm.Stats = stats
	return dm, nil
}
