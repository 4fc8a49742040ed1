package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"semantic-plagiarism/internal/aggregate"
	"semantic-plagiarism/internal/ai"
	"semantic-plagiarism/internal/chunker"
	"semantic-plagiarism/internal/model"
	"semantic-plagiarism/internal/report"
	"semantic-plagiarism/internal/similarity"
)

const (
	defaultBatchSize    = 32
	defaultEmbedTimeout = 60 * time.Second
)

// DocumentInput is one document after text extraction.
type DocumentInput struct {
	Filename string
	Text     string
}

// AnalyzeInput carries one analysis request. A nil Threshold uses the configured default.
type AnalyzeInput struct {
	RequestID string
	Source    DocumentInput
	Corpus    []DocumentInput
	Threshold *float64
}

// Options tunes the pipeline. Zero values fall back to defaults.
type Options struct {
	Threshold        float64
	BatchSize        int
	EmbedConcurrency int
	EmbedTimeout     time.Duration
	MatchConcurrency int
	MaxChunkChars    int
	Oversize         ai.OversizePolicy
	Report           report.Options
}

// AnalysisService runs chunking, embedding, matching, aggregation and report assembly
// for one source document against a corpus. It keeps no per-request state.
type AnalysisService struct {
	chunker  chunker.Chunker
	embedder ai.Embedder
	matcher  *similarity.Matcher
	opts     Options
}

func NewAnalysisService(ch chunker.Chunker, embedder ai.Embedder, opts Options) *AnalysisService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.EmbedConcurrency <= 0 {
		opts.EmbedConcurrency = 1
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = defaultEmbedTimeout
	}
	if opts.Oversize == "" {
		opts.Oversize = ai.OversizeTruncate
	}
	return &AnalysisService{
		chunker:  ch,
		embedder: embedder,
		matcher:  similarity.NewMatcher(similarity.WithConcurrency(opts.MatchConcurrency)),
		opts:     opts,
	}
}

// Threshold returns the default similarity threshold.
func (s *AnalysisService) Threshold() float64 { return s.opts.Threshold }

// Embedder exposes the embedding backend for health checks.
func (s *AnalysisService) Embedder() ai.Embedder { return s.embedder }

// Analyze returns the full report or an error wrapping one of the model sentinels;
// it never returns a partial report.
func (s *AnalysisService) Analyze(ctx context.Context, in AnalyzeInput) (*report.Response, error) {
	r, err := s.AnalyzeReport(ctx, in)
	if err != nil {
		return nil, err
	}
	resp := report.Assemble(r, s.opts.Report)
	return &resp, nil
}

// AnalyzeReport is Analyze without the response rendering.
func (s *AnalysisService) AnalyzeReport(ctx context.Context, in AnalyzeInput) (model.AnalysisReport, error) {
	started := time.Now()
	threshold, err := s.threshold(in.Threshold)
	if err != nil {
		return model.AnalysisReport{}, err
	}
	if len(in.Corpus) == 0 {
		return model.AnalysisReport{}, fmt.Errorf("%w: at least one corpus document is required", model.ErrInvalidInput)
	}
	for _, d := range append([]DocumentInput{in.Source}, in.Corpus...) {
		if !utf8.ValidString(d.Text) {
			return model.AnalysisReport{}, fmt.Errorf("%w: %q is not valid UTF-8 text", model.ErrInvalidInput, d.Filename)
		}
	}

	source, corpus, err := s.chunkAll(ctx, in)
	if err != nil {
		return model.AnalysisReport{}, err
	}

	// nothing can match an empty source, so the embedder is not consulted
	if len(source.Chunks) > 0 {
		docs := append([]*model.Document{&source}, pointers(corpus)...)
		if err := s.embedAll(ctx, docs); err != nil {
			return model.AnalysisReport{}, err
		}
	}

	results, err := s.matcher.Match(ctx, source, corpus, threshold)
	if err != nil {
		return model.AnalysisReport{}, err
	}
	r := aggregate.Aggregate(results, len(source.Chunks), corpus, threshold)

	log.Printf("SERVICE: analysis %s source=%q chunks=%d corpus=%d matches=%d coverage=%.2f%% took=%s",
		in.RequestID, source.Filename, r.SourceChunkCount, r.CorpusDocumentCount, r.TotalMatches,
		r.PlagiarismPercentage, time.Since(started).Round(time.Millisecond))
	return r, nil
}

func (s *AnalysisService) threshold(override *float64) (float64, error) {
	t := s.opts.Threshold
	if override != nil {
		t = *override
	}
	if math.IsNaN(t) || t < 0 || t > 1 {
		return 0, fmt.Errorf("%w: threshold must be between 0 and 1", model.ErrInvalidInput)
	}
	return t, nil
}

// chunkAll normalizes and chunks every document concurrently.
func (s *AnalysisService) chunkAll(ctx context.Context, in AnalyzeInput) (model.Document, []model.Document, error) {
	source := model.NewDocument(nameOr(in.Source.Filename, "source"), chunker.Normalize(in.Source.Text), model.RoleSource)
	corpus := make([]model.Document, len(in.Corpus))
	for i, d := range in.Corpus {
		corpus[i] = model.NewDocument(nameOr(d.Filename, fmt.Sprintf("corpus_%d", i)), chunker.Normalize(d.Text), model.RoleCorpus)
	}

	g, _ := errgroup.WithContext(ctx)
	chunkInto := func(d *model.Document) {
		g.Go(func() error {
			d.Chunks = s.chunker.Chunk(d.Text)
			return d.Validate()
		})
	}
	chunkInto(&source)
	for i := range corpus {
		chunkInto(&corpus[i])
	}
	if err := g.Wait(); err != nil {
		return model.Document{}, nil, err
	}
	return source, corpus, nil
}

type chunkRef struct {
	doc   *model.Document
	chunk int
}

// embedAll embeds every chunk of docs in batches under one timeout and stores the
// vectors on the chunks.
func (s *AnalysisService) embedAll(ctx context.Context, docs []*model.Document) error {
	var refs []chunkRef
	var texts []string
	for _, d := range docs {
		for i := range d.Chunks {
			text, err := s.embeddingText(d, i)
			if err != nil {
				return err
			}
			refs = append(refs, chunkRef{doc: d, chunk: i})
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()

	vecs := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(embedCtx)
	g.SetLimit(s.opts.EmbedConcurrency)
	for start := 0; start < len(texts); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(texts))
		g.Go(func() error {
			batch, err := s.embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("%w: embedder returned %d vectors for %d chunks", model.ErrInternalComputation, len(batch), end-start)
			}
			copy(vecs[start:end], batch)
			return nil
		})
	}
	// backends that ignore ctx must not hold the request past the timeout
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return s.classifyEmbedError(ctx, embedCtx, err)
		}
	case <-embedCtx.Done():
		return s.classifyEmbedError(ctx, embedCtx, embedCtx.Err())
	}

	dim := len(vecs[0])
	if dim == 0 {
		return fmt.Errorf("%w: embedder %s returned empty vectors", model.ErrInternalComputation, s.embedder.Name())
	}
	for i, v := range vecs {
		if len(v) != dim {
			return fmt.Errorf("%w: embedding %d has dimension %d, want %d", model.ErrInternalComputation, i, len(v), dim)
		}
		refs[i].doc.Chunks[refs[i].chunk].Embedding = v
	}
	return nil
}

func (s *AnalysisService) embeddingText(d *model.Document, i int) (string, error) {
	text := d.Chunks[i].Text
	limit := s.opts.MaxChunkChars
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, nil
	}
	if s.opts.Oversize == ai.OversizeReject {
		return "", fmt.Errorf("%w: chunk %d of %q exceeds %d characters", model.ErrInvalidInput, i, d.Filename, limit)
	}
	return string([]rune(text)[:limit]), nil
}

func (s *AnalysisService) classifyEmbedError(parent, embedCtx context.Context, err error) error {
	if errors.Is(err, model.ErrInvalidInput) || errors.Is(err, model.ErrInternalComputation) {
		return err
	}
	if parent.Err() != nil {
		return fmt.Errorf("analysis canceled: %w", parent.Err())
	}
	var netErr net.Error
	if errors.Is(embedCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: embedder %s did not answer within %s", model.ErrDependencyTimeout, s.embedder.Name(), s.opts.EmbedTimeout)
	}
	return fmt.Errorf("%w: embedder %s: %v", model.ErrDependencyUnavailable, s.embedder.Name(), err)
}

func pointers(docs []model.Document) []*model.Document {
	out := make([]*model.Document, len(docs))
	for i := range docs {
		out[i] = &docs[i]
	}
	return out
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
