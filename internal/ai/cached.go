package ai

import (
	"context"
	"log"
)

// EmbeddingCache stores vectors keyed by model name and chunk text.
// GetMany returns one entry per text, nil for misses.
type EmbeddingCache interface {
	GetMany(ctx context.Context, model string, texts []string) ([][]float32, error)
	SetMany(ctx context.Context, model string, texts []string, vecs [][]float32) error
}

// CachedEmbedder serves repeated chunk texts from a cache and embeds only misses.
// Cache failures are logged and never fail the request.
type CachedEmbedder struct {
	inner Embedder
	cache EmbeddingCache
}

func NewCachedEmbedder(inner Embedder, cache EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (c *CachedEmbedder) Name() string { return c.inner.Name() }

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	name := c.inner.Name()
	out, err := c.cache.GetMany(ctx, name, texts)
	if err != nil || len(out) != len(texts) {
		if err != nil {
			log.Printf("EMBEDDER: cache read failed, embedding %d texts: %v", len(texts), err)
		}
		out = make([][]float32, len(texts))
	}

	var missIdx []int
	var missTexts []string
	for i, v := range out {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if err := checkBatch(missTexts, vecs); err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
	}
	if err := c.cache.SetMany(ctx, name, missTexts, vecs); err != nil {
		log.Printf("EMBEDDER: cache write failed: %v", err)
	}
	return out, nil
}

// Ping forwards to the wrapped embedder when it supports it.
func (c *CachedEmbedder) Ping(ctx context.Context) error {
	if p, ok := c.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *CachedEmbedder) Init(ctx context.Context) error {
	if i, ok := c.inner.(Initializer); ok {
		return i.Init(ctx)
	}
	return nil
}

func (c *CachedEmbedder) Close() error {
	if cl, ok := c.inner.(Closer); ok {
		return cl.Close()
	}
	return nil
}
