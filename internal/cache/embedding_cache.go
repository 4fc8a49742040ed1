package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// EmbeddingCache stores chunk embeddings in redis, keyed by model and a
// blake2b digest of the chunk text.
type EmbeddingCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewEmbeddingCache(client *redisv9.Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &EmbeddingCache{client: client, ttl: ttl}
}

// GetMany returns one vector per text, nil where the cache has no entry.
func (c *EmbeddingCache) GetMany(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.embeddingKey(model, t)
	}
	raw, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget embeddings failed: %w", err)
	}

	out := make([][]float32, len(texts))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(s), &vec); err != nil {
			// corrupt entry, re-embed
			continue
		}
		out[i] = vec
	}
	return out, nil
}

func (c *EmbeddingCache) SetMany(ctx context.Context, model string, texts []string, vecs [][]float32) error {
	if len(texts) != len(vecs) {
		return fmt.Errorf("embedding cache: %d texts for %d vectors", len(texts), len(vecs))
	}
	pipe := c.client.Pipeline()
	for i, t := range texts {
		payload, err := json.Marshal(vecs[i])
		if err != nil {
			return fmt.Errorf("marshal embedding cache failed: %w", err)
		}
		pipe.Set(ctx, c.embeddingKey(model, t), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set embeddings failed: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) embeddingKey(model, text string) string {
	sum := blake2b.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s:%s", model, hex.EncodeToString(sum[:]))
}
