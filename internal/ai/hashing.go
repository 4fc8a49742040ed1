package ai

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/minio/highwayhash"
)

// DefaultHashingDimensions is the vector length of the hashing embedder.
const DefaultHashingDimensions = 384

var (
	tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

	// fixed key so vectors are stable across processes
	hashingKey = []byte("semantic-plagiarism-hashing-v1..")
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "in": {}, "is": {}, "it": {}, "its": {}, "of": {},
	"on": {}, "or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
}

// HashingEmbedder is a local lexical embedder: unigram and bigram features are
// feature-hashed with HighwayHash into a signed, log-weighted, L2-normalized vector.
// It needs no model files or network and is deterministic.
type HashingEmbedder struct {
	dims int
}

func NewHashingEmbedder(dims int) (*HashingEmbedder, error) {
	if dims <= 0 {
		dims = DefaultHashingDimensions
	}
	if len(hashingKey) != 32 {
		return nil, fmt.Errorf("hashing key must be 32 bytes")
	}
	return &HashingEmbedder{dims: dims}, nil
}

func (h *HashingEmbedder) Name() string { return fmt.Sprintf("hashing-%d", h.dims) }

func (h *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashingEmbedder) embed(text string) []float32 {
	tokens := tokenize(text)
	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i > 0 {
			counts[tokens[i-1]+" "+tok]++
		}
	}

	vec := make([]float64, h.dims)
	for feat, n := range counts {
		sum := highwayhash.Sum64([]byte(feat), hashingKey)
		idx := int(sum % uint64(h.dims))
		w := 1 + math.Log(float64(n))
		if sum>>63 == 1 {
			w = -w
		}
		vec[idx] += w
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, h.dims)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if _, stop := stopWords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}
