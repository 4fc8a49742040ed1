// Package ai holds the embedding capability: the Embedder port and its backends.
package ai

import (
	"context"
	"fmt"

	"semantic-plagiarism/internal/model"
)

// Embedder maps texts to fixed-length vectors, one per text, in input order.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Name identifies the model; vectors from different names are not comparable.
	Name() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Initializer is implemented by embedders that load a model before first use.
type Initializer interface {
	Init(ctx context.Context) error
}

// Pinger is implemented by embedders backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer releases model or connection resources.
type Closer interface {
	Close() error
}

// checkBatch verifies a backend answered one non-empty vector per text with a single dimensionality.
func checkBatch(texts []string, vecs [][]float32) error {
	if len(vecs) != len(texts) {
		return fmt.Errorf("%w: embedding count mismatch: got %d for %d texts", model.ErrInternalComputation, len(vecs), len(texts))
	}
	for i := range vecs {
		if len(vecs[i]) == 0 {
			return fmt.Errorf("%w: missing embedding for text %d", model.ErrInternalComputation, i)
		}
		if len(vecs[i]) != len(vecs[0]) {
			return fmt.Errorf("%w: embedding dimension mismatch: %d vs %d", model.ErrInternalComputation, len(vecs[i]), len(vecs[0]))
		}
	}
	return nil
}
