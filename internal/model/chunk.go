package model

// Chunk is a contiguous span [Start, End) of its parent document text, in byte offsets.
type Chunk struct {
	Index     int
	Start     int
	End       int
	Text      string
	Embedding []float32
}

// Dimension returns the embedding length, 0 when not embedded yet.
func (c *Chunk) Dimension() int {
	return len(c.Embedding)
}
