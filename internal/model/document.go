package model

import "fmt"

// Role tells whether a document is the one under suspicion or a comparison document.
type Role string

const (
	RoleSource Role = "source"
	RoleCorpus Role = "corpus"
)

// Document is one uploaded file after text extraction. It lives for a single analysis request.
type Document struct {
	Filename string
	Text     string
	Role     Role
	Chunks   []Chunk
}

// NewDocument builds a document without chunks.
func NewDocument(filename, text string, role Role) Document {
	return Document{Filename: filename, Text: text, Role: role}
}

// ChunkTexts returns the chunk texts in position order.
func (d *Document) ChunkTexts() []string {
	texts := make([]string, len(d.Chunks))
	for i := range d.Chunks {
		texts[i] = d.Chunks[i].Text
	}
	return texts
}

// Embeddings returns the chunk embeddings in position order.
func (d *Document) Embeddings() [][]float32 {
	vecs := make([][]float32, len(d.Chunks))
	for i := range d.Chunks {
		vecs[i] = d.Chunks[i].Embedding
	}
	return vecs
}

// Validate checks that every chunk is a span of the document text and that positions are ordered.
func (d *Document) Validate() error {
	for i, c := range d.Chunks {
		if c.Index != i {
			return fmt.Errorf("%w: chunk %d of %q has position %d", ErrInternalComputation, i, d.Filename, c.Index)
		}
		if c.Start < 0 || c.End > len(d.Text) || c.Start > c.End {
			return fmt.Errorf("%w: chunk %d of %q spans [%d,%d) outside text of length %d",
				ErrInternalComputation, i, d.Filename, c.Start, c.End, len(d.Text))
		}
		if d.Text[c.Start:c.End] != c.Text {
			return fmt.Errorf("%w: chunk %d of %q does not match its span", ErrInternalComputation, i, d.Filename)
		}
	}
	return nil
}
