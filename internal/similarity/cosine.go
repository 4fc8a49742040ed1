// Package similarity scores source chunks against corpus chunks and keeps the pairs
// that reach the threshold.
package similarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"semantic-plagiarism/internal/model"
)

// Cosine returns the cosine similarity of a and b clamped to [0, 1].
// A zero-magnitude vector has similarity 0 with everything.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: embedding dimensions differ: %d vs %d", model.ErrInternalComputation, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if math.IsNaN(dot+na+nb) || math.IsInf(dot+na+nb, 0) {
		return 0, fmt.Errorf("%w: non-finite embedding value", model.ErrInternalComputation)
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return clamp(dot / (math.Sqrt(na) * math.Sqrt(nb))), nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalizedRows stacks vecs into an L2-normalized len(vecs) x dim matrix.
// Zero vectors stay zero rows.
func normalizedRows(vecs [][]float32, dim int) (*mat.Dense, error) {
	data := make([]float64, len(vecs)*dim)
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, want %d", model.ErrInternalComputation, i, len(v), dim)
		}
		var n float64
		for _, x := range v {
			n += float64(x) * float64(x)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%w: embedding %d has non-finite values", model.ErrInternalComputation, i)
		}
		if n == 0 {
			continue
		}
		n = math.Sqrt(n)
		row := data[i*dim : (i+1)*dim]
		for j, x := range v {
			row[j] = float64(x) / n
		}
	}
	return mat.NewDense(len(vecs), dim, data), nil
}

// Matrix computes the clamped cosine similarity of every source row against every
// corpus row as one matrix product. Both sides must be non-empty.
func Matrix(source, corpus [][]float32) (*mat.Dense, error) {
	if len(source) == 0 || len(corpus) == 0 {
		return nil, fmt.Errorf("%w: empty similarity matrix", model.ErrInternalComputation)
	}
	dim := len(source[0])
	if dim == 0 {
		for _, v := range corpus {
			if len(v) != 0 {
				return nil, fmt.Errorf("%w: embedding dimensions differ: 0 vs %d", model.ErrInternalComputation, len(v))
			}
		}
		return mat.NewDense(len(source), len(corpus), nil), nil
	}
	s, err := normalizedRows(source, dim)
	if err != nil {
		return nil, err
	}
	c, err := normalizedRows(corpus, dim)
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(len(source), len(corpus), nil)
	out.Mul(s, c.T())

	raw := out.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: similarity of chunk pair (%d,%d) is not finite", model.ErrInternalComputation, i, j)
			}
			row[j] = clamp(v)
		}
	}
	return out, nil
}
