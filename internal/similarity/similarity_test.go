package similarity

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semantic-plagiarism/internal/model"
)

func doc(name string, role model.Role, vecs ...[]float32) model.Document {
	d := model.NewDocument(name, "", role)
	for i, v := range vecs {
		d.Chunks = append(d.Chunks, model.Chunk{Index: i, Text: fmt.Sprintf("%s-%d", name, i), Embedding: v})
	}
	return d
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite clamps to zero", []float32{1, 1}, []float32{-1, -1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"partial", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestCosine_Faults(t *testing.T) {
	_, err := Cosine([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, model.ErrInternalComputation)

	nan := float32(math.NaN())
	_, err = Cosine([]float32{nan, 1}, []float32{1, 1})
	assert.ErrorIs(t, err, model.ErrInternalComputation)
}

func TestMatrix_AgreesWithCosine(t *testing.T) {
	src := [][]float32{{1, 0, 0}, {0.5, 0.5, 0}, {0, 0, 0}}
	cor := [][]float32{{1, 1, 0}, {-1, 0, 0}, {0, 0, 2}}

	m, err := Matrix(src, cor)
	require.NoError(t, err)
	rows, cols := m.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 3, cols)
	for i := range src {
		for j := range cor {
			want, err := Cosine(src[i], cor[j])
			require.NoError(t, err)
			assert.InDelta(t, want, m.At(i, j), 1e-9, "pair (%d,%d)", i, j)
		}
	}
}

func TestMatrix_Faults(t *testing.T) {
	_, err := Matrix(nil, [][]float32{{1}})
	assert.ErrorIs(t, err, model.ErrInternalComputation)

	_, err = Matrix([][]float32{{1, 2}}, [][]float32{{1}})
	assert.ErrorIs(t, err, model.ErrInternalComputation)

	inf := float32(math.Inf(1))
	_, err = Matrix([][]float32{{1, 2}}, [][]float32{{inf, 1}})
	assert.ErrorIs(t, err, model.ErrInternalComputation)
}

func TestMatrix_ZeroDimension(t *testing.T) {
	m, err := Matrix([][]float32{{}}, [][]float32{{}, {}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.At(0, 1))
}

func TestMatcher_ManyToMany(t *testing.T) {
	source := doc("src", model.RoleSource, []float32{1, 0}, []float32{0, 1})
	corpus := []model.Document{
		doc("a.txt", model.RoleCorpus, []float32{1, 0}, []float32{1, 0.1}, []float32{0, 1}),
		doc("b.txt", model.RoleCorpus, []float32{-1, 0}),
	}

	got, err := NewMatcher().Match(context.Background(), source, corpus, 0.9)
	require.NoError(t, err)
	require.Len(t, got, 2)

	a := got[0]
	assert.Equal(t, 0, a.DocumentIndex)
	require.Len(t, a.Matches, 3)
	assert.Equal(t, 0, a.Matches[0].SourceIndex)
	assert.Equal(t, 0, a.Matches[0].CorpusIndex)
	assert.Equal(t, 0, a.Matches[1].SourceIndex)
	assert.Equal(t, 1, a.Matches[1].CorpusIndex)
	assert.Equal(t, 1, a.Matches[2].SourceIndex)
	assert.Equal(t, 2, a.Matches[2].CorpusIndex)
	assert.Equal(t, "a.txt", a.Matches[0].CorpusFilename)
	assert.Equal(t, "src-0", a.Matches[0].SourceText)
	assert.Equal(t, "a.txt-1", a.Matches[1].CorpusText)
	assert.Equal(t, 6, a.Stats.Pairs)
	assert.InDelta(t, 1.0, a.Stats.Max, 1e-9)
	assert.Equal(t, 0.0, a.Stats.Min)

	b := got[1]
	assert.Equal(t, 1, b.DocumentIndex)
	assert.Empty(t, b.Matches)
	assert.NotNil(t, b.Matches)
	assert.Equal(t, 0.0, b.Stats.Max)
}

func TestMatcher_ThresholdInclusive(t *testing.T) {
	source := doc("src", model.RoleSource, []float32{1, 0})
	corpus := []model.Document{doc("a", model.RoleCorpus, []float32{1, 0}, []float32{0, 1})}

	got, err := NewMatcher().Match(context.Background(), source, corpus, 1)
	require.NoError(t, err)
	assert.Len(t, got[0].Matches, 1)

	got, err = NewMatcher().Match(context.Background(), source, corpus, 0)
	require.NoError(t, err)
	assert.Len(t, got[0].Matches, 2)
}

func TestMatcher_InvalidThreshold(t *testing.T) {
	for _, th := range []float64{-0.1, 1.5, math.NaN()} {
		_, err := NewMatcher().Match(context.Background(), model.Document{}, nil, th)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	}
}

func TestMatcher_EmptySides(t *testing.T) {
	empty := doc("src", model.RoleSource)
	corpus := []model.Document{doc("a", model.RoleCorpus, []float32{1}), doc("b", model.RoleCorpus)}

	got, err := NewMatcher(WithConcurrency(1)).Match(context.Background(), empty, corpus, 0.3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, dm := range got {
		assert.Empty(t, dm.Matches)
		assert.Zero(t, dm.Stats.Pairs)
	}
}

func TestMatcher_DimensionMismatchFails(t *testing.T) {
	source := doc("src", model.RoleSource, []float32{1, 0})
	corpus := []model.Document{doc("a", model.RoleCorpus, []float32{1, 0, 0})}
	_, err := NewMatcher().Match(context.Background(), source, corpus, 0.3)
	assert.ErrorIs(t, err, model.ErrInternalComputation)
}

func TestMatcher_ConcurrencyDoesNotChangeResult(t *testing.T) {
	source := doc("src", model.RoleSource, []float32{1, 0.2}, []float32{0.3, 1}, []float32{1, 1})
	var corpus []model.Document
	for i := 0; i < 12; i++ {
		corpus = append(corpus, doc(fmt.Sprintf("c%d", i), model.RoleCorpus,
			[]float32{float32(i), 1}, []float32{1, float32(i)}))
	}
	serial, err := NewMatcher(WithConcurrency(1)).Match(context.Background(), source, corpus, 0.5)
	require.NoError(t, err)
	parallel, err := NewMatcher(WithConcurrency(8)).Match(context.Background(), source, corpus, 0.5)
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}
