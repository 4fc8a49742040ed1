package ai

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semantic-plagiarism/internal/model"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashingEmbedder(t *testing.T) {
	e, err := NewHashingEmbedder(0)
	require.NoError(t, err)
	assert.Equal(t, "hashing-384", e.Name())

	vecs, err := e.EmbedBatch(context.Background(), []string{
		"The mitochondria is the powerhouse of the cell.",
		"The mitochondria is the powerhouse of the cell.",
		"Quarterly revenue grew in the retail segment.",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	for _, v := range vecs {
		assert.Len(t, v, DefaultHashingDimensions)
	}

	assert.Equal(t, vecs[0], vecs[1])
	assert.InDelta(t, 1.0, norm(vecs[0]), 1e-6)
	assert.InDelta(t, 1.0, dot(vecs[0], vecs[1]), 1e-6)
	assert.Less(t, dot(vecs[0], vecs[2]), 0.3)
	assert.Zero(t, norm(vecs[3]))
}

func TestHashingEmbedder_CaseAndStopWordsIgnored(t *testing.T) {
	e, err := NewHashingEmbedder(64)
	require.NoError(t, err)
	vecs, err := e.EmbedBatch(context.Background(), []string{"The Cat sat", "cat SAT"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dot(vecs[0], vecs[1]), 1e-6)
}

func TestHashingEmbedder_CanceledContext(t *testing.T) {
	e, _ := NewHashingEmbedder(8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.EmbedBatch(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	e, err := New(Settings{})
	require.NoError(t, err)
	assert.IsType(t, &HashingEmbedder{}, e)

	e, err = New(Settings{Provider: ProviderOpenAI, Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "openai:m", e.Name())

	e, err = New(Settings{Provider: ProviderONNX})
	require.NoError(t, err)
	assert.Equal(t, "onnx:all-MiniLM-L6-v2", e.Name())

	e, err = New(Settings{Provider: ProviderONNX, ONNXModelPath: "assets/paraphrase-mpnet.onnx"})
	require.NoError(t, err)
	assert.Equal(t, "onnx:paraphrase-mpnet", e.Name())

	_, err = New(Settings{Provider: "bogus"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestONNXEmbedder_InitRequiresPaths(t *testing.T) {
	e := NewONNXEmbedder(ONNXConfig{})
	_, err := e.EmbedBatch(context.Background(), []string{"hello"})
	assert.Error(t, err)
	assert.NoError(t, e.Close())
}

func newEmbeddingServer(t *testing.T, failures int32, status int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			return
		}
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if n <= failures {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		// answer out of order to exercise index placement
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Embedding: []float32{float32(i), 1}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	srv, _ := newEmbeddingServer(t, 0, 0)
	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, APIKey: "secret", Model: "m"})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}, {2, 1}}, vecs)
	assert.NoError(t, e.Ping(context.Background()))
}

func TestOpenAIEmbedder_RetriesServerErrors(t *testing.T) {
	srv, calls := newEmbeddingServer(t, 1, http.StatusInternalServerError)
	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, APIKey: "secret", MaxRetries: 2})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestOpenAIEmbedder_ClientErrorNotRetried(t *testing.T) {
	srv, calls := newEmbeddingServer(t, 10, http.StatusBadRequest)
	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, APIKey: "secret", MaxRetries: 3})

	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestOpenAIEmbedder_Unreachable(t *testing.T) {
	srv, _ := newEmbeddingServer(t, 0, 0)
	url := srv.URL
	srv.Close()
	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: url, MaxRetries: 0})
	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	assert.Error(t, err)
	assert.Error(t, e.Ping(context.Background()))
}

func TestOpenAIEmbedder_ResponseOrdering(t *testing.T) {
	tests := []struct {
		name string
		body string
		want [][]float32
	}{
		{
			name: "first item answered last",
			body: `{"data":[{"embedding":[2,1],"index":1},{"embedding":[3,1],"index":2},{"embedding":[1,1],"index":0}]}`,
			want: [][]float32{{1, 1}, {2, 1}, {3, 1}},
		},
		{
			name: "indices omitted",
			body: `{"data":[{"embedding":[1,1]},{"embedding":[2,1]},{"embedding":[3,1]}]}`,
			want: [][]float32{{1, 1}, {2, 1}, {3, 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, MaxRetries: 0})

			vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, vecs)
		})
	}
}

func TestNew_OpenAIKeepsNativeDimensions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotContains(t, req, "dimensions")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0,0],"index":0}]}`))
	}))
	defer srv.Close()
	e, err := New(Settings{Provider: ProviderOpenAI, BaseURL: srv.URL, Dimensions: 384})
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 3)
}

func TestOpenAIEmbedder_EmptyVectorRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[],"index":0}]}`))
	}))
	defer srv.Close()
	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, MaxRetries: 0})

	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, model.ErrInternalComputation)
}

func TestWordPiece_Encode(t *testing.T) {
	wp, err := NewWordPiece([]string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "hello", "world", "play", "##ing", "!", "cafe"}, true)
	require.NoError(t, err)

	ids, truncated := wp.Encode("Hello, playing world! Café", 0)
	assert.False(t, truncated)
	assert.Equal(t, []int64{2, 4, 1, 6, 7, 5, 8, 9, 3}, ids)

	ids, truncated = wp.Encode("Hello, playing world! Café", 4)
	assert.True(t, truncated)
	assert.Equal(t, []int64{2, 4, 1, 3}, ids)
}

func TestWordPiece_MissingSpecialToken(t *testing.T) {
	_, err := NewWordPiece([]string{"[CLS]", "[SEP]"}, true)
	assert.Error(t, err)
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]float32
	failGet bool
}

func (m *memCache) GetMany(_ context.Context, model string, texts []string) ([][]float32, error) {
	if m.failGet {
		return nil, errors.New("cache down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.data[model+"|"+t]
	}
	return out, nil
}

func (m *memCache) SetMany(_ context.Context, model string, texts []string, vecs [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range texts {
		m.data[model+"|"+t] = vecs[i]
	}
	return nil
}

type countingEmbedder struct {
	inner Embedder
	texts int
}

func (c *countingEmbedder) Name() string { return c.inner.Name() }

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts += len(texts)
	return c.inner.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	h, _ := NewHashingEmbedder(16)
	inner := &countingEmbedder{inner: h}
	cache := &memCache{data: map[string][]float32{}}
	e := NewCachedEmbedder(inner, cache)

	first, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.texts)

	second, err := e.EmbedBatch(context.Background(), []string{"beta", "gamma", "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.texts)
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])
	assert.Len(t, second[1], 16)
}

func TestCachedEmbedder_CacheFailureFallsThrough(t *testing.T) {
	h, _ := NewHashingEmbedder(16)
	inner := &countingEmbedder{inner: h}
	e := NewCachedEmbedder(inner, &memCache{data: map[string][]float32{}, failGet: true})

	vecs, err := e.EmbedBatch(context.Background(), []string{"alpha"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 1, inner.texts)
}
