package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semantic-plagiarism/internal/bootstrap"
	"semantic-plagiarism/internal/config"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	cfg.App.GinMode = "test"
	a, err := bootstrap.NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestRouter_Banners(t *testing.T) {
	router := NewRouter(newTestApp(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Plagiarism Detection API is running"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestRouter_Healthz(t *testing.T) {
	router := NewRouter(newTestApp(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		App          string `json:"app"`
		Dependencies map[string]struct {
			OK       bool `json:"ok"`
			Disabled bool `json:"disabled"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "semantic-plagiarism", body.App)
	assert.True(t, body.Dependencies["redis"].Disabled)
	assert.True(t, body.Dependencies["rabbitmq"].Disabled)
	assert.True(t, body.Dependencies["embedder"].OK)
}

func TestRouter_CORSAndRequestID(t *testing.T) {
	router := NewRouter(newTestApp(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRouter_AnalyzeEndToEnd(t *testing.T) {
	router := NewRouter(newTestApp(t))

	text := "The committee approved the budget after a long debate. " +
		"Volunteers planted trees along the river bank."
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range []struct{ field, name, body string }{
		{"source_file", "essay.txt", text},
		{"corpus_files", "copy.txt", text},
		{"corpus_files", "other.txt", "Quantum computers use qubits."},
	} {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, _ = part.Write([]byte(f.body))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		PlagiarismPercentage float64 `json:"plagiarism_percentage"`
		TotalMatches         int     `json:"total_matches"`
		SourceChunkCount     int     `json:"source_chunk_count"`
		CorpusDocumentCount  int     `json:"corpus_document_count"`
		DetailedResults      []struct {
			Filename             string  `json:"filename"`
			PlagiarismPercentage float64 `json:"plagiarism_percentage"`
			MatchCount           int     `json:"match_count"`
		} `json:"detailed_results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.SourceChunkCount)
	assert.Equal(t, 2, body.CorpusDocumentCount)
	assert.InDelta(t, 100.0, body.PlagiarismPercentage, 1e-9)
	require.Len(t, body.DetailedResults, 2)
	assert.Equal(t, "copy.txt", body.DetailedResults[0].Filename)
	assert.InDelta(t, 100.0, body.DetailedResults[0].PlagiarismPercentage, 1e-9)
	assert.Equal(t, 0, body.DetailedResults[1].MatchCount)
}
