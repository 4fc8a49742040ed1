package ai

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"semantic-plagiarism/internal/model"
)

// Embedder provider names.
const (
	ProviderHashing = "hashing"
	ProviderOpenAI  = "openai"
	ProviderONNX    = "onnx"
)

// Settings is the provider-agnostic embedder configuration. Dimensions applies to
// the hashing backend; remote and ONNX models keep their native size.
type Settings struct {
	Provider          string
	Model             string
	Dimensions        int
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64

	ONNXModelPath string
	ONNXVocabPath string
	ONNXLibPath   string
	MaxTokens     int
	Lowercase     bool
	Oversize      OversizePolicy
}

// New builds the embedder named by s.Provider.
func New(s Settings) (Embedder, error) {
	switch s.Provider {
	case "", ProviderHashing:
		return NewHashingEmbedder(s.Dimensions)
	case ProviderOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:           s.BaseURL,
			APIKey:            s.APIKey,
			Model:             s.Model,
			Timeout:           s.Timeout,
			MaxRetries:        s.MaxRetries,
			RequestsPerSecond: s.RequestsPerSecond,
		}), nil
	case ProviderONNX:
		return NewONNXEmbedder(ONNXConfig{
			ModelPath: s.ONNXModelPath,
			VocabPath: s.ONNXVocabPath,
			LibPath:   s.ONNXLibPath,
			Name:      onnxName(s.ONNXModelPath),
			MaxTokens: s.MaxTokens,
			Lowercase: s.Lowercase,
			Oversize:  s.Oversize,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder provider %q", model.ErrInvalidInput, s.Provider)
	}
}

// onnxName derives the model identity from the file name, so cached vectors of
// different exports never mix.
func onnxName(path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
