package ai

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"semantic-plagiarism/internal/model"
)

// DefaultONNXMaxTokens matches the sequence limit of MiniLM-class sentence encoders.
const DefaultONNXMaxTokens = 256

// OversizePolicy decides what happens to chunks longer than the model accepts.
type OversizePolicy string

const (
	OversizeTruncate OversizePolicy = "truncate"
	OversizeReject   OversizePolicy = "reject"
)

// ONNXConfig locates a local sentence-transformer export (e.g. all-MiniLM-L6-v2).
type ONNXConfig struct {
	ModelPath string
	VocabPath string
	LibPath   string
	Name      string
	MaxTokens int
	Lowercase bool
	Oversize  OversizePolicy
}

// ONNXEmbedder runs a transformer encoder with onnxruntime, then mean-pools and
// L2-normalizes the token states into one vector per text.
type ONNXEmbedder struct {
	mu  sync.Mutex
	cfg ONNXConfig

	session    *ort.DynamicAdvancedSession
	inputNames []string
	pooled     bool
	tokenizer  *WordPiece
	inited     bool
}

// NewONNXEmbedder creates an embedder that lazily loads the model and vocabulary.
func NewONNXEmbedder(cfg ONNXConfig) *ONNXEmbedder {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultONNXMaxTokens
	}
	if cfg.Name == "" {
		cfg.Name = "all-MiniLM-L6-v2"
	}
	if cfg.Oversize == "" {
		cfg.Oversize = OversizeTruncate
	}
	return &ONNXEmbedder{cfg: cfg}
}

func (e *ONNXEmbedder) Name() string { return "onnx:" + e.cfg.Name }

// Init loads the ONNX shared library, environment, vocabulary, and session.
func (e *ONNXEmbedder) Init(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inited {
		return nil
	}
	if e.cfg.ModelPath == "" || e.cfg.VocabPath == "" {
		return fmt.Errorf("onnx model path and vocab path must be configured")
	}

	tok, err := LoadWordPiece(e.cfg.VocabPath, e.cfg.Lowercase)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}

	if e.cfg.LibPath != "" {
		ort.SetSharedLibraryPath(e.cfg.LibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(e.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fmt.Errorf("onnx model has no inputs or outputs")
	}
	inputNames := make([]string, len(inputs))
	for i := range inputs {
		switch inputs[i].Name {
		case "input_ids", "attention_mask", "token_type_ids":
		default:
			return fmt.Errorf("onnx model input %q is not supported", inputs[i].Name)
		}
		inputNames[i] = inputs[i].Name
	}

	session, err := ort.NewDynamicAdvancedSession(e.cfg.ModelPath, inputNames,
		[]string{outputs[0].Name}, nil)
	if err != nil {
		return fmt.Errorf("onnx new session: %w", err)
	}
	e.session = session
	e.inputNames = inputNames
	// [batch, hidden] outputs are already sentence embeddings.
	e.pooled = len(outputs[0].Dimensions) == 2
	e.tokenizer = tok
	e.inited = true
	log.Printf("EMBEDDER: onnx model %s loaded (%d inputs)", e.cfg.ModelPath, len(inputNames))
	return nil
}

func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.Init(ctx); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}

	encoded := make([][]int64, len(texts))
	seqLen := 0
	for i, t := range texts {
		ids, truncated := e.tokenizer.Encode(t, e.cfg.MaxTokens)
		if truncated && e.cfg.Oversize == OversizeReject {
			return nil, fmt.Errorf("%w: chunk %d exceeds %d model tokens", model.ErrInvalidInput, i, e.cfg.MaxTokens)
		}
		encoded[i] = ids
		if len(ids) > seqLen {
			seqLen = len(ids)
		}
	}

	batch := len(texts)
	ids := make([]int64, batch*seqLen)
	mask := make([]int64, batch*seqLen)
	types := make([]int64, batch*seqLen)
	for b, row := range encoded {
		for j, id := range row {
			ids[b*seqLen+j] = id
			mask[b*seqLen+j] = 1
		}
	}

	shape := ort.NewShape(int64(batch), int64(seqLen))
	inputs := make([]ort.Value, 0, len(e.inputNames))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, name := range e.inputNames {
		data := ids
		switch name {
		case "attention_mask":
			data = mask
		case "token_type_ids":
			data = types
		}
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx new input tensor: %w", err)
		}
		inputs = append(inputs, t)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	outputs := []ort.Value{nil}
	e.mu.Lock()
	err := e.session.Run(inputs, outputs)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnx output is not a float32 tensor")
	}
	data := out.GetData()
	dims := out.GetShape()
	hidden := int(dims[len(dims)-1])

	vecs := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		vec := make([]float64, hidden)
		if e.pooled {
			for h := 0; h < hidden; h++ {
				vec[h] = float64(data[b*hidden+h])
			}
		} else {
			n := 0
			for j := 0; j < seqLen; j++ {
				if mask[b*seqLen+j] == 0 {
					continue
				}
				n++
				base := (b*seqLen + j) * hidden
				for h := 0; h < hidden; h++ {
					vec[h] += float64(data[base+h])
				}
			}
			for h := range vec {
				vec[h] /= float64(n)
			}
		}
		vecs[b] = l2Normalize(vec)
	}
	return vecs, nil
}

// Close releases the session and the onnxruntime environment.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.inited {
		return nil
	}
	e.inited = false
	if err := e.session.Destroy(); err != nil {
		return fmt.Errorf("onnx destroy session: %w", err)
	}
	return ort.DestroyEnvironment()
}

func l2Normalize(v []float64) []float32 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}
