package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"semantic-plagiarism/internal/app"
	"semantic-plagiarism/internal/model"
	"semantic-plagiarism/internal/pkg/textextract"
	"semantic-plagiarism/internal/report"
	"semantic-plagiarism/internal/transport/http/middleware"
	"semantic-plagiarism/internal/transport/http/response"
)

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, in app.AnalyzeInput) (*report.Response, error)
}

type AnalysisHandler struct {
	analyzer       Analyzer
	maxFileBytes   int64
	maxCorpusFiles int
}

func NewAnalysisHandler(analyzer Analyzer, maxFileBytes int64, maxCorpusFiles int) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer:       analyzer,
		maxFileBytes:   maxFileBytes,
		maxCorpusFiles: maxCorpusFiles,
	}
}

// Analyze handles multipart uploads: one source_file, one or more corpus_files and an
// optional threshold field.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	limit := h.maxFileBytes * int64(h.maxCorpusFiles+1)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds the %d byte upload limit", tooLarge.Limit))
			return
		}
		response.Error(c, http.StatusBadRequest, "invalid multipart form: expected source_file and corpus_files")
		return
	}

	sources := form.File["source_file"]
	if len(sources) == 0 {
		response.Error(c, http.StatusBadRequest, "source_file is required")
		return
	}
	if len(sources) > 1 {
		response.Error(c, http.StatusBadRequest, "exactly one source_file is allowed")
		return
	}
	corpusFiles := form.File["corpus_files"]
	if len(corpusFiles) == 0 {
		response.Error(c, http.StatusBadRequest, "at least one corpus file is required")
		return
	}
	if len(corpusFiles) > h.maxCorpusFiles {
		response.Error(c, http.StatusBadRequest, fmt.Sprintf("at most %d corpus files are allowed", h.maxCorpusFiles))
		return
	}

	var threshold *float64
	if raw := form.Value["threshold"]; len(raw) > 0 && raw[0] != "" {
		v, err := strconv.ParseFloat(raw[0], 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "threshold must be a number")
			return
		}
		threshold = &v
	}

	source, err := h.readFile(sources[0])
	if err != nil {
		response.FromError(c, err)
		return
	}
	corpus := make([]app.DocumentInput, 0, len(corpusFiles))
	for _, fh := range corpusFiles {
		doc, err := h.readFile(fh)
		if err != nil {
			response.FromError(c, err)
			return
		}
		corpus = append(corpus, doc)
	}

	h.run(c, app.AnalyzeInput{
		RequestID: middleware.GetRequestID(c),
		Source:    source,
		Corpus:    corpus,
		Threshold: threshold,
	})
}

// AnalyzeText handles a JSON body with raw texts instead of files.
func (h *AnalysisHandler) AnalyzeText(c *gin.Context) {
	var req app.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	in, err := req.Input(middleware.GetRequestID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.run(c, in)
}

func (h *AnalysisHandler) run(c *gin.Context, in app.AnalyzeInput) {
	resp, err := h.analyzer.Analyze(c.Request.Context(), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, resp)
}

func (h *AnalysisHandler) readFile(fh *multipart.FileHeader) (app.DocumentInput, error) {
	if fh.Size > h.maxFileBytes {
		return app.DocumentInput{}, fmt.Errorf("%w: file %q exceeds the %d byte upload limit", model.ErrInvalidInput, fh.Filename, h.maxFileBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return app.DocumentInput{}, fmt.Errorf("%w: open %q: %v", model.ErrInvalidInput, fh.Filename, err)
	}
	defer f.Close()
	text, err := textextract.Extract(fh.Filename, f)
	if err != nil {
		return app.DocumentInput{}, err
	}
	return app.DocumentInput{Filename: fh.Filename, Text: text}, nil
}
