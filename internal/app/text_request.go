package app

import (
	"fmt"

	"semantic-plagiarism/internal/model"
)

// TextRequest is the JSON body of a text analysis, shared by the HTTP and queue transports.
type TextRequest struct {
	SourceText      *string  `json:"source_text"`
	SourceFilename  string   `json:"source_filename,omitempty"`
	CorpusTexts     []string `json:"corpus_texts"`
	CorpusFilenames []string `json:"corpus_filenames,omitempty"`
	Threshold       *float64 `json:"threshold,omitempty"`
}

// Input converts the request, naming unnamed corpus documents corpus_<i>.
func (r TextRequest) Input(requestID string) (AnalyzeInput, error) {
	if r.SourceText == nil {
		return AnalyzeInput{}, fmt.Errorf("%w: source_text is required", model.ErrInvalidInput)
	}
	if len(r.CorpusTexts) == 0 {
		return AnalyzeInput{}, fmt.Errorf("%w: corpus_texts must contain at least one document", model.ErrInvalidInput)
	}
	in := AnalyzeInput{
		RequestID: requestID,
		Source:    DocumentInput{Filename: nameOr(r.SourceFilename, "source"), Text: *r.SourceText},
		Corpus:    make([]DocumentInput, len(r.CorpusTexts)),
		Threshold: r.Threshold,
	}
	for i, text := range r.CorpusTexts {
		name := fmt.Sprintf("corpus_%d", i)
		if i < len(r.CorpusFilenames) && r.CorpusFilenames[i] != "" {
			name = r.CorpusFilenames[i]
		}
		in.Corpus[i] = DocumentInput{Filename: name, Text: text}
	}
	return in, nil
}
