// Package report renders an AnalysisReport into the JSON document clients consume.
// Field names are part of the public contract.
package report

import "semantic-plagiarism/internal/model"

// Match is one entry of the top-level match list.
type Match struct {
	Similarity       float64 `json:"similarity"`
	CorpusFilename   string  `json:"corpus_filename"`
	SourceChunk      string  `json:"source_chunk"`
	CorpusChunk      string  `json:"corpus_chunk"`
	SourceChunkIndex int     `json:"source_chunk_index"`
	CorpusChunkIndex int     `json:"corpus_chunk_index"`
}

// DocumentMatch is a match listed under its corpus document.
type DocumentMatch struct {
	Similarity       float64 `json:"similarity"`
	SourceChunk      string  `json:"source_chunk"`
	CorpusChunk      string  `json:"corpus_chunk"`
	SourceChunkIndex int     `json:"source_chunk_index"`
	CorpusChunkIndex int     `json:"corpus_chunk_index"`
}

type DocumentResult struct {
	Filename             string          `json:"filename"`
	AvgSimilarity        float64         `json:"avg_similarity"`
	MaxSimilarity        float64         `json:"max_similarity"`
	PlagiarismPercentage float64         `json:"plagiarism_percentage"`
	MatchCount           int             `json:"match_count"`
	CorpusChunkCount     int             `json:"corpus_chunk_count"`
	ThresholdUsed        float64         `json:"threshold_used"`
	Matches              []DocumentMatch `json:"matches"`
}

// Response is the analysis result document. SimilarityScores holds each corpus
// document's mean pair similarity in upload order.
type Response struct {
	PlagiarismPercentage float64          `json:"plagiarism_percentage"`
	TotalMatches         int              `json:"total_matches"`
	SourceChunkCount     int              `json:"source_chunk_count"`
	CorpusDocumentCount  int              `json:"corpus_document_count"`
	Matches              []Match          `json:"matches"`
	DetailedResults      []DocumentResult `json:"detailed_results"`
	ThresholdUsed        float64          `json:"threshold_used"`
	SimilarityScores     []float64        `json:"similarity_scores"`
}

// Options caps the match lists. Zero means unlimited. Counts and percentages
// always describe every match.
type Options struct {
	MaxMatches         int
	MaxDocumentMatches int
}

// Assemble maps r onto the response schema. Lists are never null.
func Assemble(r model.AnalysisReport, opts Options) Response {
	resp := Response{
		PlagiarismPercentage: r.PlagiarismPercentage,
		TotalMatches:         r.TotalMatches,
		SourceChunkCount:     r.SourceChunkCount,
		CorpusDocumentCount:  r.CorpusDocumentCount,
		Matches:              make([]Match, 0, limit(len(r.Matches), opts.MaxMatches)),
		DetailedResults:      make([]DocumentResult, 0, len(r.Documents)),
		ThresholdUsed:        r.Threshold,
		SimilarityScores:     make([]float64, 0, len(r.Documents)),
	}

	for _, m := range r.Matches[:limit(len(r.Matches), opts.MaxMatches)] {
		resp.Matches = append(resp.Matches, Match{
			Similarity:       m.Similarity,
			CorpusFilename:   m.CorpusFilename,
			SourceChunk:      m.SourceText,
			CorpusChunk:      m.CorpusText,
			SourceChunkIndex: m.SourceIndex,
			CorpusChunkIndex: m.CorpusIndex,
		})
	}

	for _, d := range r.Documents {
		n := limit(len(d.Matches), opts.MaxDocumentMatches)
		dr := DocumentResult{
			Filename:             d.Filename,
			AvgSimilarity:        d.AvgSimilarity,
			MaxSimilarity:        d.MaxSimilarity,
			PlagiarismPercentage: d.PlagiarismPercentage,
			MatchCount:           d.MatchCount,
			CorpusChunkCount:     d.ChunkCount,
			ThresholdUsed:        r.Threshold,
			Matches:              make([]DocumentMatch, 0, n),
		}
		for _, m := range d.Matches[:n] {
			dr.Matches = append(dr.Matches, DocumentMatch{
				Similarity:       m.Similarity,
				SourceChunk:      m.SourceText,
				CorpusChunk:      m.CorpusText,
				SourceChunkIndex: m.SourceIndex,
				CorpusChunkIndex: m.CorpusIndex,
			})
		}
		resp.DetailedResults = append(resp.DetailedResults, dr)
		resp.SimilarityScores = append(resp.SimilarityScores, d.PairMeanSimilarity)
	}
	return resp
}

func limit(n, maxN int) int {
	if maxN > 0 && n > maxN {
		return maxN
	}
	return n
}
