// Package aggregate rolls matcher output into per-document and overall statistics.
package aggregate

import (
	"sort"

	"semantic-plagiarism/internal/model"
)

// Aggregate builds the AnalysisReport. The result does not depend on the order in
// which per-document results were produced.
func Aggregate(results []model.DocumentMatches, sourceChunkCount int, corpus []model.Document, threshold float64) model.AnalysisReport {
	byDoc := make(map[int]model.DocumentMatches, len(results))
	for _, dm := range results {
		byDoc[dm.DocumentIndex] = dm
	}

	report := model.AnalysisReport{
		SourceChunkCount:    sourceChunkCount,
		CorpusDocumentCount: len(corpus),
		Threshold:           threshold,
		Matches:             []model.Match{},
		Documents:           make([]model.DocumentResult, 0, len(corpus)),
	}

	covered := make(map[int]struct{})
	for i, doc := range corpus {
		dm := byDoc[i]
		matches := append([]model.Match(nil), dm.Matches...)
		SortMatches(matches)

		docCovered := make(map[int]struct{})
		var sum, maxSim float64
		for _, m := range matches {
			sum += m.Similarity
			if m.Similarity > maxSim {
				maxSim = m.Similarity
			}
			docCovered[m.SourceIndex] = struct{}{}
			covered[m.SourceIndex] = struct{}{}
		}

		var avg float64
		if len(matches) > 0 {
			avg = sum / float64(len(matches))
		}
		if matches == nil {
			matches = []model.Match{}
		}
		report.Documents = append(report.Documents, model.DocumentResult{
			DocumentIndex:        i,
			Filename:             doc.Filename,
			ChunkCount:           len(doc.Chunks),
			MatchCount:           len(matches),
			AvgSimilarity:        avg,
			MaxSimilarity:        maxSim,
			PlagiarismPercentage: Percentage(len(docCovered), sourceChunkCount),
			PairMeanSimilarity:   dm.Stats.Mean,
			Matches:              matches,
		})
		report.TotalMatches += len(matches)
		report.Matches = append(report.Matches, matches...)
	}

	SortMatches(report.Matches)
	report.PlagiarismPercentage = Percentage(len(covered), sourceChunkCount)
	return report
}

// Percentage is covered/total*100, or 0 when total is 0.
func Percentage(covered, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(covered) * 100 / float64(total)
}

// SortMatches orders by similarity descending, then corpus document, source chunk
// and corpus chunk position.
func SortMatches(ms []model.Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.CorpusDocument != b.CorpusDocument {
			return a.CorpusDocument < b.CorpusDocument
		}
		if a.SourceIndex != b.SourceIndex {
			return a.SourceIndex < b.SourceIndex
		}
		return a.CorpusIndex < b.CorpusIndex
	})
}
