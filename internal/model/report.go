package model

// DocumentResult aggregates the matches against one corpus document.
type DocumentResult struct {
	DocumentIndex        int
	Filename             string
	ChunkCount           int
	MatchCount           int
	AvgSimilarity        float64
	MaxSimilarity        float64
	PlagiarismPercentage float64
	PairMeanSimilarity   float64
	Matches              []Match
}

// AnalysisReport is the immutable result of one analysis request.
type AnalysisReport struct {
	PlagiarismPercentage float64
	TotalMatches         int
	SourceChunkCount     int
	CorpusDocumentCount  int
	Threshold            float64
	Matches              []Match
	Documents            []DocumentResult
}
