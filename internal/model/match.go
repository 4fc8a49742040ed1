package model

// Match pairs a source chunk with a corpus chunk whose similarity reached the threshold.
type Match struct {
	SourceIndex    int
	CorpusIndex    int
	CorpusDocument int // position of the corpus document in upload order
	CorpusFilename string
	SourceText     string
	CorpusText     string
	Similarity     float64
}

// PairStats summarises every similarity computed between the source and one corpus document,
// not only the pairs that matched.
type PairStats struct {
	Pairs int
	Mean  float64
	Min   float64
	Max   float64
}

// DocumentMatches is the matcher output for one corpus document.
type DocumentMatches struct {
	DocumentIndex int
	Matches       []Match
	Stats         PairStats
}
