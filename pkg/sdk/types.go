package askdex

import "time"

// Confidence is the verdict on how well the retrieved material covers the question.
type Confidence struct {
	Level string  // high, medium, low, very_low or none
	Score float64 // best weighted score, plus the cluster bonus when earned
}

// Match is one selected passage.
type Match struct {
	ID            string
	Partition     string
	Source        string // partition description
	Score         float64
	WeightedScore float64
	Attributes    map[string]string
}

// Answer is the packaged response to one question.
type Answer struct {
	ID         string
	Question   string
	Text       string
	Summary    string
	Found      bool
	Reason     string // why nothing was found; empty when Found
	Confidence Confidence
	Matches    []Match
	ConceptIDs []string
	Elapsed    time.Duration
}

// PartitionInfo describes one configured partition.
type PartitionInfo struct {
	Name        string
	Description string
	Weight      float64
	TopK        int
}

// IndexStatus reports what EnsureIndexes did for one partition.
type IndexStatus struct {
	Partition string
	Index     string
	Created   bool
}
