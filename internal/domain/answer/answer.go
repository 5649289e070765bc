package answer

import (
	"time"

	"github.com/kailas-cloud/askdex/internal/domain/confidence"
	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/retrieval"
)

// Answer is the packaged response to one question.
type Answer struct {
	ID         string
	Query      string
	Text       string
	Summary    string
	Verdict    confidence.Verdict
	Selected   []match.Match
	Sources    []string // partition descriptions of Selected, same order
	ConceptIDs []string // distinct, first-seen order
	Reason     retrieval.Reason
	Elapsed    time.Duration
}

// Found reports whether the answer was synthesized from retrieved material.
func (a *Answer) Found() bool { return a.Reason == retrieval.ReasonNone }
