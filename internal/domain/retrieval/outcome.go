package retrieval

import "github.com/kailas-cloud/askdex/internal/domain/ranked"

// Reason explains why retrieval produced no usable data.
type Reason string

// No-data reasons. Found outcomes carry ReasonNone.
const (
	ReasonNone                Reason = ""
	ReasonNoMatches           Reason = "no_matches"
	ReasonEmbeddingFailed     Reason = "embedding_failed"
	ReasonAllPartitionsFailed Reason = "all_partitions_failed"
)

// Outcome is either a non-empty ranked set or a documented no-data variant.
type Outcome struct {
	results ranked.Set
	reason  Reason
}

// Found wraps a ranked set. An empty set is reported as NoData(ReasonNoMatches).
func Found(set ranked.Set) Outcome {
	if set.IsEmpty() {
		return NoData(ReasonNoMatches)
	}
	return Outcome{results: set}
}

// NoData creates the graceful-degradation variant.
func NoData(reason Reason) Outcome {
	return Outcome{reason: reason}
}

// IsNoData reports whether there is nothing to answer from.
func (o Outcome) IsNoData() bool { return o.reason != ReasonNone }

// Results returns the ranked set; empty for NoData.
func (o Outcome) Results() ranked.Set { return o.results }

// Reason returns the no-data reason, or ReasonNone.
func (o Outcome) Reason() Reason { return o.reason }
