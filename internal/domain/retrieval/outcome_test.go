package retrieval

import (
	"testing"

	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	"github.com/kailas-cloud/askdex/internal/domain/ranked"
)

func TestFound(t *testing.T) {
	set := ranked.FromOrdered([]match.Match{
		match.New(partition.FAQ, match.Hit{ID: "a", Score: 0.7}, 1),
	})
	o := Found(set)
	if o.IsNoData() {
		t.Fatal("expected data")
	}
	if o.Results().Len() != 1 {
		t.Errorf("expected 1 result, got %d", o.Results().Len())
	}
	if o.Reason() != ReasonNone {
		t.Errorf("unexpected reason %q", o.Reason())
	}
}

func TestFound_EmptyIsNoMatches(t *testing.T) {
	o := Found(ranked.Set{})
	if !o.IsNoData() || o.Reason() != ReasonNoMatches {
		t.Errorf("expected no_matches, got %q", o.Reason())
	}
}

func TestNoData(t *testing.T) {
	o := NoData(ReasonEmbeddingFailed)
	if !o.IsNoData() {
		t.Fatal("expected no data")
	}
	if !o.Results().IsEmpty() {
		t.Error("no-data outcome must carry an empty set")
	}
}
