package ranking

import (
	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	"github.com/kailas-cloud/askdex/internal/domain/ranked"
)

// Select picks at most maxResults matches: the best match first, then near-best matches
// (score >= best * CandidateRatio) with at most PartitionCap picks per partition, then a
// backfill in score order that ignores both constraints. Output is in insertion order.
func Select(set ranked.Set, maxResults int, t Tuning) []match.Match {
	if set.IsEmpty() || maxResults < 1 {
		return nil
	}

	selected := make([]match.Match, 0, min(maxResults, set.Len()))
	taken := make([]bool, set.Len())
	perPartition := make(map[partition.Partition]int)

	add := func(i int) {
		m := set.At(i)
		selected = append(selected, m)
		taken[i] = true
		perPartition[m.Partition()]++
	}

	add(0)

	best := set.At(0)
	threshold := best.WeightedScore() * t.CandidateRatio
	for i := 1; i < set.Len() && len(selected) < maxResults; i++ {
		m := set.At(i)
		if m.WeightedScore() < threshold {
			// ranked descending: nothing further can qualify
			break
		}
		if perPartition[m.Partition()] < t.PartitionCap {
			add(i)
		}
	}

	for i := 1; i < set.Len() && len(selected) < maxResults; i++ {
		if !taken[i] {
			add(i)
		}
	}

	return selected
}
