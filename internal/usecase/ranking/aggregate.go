package ranking

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	"github.com/kailas-cloud/askdex/internal/domain/ranked"
)

// PartitionHits is the raw search output of one partition.
// A slice of PartitionHits is enumerated in order; that order breaks score ties.
type PartitionHits struct {
	Partition partition.Partition
	Hits      []match.Hit
}

// Aggregate weights every hit by its partition weight and merges all partitions into
// one ranking, descending by weighted score. Equal scores keep partition enumeration
// order and, within a partition, search order.
// Every partition in hits needs a weight, even when it returned nothing.
func Aggregate(hits []PartitionHits, weights partition.Weights) (ranked.Set, error) {
	total := 0
	for _, ph := range hits {
		if !ph.Partition.IsValid() {
			return ranked.Set{}, fmt.Errorf("aggregate: %w: %q", domain.ErrUnknownPartition, ph.Partition)
		}
		if _, err := weights.Require(ph.Partition); err != nil {
			return ranked.Set{}, fmt.Errorf("aggregate: %w", err)
		}
		total += len(ph.Hits)
	}

	merged := make([]match.Match, 0, total)
	for _, ph := range hits {
		w := weights[ph.Partition]
		for _, h := range ph.Hits {
			merged = append(merged, match.New(ph.Partition, h, w))
		}
	}

	slices.SortStableFunc(merged, func(a, b match.Match) int {
		switch sa, sb := a.WeightedScore(), b.WeightedScore(); {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		default:
			return 0
		}
	})

	return ranked.FromOrdered(merged), nil
}
