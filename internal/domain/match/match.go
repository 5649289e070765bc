package match

import (
	"math"

	"github.com/kailas-cloud/askdex/internal/domain/partition"
)

// Hit is one raw nearest-neighbour result as returned by a partition search.
type Hit struct {
	ID         string
	Score      float64
	Attributes map[string]string
}

// Match is a weighted candidate from one partition. Immutable once created.
type Match struct {
	id            string
	partition     partition.Partition
	rawScore      float64
	weightedScore float64
	attributes    map[string]string
}

// New creates a match and computes its weighted score.
// The raw score is sanitised first: NaN and negatives become 0, values above 1 become 1.
func New(p partition.Partition, h Hit, weight float64) Match {
	raw := SanitizeScore(h.Score)
	return Match{
		id:            h.ID,
		partition:     p,
		rawScore:      raw,
		weightedScore: raw * weight,
		attributes:    copyAttributes(h.Attributes),
	}
}

// SanitizeScore clamps a similarity score into [0, 1] and maps NaN to 0.
func SanitizeScore(s float64) float64 {
	switch {
	case math.IsNaN(s), s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// ID returns the identifier, unique within the partition only.
func (m *Match) ID() string { return m.id }

// Partition returns the partition the match came from.
func (m *Match) Partition() partition.Partition { return m.partition }

// RawScore returns the sanitised similarity score.
func (m *Match) RawScore() float64 { return m.rawScore }

// WeightedScore returns raw score times partition weight.
func (m *Match) WeightedScore() float64 { return m.weightedScore }

// Attributes returns a copy of the partition-specific payload.
func (m *Match) Attributes() map[string]string { return copyAttributes(m.attributes) }

// Attribute returns a single payload value.
func (m *Match) Attribute(key string) (string, bool) {
	v, ok := m.attributes[key]
	return v, ok
}

func copyAttributes(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
