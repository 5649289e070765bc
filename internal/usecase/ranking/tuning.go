package ranking

import (
	"fmt"

	"github.com/kailas-cloud/askdex/internal/domain"
)

// Tuning holds every threshold used by Classify and Select.
// Values are passed explicitly so tests can probe boundaries in parallel.
type Tuning struct {
	HighThreshold   float64 // best >= HighThreshold -> high
	MediumThreshold float64 // best >= MediumThreshold -> medium
	LowThreshold    float64 // best >= LowThreshold -> low, else very_low

	ClusterWindow      int     // how many leading scores the spread is measured over
	ClusterStdDevBound float64 // spread below this earns the bonus
	ClusterBonus       float64 // added to the score, never to the level

	CandidateRatio float64 // diversity candidates need score >= best * ratio
	PartitionCap   int     // max diversity picks per partition
	MaxResults     int     // default selection size
}

// DefaultTuning returns the production thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		HighThreshold:      0.8,
		MediumThreshold:    0.6,
		LowThreshold:       0.4,
		ClusterWindow:      3,
		ClusterStdDevBound: 0.1,
		ClusterBonus:       0.05,
		CandidateRatio:     0.8,
		PartitionCap:       2,
		MaxResults:         3,
	}
}

// Validate checks that the thresholds are ordered and the limits usable.
func (t Tuning) Validate() error {
	if !(t.HighThreshold > t.MediumThreshold && t.MediumThreshold > t.LowThreshold && t.LowThreshold >= 0) {
		return fmt.Errorf("%w: thresholds must satisfy high > medium > low >= 0, got %g/%g/%g",
			domain.ErrInvalidTuning, t.HighThreshold, t.MediumThreshold, t.LowThreshold)
	}
	if t.ClusterWindow < 2 {
		return fmt.Errorf("%w: cluster window must be >= 2, got %d", domain.ErrInvalidTuning, t.ClusterWindow)
	}
	if !(t.ClusterStdDevBound >= 0) || !(t.ClusterBonus >= 0) {
		return fmt.Errorf("%w: cluster bound and bonus must be non-negative", domain.ErrInvalidTuning)
	}
	if !(t.CandidateRatio >= 0 && t.CandidateRatio <= 1) {
		return fmt.Errorf("%w: candidate ratio must be in [0,1], got %g", domain.ErrInvalidTuning, t.CandidateRatio)
	}
	if t.PartitionCap < 1 {
		return fmt.Errorf("%w: partition cap must be >= 1, got %d", domain.ErrInvalidTuning, t.PartitionCap)
	}
	if t.MaxResults < 1 {
		return fmt.Errorf("%w: max results must be >= 1, got %d", domain.ErrInvalidTuning, t.MaxResults)
	}
	return nil
}
