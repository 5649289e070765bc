package ranking

import (
	"math"

	"github.com/kailas-cloud/askdex/internal/domain/confidence"
	"github.com/kailas-cloud/askdex/internal/domain/ranked"
)

// Classify derives a confidence verdict from a ranked set.
// The level comes from the best weighted score alone. When the leading scores cluster
// tightly (several sources agree) the score, not the level, gets a bonus.
func Classify(set ranked.Set, t Tuning) confidence.Verdict {
	best, ok := set.Best()
	if !ok {
		return confidence.NoneVerdict()
	}

	top := finite(best.WeightedScore())
	v := confidence.Verdict{Level: levelFor(top, t), Score: top}

	if set.Len() >= 2 {
		lead := set.Top(t.ClusterWindow)
		scores := make([]float64, len(lead))
		for i := range lead {
			scores[i] = finite(lead[i].WeightedScore())
		}
		if populationStdDev(scores) < t.ClusterStdDevBound {
			v.Score = top + t.ClusterBonus
		}
	}

	return v
}

func levelFor(best float64, t Tuning) confidence.Level {
	switch {
	case best >= t.HighThreshold:
		return confidence.High
	case best >= t.MediumThreshold:
		return confidence.Medium
	case best >= t.LowThreshold:
		return confidence.Low
	default:
		return confidence.VeryLow
	}
}

func populationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)))
}

// finite keeps NaN out of the verdict even if a match was built around the constructor.
func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
