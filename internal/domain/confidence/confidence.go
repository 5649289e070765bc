package confidence

// Level is a coarse bucket describing how much to trust the best match.
type Level string

// Confidence levels, weakest first.
const (
	None    Level = "none"
	VeryLow Level = "very_low"
	Low     Level = "low"
	Medium  Level = "medium"
	High    Level = "high"
)

// Rank orders levels: None=0 ... High=4. Unknown levels rank below None.
func (l Level) Rank() int {
	switch l {
	case None:
		return 0
	case VeryLow:
		return 1
	case Low:
		return 2
	case Medium:
		return 3
	case High:
		return 4
	default:
		return -1
	}
}

// IsValid checks if the level is one of the supported values.
func (l Level) IsValid() bool { return l.Rank() >= 0 }

// IsWeak reports whether answers at this level should be hedged.
func (l Level) IsWeak() bool { return l == Low || l == VeryLow }

// Verdict is the classifier output. Level derives from the unadjusted best score only;
// Score may carry a corroboration bonus.
type Verdict struct {
	Level Level
	Score float64
}

// NoneVerdict is returned when nothing matched.
func NoneVerdict() Verdict { return Verdict{Level: None, Score: 0} }
