package partition

import (
	"fmt"

	"github.com/kailas-cloud/askdex/internal/domain"
)

// Partition names an independently searched slice of the corpus.
type Partition string

// Partition constants. The set is closed: anything else is rejected by Parse.
const (
	FAQ      Partition = "faq"
	Glossary Partition = "glossary"
	Concept  Partition = "concept"
	Textbook Partition = "textbook"
)

var all = []Partition{FAQ, Glossary, Concept, Textbook}

// All returns every known partition in canonical order.
func All() []Partition {
	out := make([]Partition, len(all))
	copy(out, all)
	return out
}

// IsValid checks if the partition is one of the supported values.
func (p Partition) IsValid() bool {
	return p == FAQ || p == Glossary || p == Concept || p == Textbook
}

// String implements fmt.Stringer.
func (p Partition) String() string { return string(p) }

// Parse converts a raw tag into a Partition.
func Parse(s string) (Partition, error) {
	p := Partition(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownPartition, s)
	}
	return p, nil
}

// Weights maps a partition to its trust multiplier.
type Weights map[Partition]float64

// Require returns the weight for p or ErrMissingWeight. A missing weight is never defaulted.
func (w Weights) Require(p Partition) (float64, error) {
	v, ok := w[p]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrMissingWeight, p)
	}
	return v, nil
}

// Cover checks that every partition in ps has a weight.
func (w Weights) Cover(ps []Partition) error {
	for _, p := range ps {
		if _, err := w.Require(p); err != nil {
			return err
		}
	}
	return nil
}
