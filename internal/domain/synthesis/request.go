package synthesis

import (
	"github.com/kailas-cloud/askdex/internal/domain/concept"
	"github.com/kailas-cloud/askdex/internal/domain/confidence"
	"github.com/kailas-cloud/askdex/internal/domain/match"
)

// Source is one selected match handed to the synthesizer,
// with the concept it references when one could be resolved.
type Source struct {
	Match   match.Match
	Related concept.Concept
}

// Request is everything the synthesizer may see. Sources[0] is the primary source.
type Request struct {
	Question string
	Verdict  confidence.Verdict
	Sources  []Source
}

// Primary returns the anchoring source. ok is false when there are no sources.
func (r *Request) Primary() (Source, bool) {
	if len(r.Sources) == 0 {
		return Source{}, false
	}
	return r.Sources[0], true
}

// Supplementary returns every source after the primary one.
func (r *Request) Supplementary() []Source {
	if len(r.Sources) < 2 {
		return nil
	}
	return r.Sources[1:]
}
