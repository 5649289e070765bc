package askdex

import (
	"context"
	"time"

	domanswer "github.com/kailas-cloud/askdex/internal/domain/answer"
	answeruc "github.com/kailas-cloud/askdex/internal/usecase/answer"
)

// answerUseCase is the internal interface for question answering.
type answerUseCase interface {
	Ask(ctx context.Context, question string) (domanswer.Answer, error)
	Partitions() []answeruc.PartitionSpec
	Close()
}

// Ask answers one question. Retrieval and synthesis failures come back as an
// answer with Found=false; only a blank question or a cancelled context fail.
func (c *Client) Ask(ctx context.Context, question string) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err) }()

	a, err := c.answers.Ask(ctx, question)
	if err != nil {
		return Answer{}, err //nolint:wrapcheck // sentinels are re-exported
	}
	return answerFromDomain(&a), nil
}

// Partitions returns the configured partitions in search order.
func (c *Client) Partitions() []PartitionInfo {
	specs := c.answers.Partitions()
	out := make([]PartitionInfo, 0, len(specs))
	for _, ps := range specs {
		out = append(out, PartitionInfo{
			Name:        ps.Partition.String(),
			Description: ps.Description,
			Weight:      ps.Weight,
			TopK:        ps.TopK,
		})
	}
	return out
}

func answerFromDomain(a *domanswer.Answer) Answer {
	matches := make([]Match, 0, len(a.Selected))
	for i := range a.Selected {
		m := &a.Selected[i]
		attrs := m.Attributes()
		delete(attrs, "__vector")
		var source string
		if i < len(a.Sources) {
			source = a.Sources[i]
		}
		matches = append(matches, Match{
			ID:            m.ID(),
			Partition:     m.Partition().String(),
			Source:        source,
			Score:         m.RawScore(),
			WeightedScore: m.WeightedScore(),
			Attributes:    attrs,
		})
	}

	return Answer{
		ID:       a.ID,
		Question: a.Query,
		Text:     a.Text,
		Summary:  a.Summary,
		Found:    a.Found(),
		Reason:   string(a.Reason),
		Confidence: Confidence{
			Level: string(a.Verdict.Level),
			Score: a.Verdict.Score,
		},
		Matches:    matches,
		ConceptIDs: append([]string(nil), a.ConceptIDs...),
		Elapsed:    a.Elapsed,
	}
}
