package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
	domanswer "github.com/kailas-cloud/askdex/internal/domain/answer"
	"github.com/kailas-cloud/askdex/internal/domain/concept"
	"github.com/kailas-cloud/askdex/internal/domain/confidence"
	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	"github.com/kailas-cloud/askdex/internal/domain/retrieval"
	"github.com/kailas-cloud/askdex/internal/domain/synthesis"
	logpkg "github.com/kailas-cloud/askdex/internal/logger"
	"github.com/kailas-cloud/askdex/internal/metrics"
	"github.com/kailas-cloud/askdex/internal/usecase/ranking"
)

// Option customizes a Service.
type Option func(*Service)

// WithConceptResolver enables concept enrichment of selected matches.
func WithConceptResolver(r ConceptResolver) Option {
	return func(s *Service) { s.concepts = r }
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the answer id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// Service answers questions: embed, search every partition, rank, select, synthesize.
// Safe for concurrent use.
type Service struct {
	cfg      Config
	weights  partition.Weights
	embed    Embedder
	search   PartitionSearcher
	synth    Synthesizer
	concepts ConceptResolver
	pool     *ants.Pool
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger
}

// New validates cfg and creates a Service with its own fan-out pool. Call Close to release it.
func New(
	cfg Config, embed Embedder, search PartitionSearcher, synth Synthesizer,
	logger *zap.Logger, opts ...Option,
) (*Service, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("answer config: %w", err)
	}

	pool, err := newSearchPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create search pool: %w", err)
	}

	s := &Service{
		cfg:     cfg,
		weights: cfg.Weights(),
		embed:   embed,
		search:  search,
		synth:   synth,
		pool:    pool,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the fan-out pool. Ask after Close degrades to "not found".
func (s *Service) Close() {
	s.pool.Release()
}

// Partitions returns the configured partitions in search order.
func (s *Service) Partitions() []PartitionSpec {
	return append([]PartitionSpec(nil), s.cfg.Partitions...)
}

// Ask answers one question. Retrieval and synthesis failures degrade into a fixed answer;
// only a blank question, a cancelled context or a ranking configuration error are returned.
func (s *Service) Ask(ctx context.Context, question string) (domanswer.Answer, error) {
	start := s.now()

	q := strings.TrimSpace(question)
	if q == "" {
		return domanswer.Answer{}, domain.ErrInvalidQuestion
	}

	id := s.newID()
	log := logpkg.FromContextOr(ctx, s.logger).With(zap.String("answer_id", id))

	outcome, err := s.retrieve(ctx, q, log)
	if err != nil {
		return domanswer.Answer{}, err
	}
	if err := ctx.Err(); err != nil {
		return domanswer.Answer{}, fmt.Errorf("ask: %w", err)
	}

	if outcome.IsNoData() {
		a := domanswer.Answer{
			ID:      id,
			Query:   q,
			Text:    notFoundText,
			Summary: notFoundSummary,
			Verdict: confidence.NoneVerdict(),
			Reason:  outcome.Reason(),
		}
		s.finish(&a, start, log)
		return a, nil
	}

	set := outcome.Results()
	verdict := ranking.Classify(set, s.cfg.Tuning)
	selected := ranking.Select(set, s.cfg.Tuning.MaxResults, s.cfg.Tuning)
	sources, conceptIDs := s.enrich(ctx, selected, log)

	body := s.synthesize(ctx, synthesis.Request{Question: q, Verdict: verdict, Sources: sources}, log)

	a := domanswer.Answer{
		ID:         id,
		Query:      q,
		Text:       withNote(body, verdict.Level),
		Summary:    summarize(body, verdict.Level, s.cfg.SummaryMaxChars),
		Verdict:    verdict,
		Selected:   selected,
		Sources:    s.sourceLabels(selected),
		ConceptIDs: conceptIDs,
		Reason:     retrieval.ReasonNone,
	}
	s.finish(&a, start, log)
	return a, nil
}

// enrich pairs every selected match with its referenced concept and collects distinct
// concept ids in first-seen order. Each id is resolved once; failures are ignored.
func (s *Service) enrich(
	ctx context.Context, selected []match.Match, log *zap.Logger,
) ([]synthesis.Source, []string) {
	sources := make([]synthesis.Source, len(selected))
	var ids []string
	seen := make(map[string]bool)
	resolved := make(map[string]concept.Concept)

	for i := range selected {
		sources[i].Match = selected[i]

		cid, _ := selected[i].Attribute(concept.AttributeKey)
		cid = strings.TrimSpace(cid)
		if cid == "" {
			continue
		}

		if !seen[cid] {
			seen[cid] = true
			ids = append(ids, cid)
			if s.concepts != nil {
				c, err := s.concepts.Resolve(ctx, cid)
				if err != nil {
					log.Debug("Concept lookup failed", zap.String("concept_id", cid), zap.Error(err))
				} else {
					resolved[cid] = c
				}
			}
		}
		sources[i].Related = resolved[cid]
	}

	return sources, ids
}

func (s *Service) synthesize(ctx context.Context, req synthesis.Request, log *zap.Logger) string {
	text, err := s.synth.Synthesize(ctx, req)
	if err == nil {
		text = strings.TrimSpace(text)
		if text != "" {
			return text
		}
		err = fmt.Errorf("%w: empty completion", domain.ErrSynthesisFailed)
	}

	log.Error("Answer synthesis failed",
		zap.Int("sources", len(req.Sources)),
		zap.String("confidence", string(req.Verdict.Level)),
		zap.Error(err),
	)
	return apologyText
}

func (s *Service) sourceLabels(selected []match.Match) []string {
	labels := make([]string, len(selected))
	for i := range selected {
		labels[i] = s.cfg.Describe(selected[i].Partition())
	}
	return labels
}

// finish stamps elapsed time, records metrics and writes the completion log line.
func (s *Service) finish(a *domanswer.Answer, start time.Time, log *zap.Logger) {
	a.Elapsed = s.now().Sub(start)

	metrics.AnswersTotal.WithLabelValues(string(a.Verdict.Level)).Inc()
	metrics.AnswerDuration.Observe(a.Elapsed.Seconds())
	if !a.Found() {
		metrics.AnswerOutcomesTotal.WithLabelValues(string(a.Reason)).Inc()
	}
	for i := range a.Selected {
		metrics.SelectedMatchesTotal.WithLabelValues(a.Selected[i].Partition().String()).Inc()
	}

	log.Info("answer_completed",
		zap.String("confidence", string(a.Verdict.Level)),
		zap.Float64("score", a.Verdict.Score),
		zap.Int("selected", len(a.Selected)),
		zap.Strings("sources", a.Sources),
		zap.String("reason", string(a.Reason)),
		zap.Duration("elapsed", a.Elapsed),
	)
}
