package answer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/retrieval"
	"github.com/kailas-cloud/askdex/internal/metrics"
	"github.com/kailas-cloud/askdex/internal/usecase/ranking"
)

// retrieve embeds the question, searches every partition and ranks the hits.
// Only a ranking configuration error is returned; everything else becomes an Outcome.
func (s *Service) retrieve(ctx context.Context, q string, log *zap.Logger) (retrieval.Outcome, error) {
	emb, err := s.embed.Embed(ctx, q)
	if err != nil {
		log.Warn("Question embedding failed", zap.Error(err))
		return retrieval.NoData(retrieval.ReasonEmbeddingFailed), nil
	}
	if len(emb.Embedding) == 0 {
		log.Warn("Question embedding is empty")
		return retrieval.NoData(retrieval.ReasonEmbeddingFailed), nil
	}

	hits, failed := s.fanOut(ctx, emb.Embedding, log)
	if failed == len(hits) {
		return retrieval.NoData(retrieval.ReasonAllPartitionsFailed), nil
	}

	set, err := ranking.Aggregate(hits, s.weights)
	if err != nil {
		return retrieval.Outcome{}, fmt.Errorf("rank hits: %w", err)
	}
	return retrieval.Found(set), nil
}

// fanOut searches all partitions concurrently. Each result lands in its own slot, so the
// returned slice keeps configuration order. Failed partitions contribute zero hits.
func (s *Service) fanOut(
	ctx context.Context, vector []float32, log *zap.Logger,
) ([]ranking.PartitionHits, int) {
	n := len(s.cfg.Partitions)
	results := make([]ranking.PartitionHits, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i, ps := range s.cfg.Partitions {
		results[i].Partition = ps.Partition

		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i].Hits, errs[i] = s.searchOne(ctx, ps, vector)
		}
		err := s.pool.Submit(task)
		switch {
		case err == nil:
		case errors.Is(err, ants.ErrPoolOverload):
			// Capped pool is busy with other questions: never queue behind them.
			go task()
		default:
			wg.Done()
			errs[i] = fmt.Errorf("submit %s search: %w", ps.Partition, err)
		}
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		results[i].Hits = nil
		metrics.PartitionSearchErrorsTotal.WithLabelValues(results[i].Partition.String()).Inc()
		log.Warn("Partition search failed",
			zap.String("partition", results[i].Partition.String()),
			zap.Error(err),
		)
	}
	return results, failed
}

// newSearchPool builds the fan-out pool. workers <= 0 yields an unbounded pool; a positive
// cap only limits reused goroutines, it never makes one question wait for another.
func newSearchPool(workers int) (*ants.Pool, error) {
	if workers <= 0 {
		return ants.NewPool(-1) //nolint:wrapcheck // wrapped by New
	}
	return ants.NewPool(workers, ants.WithNonblocking(true)) //nolint:wrapcheck // wrapped by New
}

func (s *Service) searchOne(ctx context.Context, ps PartitionSpec, vector []float32) ([]match.Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PartitionTimeout)
	defer cancel()

	hits, err := s.search.SearchPartition(ctx, ps.Partition, vector, ps.TopK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", ps.Partition, err)
	}
	if len(hits) > ps.TopK {
		hits = hits[:ps.TopK]
	}
	return hits, nil
}
