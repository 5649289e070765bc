package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/askdex/internal/db"
	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
)

// Hash fields written by the ingestion side. Everything else is a partition-specific attribute.
const (
	ContentField = "__content"
	VectorField  = "__vector"
	vectorAlias  = "vector"
	scoreField   = "__vector_score"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/answer.PartitionSearcher.
type Repo struct {
	store     store
	efRuntime int
}

// Option configures a Repo.
type Option func(*Repo)

// WithEFRuntime sets the HNSW query-time candidate list size.
func WithEFRuntime(ef int) Option {
	return func(r *Repo) { r.efRuntime = ef }
}

// New creates a search repository.
func New(s store, opts ...Option) *Repo {
	r := &Repo{store: s}
	for _, o := range opts {
		o(r)
	}
	return r
}

// IndexName returns the FT index name for a partition.
func IndexName(p partition.Partition) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, p)
}

// KeyPrefix returns the hash key prefix for passages of a partition.
func KeyPrefix(p partition.Partition) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, p)
}

// SearchPartition runs a KNN search against one partition index.
// Hits come back best first with cosine similarity scores.
func (r *Repo) SearchPartition(
	ctx context.Context, p partition.Partition, vector []float32, topK int,
) ([]match.Hit, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPartition, p)
	}
	if topK <= 0 {
		return nil, nil
	}

	q := &db.KNNQuery{
		IndexName:   IndexName(p),
		VectorField: vectorAlias,
		Vector:      vector,
		K:           topK,
		EFRuntime:   r.efRuntime,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search partition %s: %w", p, err)
	}

	return parseHits(sr, KeyPrefix(p)), nil
}

func parseHits(sr *db.SearchResult, prefix string) []match.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	hits := make([]match.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		attrs := make(map[string]string, len(entry.Fields))
		for k, v := range entry.Fields {
			if k == VectorField || k == scoreField {
				continue
			}
			attrs[k] = v
		}
		hits = append(hits, match.Hit{
			ID:         strings.TrimPrefix(entry.Key, prefix),
			Score:      entry.Score,
			Attributes: attrs,
		})
	}
	return hits
}

// indexStore is the consumer interface for index bootstrap.
type indexStore interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSW holds vector index build parameters.
type HNSW struct {
	M              int
	EFConstruction int
}

// IndexStatus reports what EnsureIndexes did for one partition.
type IndexStatus struct {
	Partition partition.Partition
	Index     string
	Created   bool
}

// IndexDefinition builds the FT index definition for a partition.
func IndexDefinition(p partition.Partition, dim int, h HNSW) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     IndexName(p),
		Prefixes: []string{KeyPrefix(p)},
		Fields: []db.IndexField{
			{Name: ContentField, Type: db.IndexFieldText},
			{Name: "concept_id", Type: db.IndexFieldTag},
			{
				Name:              VectorField,
				Alias:             vectorAlias,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           h.M,
				VectorEFConstruct: h.EFConstruction,
			},
		},
	}
}

// EnsureIndexes creates a missing partition index. With recreate set, existing
// indexes are dropped first; indexed hashes are untouched.
func EnsureIndexes(
	ctx context.Context, s indexStore, partitions []partition.Partition, dim int, h HNSW, recreate bool,
) ([]IndexStatus, error) {
	if dim <= 0 {
		return nil, errors.New("vector dimension must be positive")
	}

	out := make([]IndexStatus, 0, len(partitions))
	for _, p := range partitions {
		name := IndexName(p)

		exists, err := s.IndexExists(ctx, name)
		if err != nil {
			return out, fmt.Errorf("check index %s: %w", name, err)
		}
		if exists && recreate {
			if err := s.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
				return out, fmt.Errorf("drop index %s: %w", name, err)
			}
			exists = false
		}
		if exists {
			out = append(out, IndexStatus{Partition: p, Index: name})
			continue
		}

		err = s.CreateIndex(ctx, IndexDefinition(p, dim, h))
		switch {
		case errors.Is(err, db.ErrIndexExists):
			out = append(out, IndexStatus{Partition: p, Index: name})
		case err != nil:
			return out, fmt.Errorf("create index %s: %w", name, err)
		default:
			out = append(out, IndexStatus{Partition: p, Index: name, Created: true})
		}
	}
	return out, nil
}
