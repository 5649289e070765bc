package search

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/askdex/internal/db"
	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
)

// --- SearchPartition ---

func TestSearchPartition_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "askdex:faq:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.K != 3 {
			t.Errorf("unexpected K: %d", q.K)
		}
		if q.VectorField != "vector" {
			t.Errorf("unexpected vector field: %s", q.VectorField)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{
					Key:   "askdex:faq:q-1",
					Score: 0.85,
					Fields: map[string]string{
						"__content":  "Photosynthesis turns light into sugar.",
						"question":   "What is photosynthesis?",
						"concept_id": "bio-001",
					},
				},
				{
					Key:    "askdex:faq:q-2",
					Score:  0.62,
					Fields: map[string]string{"__content": "Chlorophyll is green."},
				},
			},
		}, nil
	}

	hits, err := repo.SearchPartition(context.Background(), partition.FAQ, testVector(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "q-1" || hits[0].Score != 0.85 {
		t.Errorf("hit 0 = %+v", hits[0])
	}
	if hits[0].Attributes["concept_id"] != "bio-001" {
		t.Errorf("concept attribute missing: %v", hits[0].Attributes)
	}
	if hits[1].ID != "q-2" {
		t.Errorf("expected q-2, got %s", hits[1].ID)
	}
}

func TestSearchPartition_StripsInternalFields(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:   "askdex:glossary:osmosis",
			Score: 0.7,
			Fields: map[string]string{
				"__content":      "Water moving across a membrane.",
				"__vector":       "\x00\x00\x80\x3f",
				"__vector_score": "0.3",
			},
		}}}, nil
	}

	hits, err := repo.SearchPartition(context.Background(), partition.Glossary, testVector(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := hits[0].Attributes["__vector"]; ok {
		t.Error("vector bytes leaked into attributes")
	}
	if _, ok := hits[0].Attributes["__vector_score"]; ok {
		t.Error("score field leaked into attributes")
	}
	if hits[0].Attributes["__content"] == "" {
		t.Error("content should be kept")
	}
}

func TestSearchPartition_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)
	hits, err := repo.SearchPartition(context.Background(), partition.Textbook, testVector(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestSearchPartition_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	storeErr := &db.Error{Op: db.OpSearch, Err: errors.New("timeout")}
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return nil, storeErr
	}

	_, err := repo.SearchPartition(context.Background(), partition.Concept, testVector(), 2)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestSearchPartition_UnknownPartition(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		t.Fatal("store must not be called")
		return nil, nil
	}

	_, err := repo.SearchPartition(context.Background(), partition.Partition("news"), testVector(), 2)
	if !errors.Is(err, domain.ErrUnknownPartition) {
		t.Fatalf("expected ErrUnknownPartition, got %v", err)
	}
}

func TestSearchPartition_ZeroTopK(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		t.Fatal("store must not be called")
		return nil, nil
	}

	hits, err := repo.SearchPartition(context.Background(), partition.FAQ, testVector(), 0)
	if err != nil || hits != nil {
		t.Fatalf("expected nil, nil; got %v, %v", hits, err)
	}
}

func TestSearchPartition_EFRuntime(t *testing.T) {
	repo, ms := newTestRepo(t, WithEFRuntime(128))
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.EFRuntime != 128 {
			t.Errorf("expected EF_RUNTIME 128, got %d", q.EFRuntime)
		}
		return nil, nil
	}

	if _, err := repo.SearchPartition(context.Background(), partition.FAQ, testVector(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- EnsureIndexes ---

func TestIndexDefinition(t *testing.T) {
	def := IndexDefinition(partition.Glossary, 1024, HNSW{M: 16, EFConstruction: 200})

	if def.Name != "askdex:glossary:idx" {
		t.Errorf("name = %s", def.Name)
	}
	if !slices.Equal(def.Prefixes, []string{"askdex:glossary:"}) {
		t.Errorf("prefixes = %v", def.Prefixes)
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("definition should be valid: %v", err)
	}
	vec := def.Fields[len(def.Fields)-1]
	if vec.Type != db.IndexFieldVector || vec.VectorDim != 1024 || vec.VectorDistance != db.DistanceCosine {
		t.Errorf("vector field = %+v", vec)
	}
	if vec.VectorM != 16 || vec.VectorEFConstruct != 200 {
		t.Errorf("hnsw params = %+v", vec)
	}
}

func TestEnsureIndexes_CreatesMissing(t *testing.T) {
	ms := &mockStore{}
	ms.existsFn = func(_ context.Context, name string) (bool, error) {
		return name == "askdex:faq:idx", nil
	}

	statuses, err := EnsureIndexes(context.Background(), ms,
		[]partition.Partition{partition.FAQ, partition.Glossary}, 8, HNSW{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Created || !statuses[1].Created {
		t.Errorf("statuses = %+v", statuses)
	}
	if !slices.Equal(ms.created, []string{"askdex:glossary:idx"}) {
		t.Errorf("created = %v", ms.created)
	}
}

func TestEnsureIndexes_Recreate(t *testing.T) {
	ms := &mockStore{}
	ms.existsFn = func(context.Context, string) (bool, error) { return true, nil }

	statuses, err := EnsureIndexes(context.Background(), ms,
		[]partition.Partition{partition.Textbook}, 8, HNSW{}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(ms.dropped, []string{"askdex:textbook:idx"}) {
		t.Errorf("dropped = %v", ms.dropped)
	}
	if !statuses[0].Created {
		t.Error("expected index to be recreated")
	}
}

func TestEnsureIndexes_RaceOnCreate(t *testing.T) {
	ms := &mockStore{}
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists }

	statuses, err := EnsureIndexes(context.Background(), ms,
		[]partition.Partition{partition.Concept}, 8, HNSW{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if statuses[0].Created {
		t.Error("index created concurrently should not be reported as created")
	}
}

func TestEnsureIndexes_Errors(t *testing.T) {
	if _, err := EnsureIndexes(context.Background(), &mockStore{}, partition.All(), 0, HNSW{}, false); err == nil {
		t.Error("expected error for zero dimension")
	}

	ms := &mockStore{}
	ms.existsFn = func(context.Context, string) (bool, error) { return false, errors.New("conn refused") }
	if _, err := EnsureIndexes(context.Background(), ms, partition.All(), 8, HNSW{}, false); err == nil {
		t.Error("expected exists error to surface")
	}

	ms = &mockStore{}
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error { return errors.New("oom") }
	statuses, err := EnsureIndexes(context.Background(), ms, partition.All(), 8, HNSW{}, false)
	if err == nil {
		t.Error("expected create error to surface")
	}
	if len(statuses) != 0 {
		t.Errorf("expected no statuses before failure, got %v", statuses)
	}
}
