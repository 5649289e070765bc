package answer

import (
	"context"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/concept"
	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	"github.com/kailas-cloud/askdex/internal/domain/synthesis"
)

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// PartitionSearcher runs a nearest-neighbour query against one partition's index.
// Hits come back in descending similarity order.
type PartitionSearcher interface {
	SearchPartition(ctx context.Context, p partition.Partition, vector []float32, topK int) ([]match.Hit, error)
}

// Synthesizer writes the answer text from the selected sources.
type Synthesizer interface {
	Synthesize(ctx context.Context, req synthesis.Request) (string, error)
}

// ConceptResolver loads the concept a passage refers to. Optional.
type ConceptResolver interface {
	Resolve(ctx context.Context, id string) (concept.Concept, error)
}
