package askdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/askdex/internal/domain/partition"
	searchrepo "github.com/kailas-cloud/askdex/internal/repository/search"
)

// EnsureIndexes creates the vector index of every configured partition that lacks one.
// With recreate set, existing indexes are dropped first; the indexed hashes are kept.
func (c *Client) EnsureIndexes(ctx context.Context, recreate bool) (out []IndexStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("indexes.ensure", start, err) }()

	specs := c.answers.Partitions()
	parts := make([]partition.Partition, 0, len(specs))
	for _, ps := range specs {
		parts = append(parts, ps.Partition)
	}

	statuses, err := searchrepo.EnsureIndexes(ctx, c.indexes, parts, c.vectorDim, c.hnsw, recreate)
	out = make([]IndexStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, IndexStatus{
			Partition: st.Partition.String(),
			Index:     st.Index,
			Created:   st.Created,
		})
	}
	if err != nil {
		return out, fmt.Errorf("ensure indexes: %w", err)
	}
	return out, nil
}
