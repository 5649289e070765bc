package answer

import (
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	"github.com/kailas-cloud/askdex/internal/usecase/ranking"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultPartitionTimeout = 5 * time.Second
	DefaultSummaryMaxChars  = 150
)

// PartitionSpec configures one searched partition.
type PartitionSpec struct {
	Partition   partition.Partition
	Weight      float64
	TopK        int
	Description string // human-readable source label
}

// Config is the immutable pipeline configuration. Partitions are searched and
// tie-broken in slice order.
type Config struct {
	Partitions       []PartitionSpec
	Tuning           ranking.Tuning
	PartitionTimeout time.Duration
	Workers          int // reusable fan-out workers; 0 means unbounded
	SummaryMaxChars  int
}

// DefaultPartitions is the stock partition set: trust FAQ most, textbook passages least.
func DefaultPartitions() []PartitionSpec {
	return []PartitionSpec{
		{Partition: partition.FAQ, Weight: 1.2, TopK: 3, Description: "FAQ"},
		{Partition: partition.Glossary, Weight: 1.0, TopK: 2, Description: "Glossary"},
		{Partition: partition.Concept, Weight: 0.9, TopK: 2, Description: "Concept"},
		{Partition: partition.Textbook, Weight: 0.8, TopK: 2, Description: "Textbook"},
	}
}

// Weights returns the partition weights as a lookup table.
func (c *Config) Weights() partition.Weights {
	w := make(partition.Weights, len(c.Partitions))
	for _, ps := range c.Partitions {
		w[ps.Partition] = ps.Weight
	}
	return w
}

// partitionList returns the configured partitions in search order.
func (c *Config) partitionList() []partition.Partition {
	out := make([]partition.Partition, len(c.Partitions))
	for i, ps := range c.Partitions {
		out[i] = ps.Partition
	}
	return out
}

// Describe returns the source label for p, falling back to its tag.
func (c *Config) Describe(p partition.Partition) string {
	for _, ps := range c.Partitions {
		if ps.Partition == p && ps.Description != "" {
			return ps.Description
		}
	}
	return p.String()
}

func (c Config) withDefaults() Config {
	if c.PartitionTimeout <= 0 {
		c.PartitionTimeout = DefaultPartitionTimeout
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.SummaryMaxChars <= 0 {
		c.SummaryMaxChars = DefaultSummaryMaxChars
	}
	c.Partitions = append([]PartitionSpec(nil), c.Partitions...)
	return c
}

// Validate checks the partition list and tuning.
func (c *Config) Validate() error {
	if len(c.Partitions) == 0 {
		return fmt.Errorf("%w: no partitions configured", domain.ErrInvalidTuning)
	}

	seen := make(map[partition.Partition]bool, len(c.Partitions))
	for _, ps := range c.Partitions {
		if !ps.Partition.IsValid() {
			return fmt.Errorf("%w: %q", domain.ErrUnknownPartition, ps.Partition)
		}
		if seen[ps.Partition] {
			return fmt.Errorf("%w: partition %s configured twice", domain.ErrInvalidTuning, ps.Partition)
		}
		seen[ps.Partition] = true

		if math.IsNaN(ps.Weight) || math.IsInf(ps.Weight, 0) || ps.Weight <= 0 {
			return fmt.Errorf("%w: partition %s weight must be positive and finite, got %g",
				domain.ErrInvalidTuning, ps.Partition, ps.Weight)
		}
		if ps.TopK < 1 {
			return fmt.Errorf("%w: partition %s top_k must be >= 1, got %d",
				domain.ErrInvalidTuning, ps.Partition, ps.TopK)
		}
	}

	if err := c.Weights().Cover(c.partitionList()); err != nil {
		return err //nolint:wrapcheck // already carries the sentinel
	}

	if err := c.Tuning.Validate(); err != nil {
		return err //nolint:wrapcheck // already carries the sentinel
	}
	return nil
}
