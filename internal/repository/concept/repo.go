package concept

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/askdex/internal/db"
	"github.com/kailas-cloud/askdex/internal/domain"
	domconcept "github.com/kailas-cloud/askdex/internal/domain/concept"
)

const (
	fieldName    = "name"
	fieldSummary = "summary"
)

// store is the consumer interface for concept lookups (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo resolves curriculum concepts stored as hashes under askdex:concept:<id>.
type Repo struct {
	store store
}

// New creates a concept repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Key returns the hash key of a concept.
func Key(id string) string {
	return domain.KeyPrefix + "concept:" + id
}

// Resolve loads a concept by id. Unknown ids yield domain.ErrNotFound.
func (r *Repo) Resolve(ctx context.Context, id string) (domconcept.Concept, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domconcept.Concept{}, fmt.Errorf("concept id: %w", domain.ErrNotFound)
	}

	fields, err := r.store.HGetAll(ctx, Key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domconcept.Concept{}, fmt.Errorf("concept %s: %w", id, domain.ErrNotFound)
		}
		return domconcept.Concept{}, fmt.Errorf("get concept %s: %w", id, err)
	}

	c := domconcept.Concept{
		ID:      id,
		Name:    fields[fieldName],
		Summary: fields[fieldSummary],
	}
	if c.Name == "" {
		c.Name = id
	}
	return c, nil
}
