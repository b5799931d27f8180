package taxonomy

import (
	"context"
	"sync"

	"crosslister/internal/domain"
)

// AspectFetcher is the per-category aspect download dependency.
type AspectFetcher interface {
	GetItemAspects(ctx context.Context, categoryID string) ([]domain.AspectRequirement, error)
}

// AspectCatalog memoizes aspect requirements per category for the life
// of one run. Batches cluster in few categories, so this saves most of
// the aspect calls.
type AspectCatalog struct {
	fetcher AspectFetcher

	mu    sync.Mutex
	cache map[string][]domain.AspectRequirement
}

func NewAspectCatalog(fetcher AspectFetcher) *AspectCatalog {
	return &AspectCatalog{
		fetcher: fetcher,
		cache:   make(map[string][]domain.AspectRequirement),
	}
}

func (c *AspectCatalog) Aspects(ctx context.Context, categoryID string) ([]domain.AspectRequirement, error) {
	c.mu.Lock()
	cached, ok := c.cache[categoryID]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	reqs, err := c.fetcher.GetItemAspects(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[categoryID] = reqs
	c.mu.Unlock()
	return reqs, nil
}
