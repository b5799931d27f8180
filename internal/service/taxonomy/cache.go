package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"crosslister/internal/domain"
	"crosslister/internal/integrations/ebay"
	"crosslister/internal/store"
)

// TreeFetcher is the taxonomy download dependency.
type TreeFetcher interface {
	GetCategoryTree(ctx context.Context) (*ebay.CategoryTree, error)
}

// Cache serves the marketplace category snapshot. A snapshot within the
// TTL is served from memory or disk without a network call; an expired
// one is refreshed and swapped in whole. When a refresh fails and a
// stale snapshot exists, the stale one is served with a warning; with
// no snapshot at all the run cannot proceed.
type Cache struct {
	fetcher TreeFetcher
	store   store.Store
	ttl     time.Duration

	mu   sync.RWMutex
	snap *domain.CategorySnapshot
}

func NewCache(fetcher TreeFetcher, st store.Store, ttl time.Duration) *Cache {
	return &Cache{fetcher: fetcher, store: st, ttl: ttl}
}

func (c *Cache) fresh(snap *domain.CategorySnapshot) bool {
	return snap != nil && time.Since(snap.FetchedAt) < c.ttl
}

// Snapshot returns the current category snapshot, refreshing if needed.
// The returned snapshot is immutable for the life of the run.
func (c *Cache) Snapshot(ctx context.Context) (*domain.CategorySnapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if c.fresh(snap) {
		return snap, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh(c.snap) {
		return c.snap, nil
	}

	if c.snap == nil {
		stored, err := c.store.LoadSnapshot()
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Printf("taxonomy: load cached snapshot: %v", err)
		}
		if stored != nil {
			c.snap = stored
			if c.fresh(stored) {
				log.Printf("taxonomy: using cached snapshot of %d categories from %s",
					len(stored.Nodes), stored.FetchedAt.Format("2006-01-02"))
				return stored, nil
			}
		}
	}

	fresh, err := c.refresh(ctx)
	if err != nil {
		if c.snap != nil {
			log.Printf("taxonomy: refresh failed, serving stale snapshot from %s: %v",
				c.snap.FetchedAt.Format("2006-01-02"), err)
			return c.snap, nil
		}
		return nil, fmt.Errorf("no category snapshot available: %w", err)
	}
	c.snap = fresh
	return fresh, nil
}

func (c *Cache) refresh(ctx context.Context) (*domain.CategorySnapshot, error) {
	log.Printf("taxonomy: downloading category tree")
	tree, err := c.fetcher.GetCategoryTree(ctx)
	if err != nil {
		return nil, err
	}
	snap := &domain.CategorySnapshot{
		FetchedAt: time.Now(),
		Version:   tree.CategoryTreeVersion,
		Nodes:     ebay.FlattenTree(tree),
	}
	if len(snap.Nodes) == 0 {
		return nil, fmt.Errorf("category tree is empty")
	}
	if err := c.store.SaveSnapshot(snap); err != nil {
		log.Printf("taxonomy: persist snapshot: %v", err)
	}
	log.Printf("taxonomy: snapshot refreshed, %d categories (version %s)", len(snap.Nodes), snap.Version)
	return snap, nil
}
