package taxonomy

import (
	"context"
	"errors"
	"testing"
	"time"

	"crosslister/internal/domain"
	"crosslister/internal/integrations/ebay"
	filestore "crosslister/internal/store/file"
)

type fakeFetcher struct {
	calls int
	tree  *ebay.CategoryTree
	err   error
}

func (f *fakeFetcher) GetCategoryTree(ctx context.Context) (*ebay.CategoryTree, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tree, nil
}

func smallTree() *ebay.CategoryTree {
	return &ebay.CategoryTree{
		CategoryTreeVersion: "119",
		RootCategoryNode: ebay.CategoryTreeNode{
			ChildCategoryTreeNodes: []ebay.CategoryTreeNode{
				{
					Category:              ebay.CategoryRef{CategoryID: "1", CategoryName: "Collectibles"},
					CategoryTreeNodeLevel: 1,
					ChildCategoryTreeNodes: []ebay.CategoryTreeNode{
						{Category: ebay.CategoryRef{CategoryID: "34", CategoryName: "Advertising"}, CategoryTreeNodeLevel: 2},
					},
				},
			},
		},
	}
}

func newFileStore(t *testing.T) *filestore.Store {
	t.Helper()
	st, err := filestore.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	return st
}

func TestSnapshot_FetchesOnceAndPersists(t *testing.T) {
	st := newFileStore(t)
	fetcher := &fakeFetcher{tree: smallTree()}
	cache := NewCache(fetcher, st, 90*24*time.Hour)

	snap, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if len(snap.Nodes) != 2 || !snap.IsLeaf("34") {
		t.Fatalf("snapshot = %+v", snap)
	}

	again, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if again != snap {
		t.Fatalf("expected the same snapshot instance within the TTL")
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetcher calls = %d, want 1", fetcher.calls)
	}

	stored, err := st.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot error: %v", err)
	}
	if stored.Version != "119" {
		t.Fatalf("persisted version = %q", stored.Version)
	}
}

func TestSnapshot_UsesStoredWithinTTL(t *testing.T) {
	st := newFileStore(t)
	seed := &domain.CategorySnapshot{
		FetchedAt: time.Now().Add(-time.Hour),
		Version:   "118",
		Nodes:     map[string]domain.CategoryNode{"34": {ID: "34", Name: "Advertising", Leaf: true}},
	}
	if err := st.SaveSnapshot(seed); err != nil {
		t.Fatalf("SaveSnapshot error: %v", err)
	}

	fetcher := &fakeFetcher{err: errors.New("must not be called")}
	cache := NewCache(fetcher, st, 90*24*time.Hour)
	snap, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if snap.Version != "118" || fetcher.calls != 0 {
		t.Fatalf("snapshot = %+v, fetcher calls = %d", snap, fetcher.calls)
	}
}

func TestSnapshot_StaleFallbackOnFetchError(t *testing.T) {
	st := newFileStore(t)
	seed := &domain.CategorySnapshot{
		FetchedAt: time.Now().Add(-120 * 24 * time.Hour),
		Version:   "110",
		Nodes:     map[string]domain.CategoryNode{"34": {ID: "34", Leaf: true}},
	}
	if err := st.SaveSnapshot(seed); err != nil {
		t.Fatalf("SaveSnapshot error: %v", err)
	}

	fetcher := &fakeFetcher{err: errors.New("api down")}
	cache := NewCache(fetcher, st, 90*24*time.Hour)
	snap, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot error: %v (stale fallback expected)", err)
	}
	if snap.Version != "110" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSnapshot_NoSnapshotIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("api down")}
	cache := NewCache(fetcher, newFileStore(t), 90*24*time.Hour)
	if _, err := cache.Snapshot(context.Background()); err == nil {
		t.Fatalf("expected error with no snapshot available")
	}
}

type fakeAspectFetcher struct {
	calls int
}

func (f *fakeAspectFetcher) GetItemAspects(ctx context.Context, categoryID string) ([]domain.AspectRequirement, error) {
	f.calls++
	return []domain.AspectRequirement{{CategoryID: categoryID, Name: "Brand", Required: true}}, nil
}

func TestAspectCatalog_Memoizes(t *testing.T) {
	fetcher := &fakeAspectFetcher{}
	catalog := NewAspectCatalog(fetcher)

	for i := 0; i < 3; i++ {
		reqs, err := catalog.Aspects(context.Background(), "175672")
		if err != nil {
			t.Fatalf("Aspects error: %v", err)
		}
		if len(reqs) != 1 || reqs[0].Name != "Brand" {
			t.Fatalf("reqs = %+v", reqs)
		}
	}
	if _, err := catalog.Aspects(context.Background(), "9999"); err != nil {
		t.Fatalf("Aspects error: %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("fetcher calls = %d, want 2", fetcher.calls)
	}
}
