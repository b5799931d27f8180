package selector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"crosslister/internal/domain"
)

func testSnapshot() *domain.CategorySnapshot {
	return &domain.CategorySnapshot{
		Nodes: map[string]domain.CategoryNode{
			"1":   {ID: "1", Name: "Electronics", Level: 1},
			"10":  {ID: "10", Name: "Headphones", ParentID: "1", Level: 2},
			"100": {ID: "100", Name: "Wireless Headphones", ParentID: "10", Level: 3, Leaf: true},
			"101": {ID: "101", Name: "Wired Headphones", ParentID: "10", Level: 3, Leaf: true},
			"2":   {ID: "2", Name: "Home & Garden", Level: 1},
			"20":  {ID: "20", Name: "Kitchen", ParentID: "2", Level: 2},
			"200": {ID: "200", Name: "Coffee Makers", ParentID: "20", Level: 3, Leaf: true},
			"201": {ID: "201", Name: "Blenders", ParentID: "20", Level: 4, Leaf: true},
		},
	}
}

func TestHashingEmbedder_Deterministic(t *testing.T) {
	e := NewHashingEmbedder(128)
	a := e.Embed("Wireless Bluetooth Headphones")
	b := e.Embed("Wireless Bluetooth Headphones")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at dim %d", i)
		}
	}
	if got := cosine(a, b); got < 0.999 {
		t.Fatalf("self-similarity = %f", got)
	}
}

func TestSemanticIndex_RanksByOverlap(t *testing.T) {
	snap := testSnapshot()
	idx := BuildIndex(snap, NewHashingEmbedder(256))
	if idx.Len() != 5 {
		t.Fatalf("indexed %d leaves, want 5", idx.Len())
	}

	top := idx.Search("Sony wireless headphones with noise cancelling", 3, 0.01)
	if len(top) == 0 {
		t.Fatalf("no candidates")
	}
	if top[0].Node.ID != "100" {
		t.Fatalf("top candidate = %s (%s), want 100", top[0].Node.ID, top[0].Path)
	}
}

func TestSemanticIndex_SimilarityFloor(t *testing.T) {
	idx := BuildIndex(testSnapshot(), NewHashingEmbedder(256))
	top := idx.Search("zzz qqq xxx unrelated tokens", 3, 0.99)
	if len(top) != 0 {
		t.Fatalf("expected no candidates above 0.99 floor, got %d", len(top))
	}
}

// fakeCompleter replays canned completions in order.
type fakeCompleter struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no canned reply")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func product() domain.Product {
	return domain.Product{
		ASIN:  "B000TEST",
		Title: "Wireless Bluetooth Headphones with Noise Cancelling",
	}
}

func TestLLMSelector_AcceptsLeafPick(t *testing.T) {
	comp := &fakeCompleter{replies: []string{
		`{"category_id":"100","category_name":"Wireless Headphones","confidence":0.9}`,
	}}
	sel := NewLLMSelector(comp, SampleCounts{}, nil, 1)

	got, err := sel.Select(context.Background(), product(), testSnapshot())
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if got.CategoryID != "100" || got.Confidence != 0.9 {
		t.Fatalf("selection = %+v", got)
	}
}

func TestLLMSelector_RetriesNonLeafOnce(t *testing.T) {
	comp := &fakeCompleter{replies: []string{
		`{"category_id":"10","category_name":"Headphones","confidence":0.8}`,
		`{"category_id":"101","category_name":"Wired Headphones","confidence":0.7}`,
	}}
	sel := NewLLMSelector(comp, SampleCounts{}, nil, 1)

	got, err := sel.Select(context.Background(), product(), testSnapshot())
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if got.CategoryID != "101" {
		t.Fatalf("selection = %+v", got)
	}
	if len(comp.prompts) != 2 {
		t.Fatalf("prompts = %d, want 2", len(comp.prompts))
	}
	if !strings.Contains(comp.prompts[1], "LEAF") {
		t.Fatalf("retry prompt missing leaf instruction: %s", comp.prompts[1])
	}
}

func TestLLMSelector_NonLeafAfterRetryFails(t *testing.T) {
	comp := &fakeCompleter{replies: []string{
		`{"category_id":"10","confidence":0.8}`,
		`{"category_id":"20","confidence":0.8}`,
	}}
	sel := NewLLMSelector(comp, SampleCounts{}, nil, 1)

	_, err := sel.Select(context.Background(), product(), testSnapshot())
	var selErr *domain.SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("err = %v, want SelectionError", err)
	}
	if selErr.SKU != "B000TEST" {
		t.Fatalf("SKU = %q", selErr.SKU)
	}
}

// deepSnapshot extends the base tree with two level-5 leaves, which sit
// below the levels the stratified sample draws from.
func deepSnapshot() *domain.CategorySnapshot {
	snap := testSnapshot()
	snap.Nodes["30"] = domain.CategoryNode{ID: "30", Name: "Sporting Goods", Level: 2}
	snap.Nodes["300"] = domain.CategoryNode{ID: "300", Name: "Cycling", ParentID: "30", Level: 3}
	snap.Nodes["3000"] = domain.CategoryNode{ID: "3000", Name: "Bike Components", ParentID: "300", Level: 4}
	snap.Nodes["30000"] = domain.CategoryNode{ID: "30000", Name: "Brake Levers", ParentID: "3000", Level: 5, Leaf: true}
	snap.Nodes["40"] = domain.CategoryNode{ID: "40", Name: "Crafts", Level: 2}
	snap.Nodes["400"] = domain.CategoryNode{ID: "400", Name: "Beads", ParentID: "40", Level: 3}
	snap.Nodes["4000"] = domain.CategoryNode{ID: "4000", Name: "Glass Beads", ParentID: "400", Level: 4}
	snap.Nodes["40000"] = domain.CategoryNode{ID: "40000", Name: "Lampwork Beads", ParentID: "4000", Level: 5, Leaf: true}
	return snap
}

func TestLLMSelector_RetriesUnofferedLeafPick(t *testing.T) {
	// "30000" is a real leaf but was never in the candidate list; the
	// pick must go through the retry rather than being accepted.
	comp := &fakeCompleter{replies: []string{
		`{"category_id":"30000","confidence":0.9}`,
		`{"category_id":"100","category_name":"Wireless Headphones","confidence":0.8}`,
	}}
	sel := NewLLMSelector(comp, SampleCounts{}, nil, 1)

	got, err := sel.Select(context.Background(), product(), deepSnapshot())
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if got.CategoryID != "100" {
		t.Fatalf("selection = %+v", got)
	}
	if len(comp.prompts) != 2 {
		t.Fatalf("prompts = %d, want 2", len(comp.prompts))
	}
	if !strings.Contains(comp.prompts[1], "30000") {
		t.Fatalf("retry prompt missing rejected pick: %s", comp.prompts[1])
	}
}

func TestLLMSelector_UnofferedLeafAfterRetryFails(t *testing.T) {
	comp := &fakeCompleter{replies: []string{
		`{"category_id":"30000","confidence":0.9}`,
		`{"category_id":"40000","confidence":0.9}`,
	}}
	sel := NewLLMSelector(comp, SampleCounts{}, nil, 1)

	_, err := sel.Select(context.Background(), product(), deepSnapshot())
	var selErr *domain.SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("err = %v, want SelectionError", err)
	}
}

func TestLLMSelector_PriorityCategoriesAlwaysSampled(t *testing.T) {
	sel := NewLLMSelector(&fakeCompleter{}, SampleCounts{Level2: 1, Level3: 1, Level4: 1}, []string{"201"}, 1)
	nodes := sel.sampleCandidates(testSnapshot())
	found := false
	for _, n := range nodes {
		if n.ID == "201" {
			found = true
		}
	}
	if !found {
		t.Fatalf("priority category missing from sample: %+v", nodes)
	}
}

func TestHybridSelector_RefinesTopCandidates(t *testing.T) {
	comp := &fakeCompleter{replies: []string{
		`{"category_id":"100","title":"Wireless Noise Cancelling Headphones","brand":"Sony","confidence":0.95}`,
	}}
	sel := NewHybridSelector(NewHashingEmbedder(256), comp, nil, 0.01)

	got, err := sel.Select(context.Background(), product(), testSnapshot())
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if got.CategoryID != "100" || got.Brand != "Sony" {
		t.Fatalf("selection = %+v", got)
	}
	if got.Title != "Wireless Noise Cancelling Headphones" {
		t.Fatalf("title = %q", got.Title)
	}
}

func TestHybridSelector_FallsBackToTopMatchOnBadRefinement(t *testing.T) {
	// Refinement names a category that was never offered.
	comp := &fakeCompleter{replies: []string{
		`{"category_id":"9999","title":"x","brand":"y","confidence":0.9}`,
	}}
	sel := NewHybridSelector(NewHashingEmbedder(256), comp, nil, 0.01)

	got, err := sel.Select(context.Background(), product(), testSnapshot())
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if got.CategoryID != "100" {
		t.Fatalf("selection = %+v, want top semantic match", got)
	}
	if got.Title != "" || got.Brand != "" {
		t.Fatalf("fallback must not carry refinement output: %+v", got)
	}
}

func TestHybridSelector_FallsBackToStratifiedBelowFloor(t *testing.T) {
	fallback := NewLLMSelector(&fakeCompleter{replies: []string{
		`{"category_id":"200","confidence":0.6}`,
	}}, SampleCounts{}, nil, 1)
	sel := NewHybridSelector(NewHashingEmbedder(256), &fakeCompleter{}, fallback, 0.999)

	got, err := sel.Select(context.Background(), domain.Product{ASIN: "B1", Title: "qqq zzz"}, testSnapshot())
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if got.CategoryID != "200" {
		t.Fatalf("selection = %+v", got)
	}
}

func TestSemanticIndex_TieBreakPrefersShallower(t *testing.T) {
	snap := &domain.CategorySnapshot{
		Nodes: map[string]domain.CategoryNode{
			"a": {ID: "a", Name: "Gadget", Level: 2, Leaf: true},
			"b": {ID: "b", Name: "Gadget", Level: 4, Leaf: true},
		},
	}
	idx := BuildIndex(snap, NewHashingEmbedder(256))
	top := idx.Search("Gadget", 2, 0.01)
	if len(top) != 2 {
		t.Fatalf("got %d candidates", len(top))
	}
	if top[0].Node.Level >= top[1].Node.Level {
		t.Fatalf("tie-break order = %s then %s", describeCand(top[0]), describeCand(top[1]))
	}
}

func describeCand(c Candidate) string {
	return fmt.Sprintf("%s(level %d)", c.Node.ID, c.Node.Level)
}
