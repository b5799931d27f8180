package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"crosslister/internal/domain"
	"crosslister/internal/integrations/anthropic"
)

// Completer is the text-completion dependency.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

const selectSystem = "You are an expert at categorizing retail products into marketplace categories. Always answer with a single JSON object and nothing else."

// SampleCounts controls how many categories are drawn from each tree
// level when building an LLM candidate list.
type SampleCounts struct {
	Level2 int
	Level3 int
	Level4 int
}

// LLMSelector asks the model to pick a category from a stratified
// sample of the tree. Mid-level categories carry most of the signal, so
// the sample is drawn from levels 2 through 4 plus any configured
// priority categories.
type LLMSelector struct {
	completer Completer
	counts    SampleCounts
	priority  []string
	rng       *rand.Rand
}

func NewLLMSelector(completer Completer, counts SampleCounts, priority []string, seed int64) *LLMSelector {
	if counts.Level2 <= 0 {
		counts.Level2 = 50
	}
	if counts.Level3 <= 0 {
		counts.Level3 = 70
	}
	if counts.Level4 <= 0 {
		counts.Level4 = 30
	}
	return &LLMSelector{
		completer: completer,
		counts:    counts,
		priority:  priority,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// sampleCandidates draws a stratified sample of category paths.
// Priority categories are always included.
func (s *LLMSelector) sampleCandidates(snap *domain.CategorySnapshot) []domain.CategoryNode {
	byLevel := map[int][]string{}
	for id, node := range snap.Nodes {
		if node.Level >= 2 && node.Level <= 4 {
			byLevel[node.Level] = append(byLevel[node.Level], id)
		}
	}
	for lvl := range byLevel {
		sort.Strings(byLevel[lvl])
	}

	picked := map[string]bool{}
	for _, id := range s.priority {
		if _, ok := snap.Nodes[id]; ok {
			picked[id] = true
		}
	}
	take := func(level, n int) {
		ids := byLevel[level]
		s.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		for _, id := range ids {
			if n <= 0 {
				break
			}
			if !picked[id] {
				picked[id] = true
				n--
			}
		}
	}
	take(2, s.counts.Level2)
	take(3, s.counts.Level3)
	take(4, s.counts.Level4)

	out := make([]domain.CategoryNode, 0, len(picked))
	for id := range picked {
		out = append(out, snap.Nodes[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type pickResponse struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Confidence   float64 `json:"confidence"`
}

func productSummary(p domain.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	if p.Description != "" {
		desc := p.Description
		if len(desc) > 500 {
			desc = desc[:500]
		}
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}
	for i, bp := range p.BulletPoints {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- %s\n", bp)
	}
	return b.String()
}

func candidateLines(snap *domain.CategorySnapshot, nodes []domain.CategoryNode) string {
	var b strings.Builder
	for _, n := range nodes {
		fmt.Fprintf(&b, "%s: %s\n", n.ID, snap.Path(n.ID))
	}
	return b.String()
}

// Select picks a leaf category for the product. A pick that is not a
// leaf, or that was never among the offered candidates, gets exactly
// one retry against leaf candidates only.
func (s *LLMSelector) Select(ctx context.Context, p domain.Product, snap *domain.CategorySnapshot) (domain.Selection, error) {
	candidates := s.sampleCandidates(snap)
	if len(candidates) == 0 {
		return domain.Selection{}, &domain.SelectionError{SKU: p.ASIN, Reason: "no candidate categories"}
	}
	offered := make(map[string]bool, len(candidates))
	for _, n := range candidates {
		offered[n.ID] = true
	}

	prompt := fmt.Sprintf(
		"Pick the best category for this product.\n\n%s\nCandidate categories (id: path):\n%s\nRespond with JSON: {\"category_id\": \"...\", \"category_name\": \"...\", \"confidence\": 0.0}",
		productSummary(p), candidateLines(snap, candidates))

	pick, err := s.ask(ctx, prompt)
	if err != nil {
		return domain.Selection{}, &domain.SelectionError{SKU: p.ASIN, Reason: err.Error()}
	}
	if offered[pick.CategoryID] && snap.IsLeaf(pick.CategoryID) {
		return selectionFrom(snap, pick), nil
	}

	// Retry once, offering only listing-eligible leaves under or near
	// the first pick.
	leaves := leafCandidates(snap, pick.CategoryID, candidates)
	if len(leaves) == 0 {
		return domain.Selection{}, &domain.SelectionError{
			SKU:    p.ASIN,
			Reason: fmt.Sprintf("category %q is not a listable candidate and has no leaf alternatives", pick.CategoryID),
		}
	}
	complaint := "is not a leaf category and cannot hold listings"
	if !offered[pick.CategoryID] {
		complaint = "was not among the offered candidates"
	}
	retryPrompt := fmt.Sprintf(
		"Your previous pick %q %s. Pick the best LEAF category for this product, from this list only.\n\n%s\nLeaf categories (id: path):\n%s\nRespond with JSON: {\"category_id\": \"...\", \"category_name\": \"...\", \"confidence\": 0.0}",
		pick.CategoryID, complaint, productSummary(p), candidateLines(snap, leaves))

	leafSet := make(map[string]bool, len(leaves))
	for _, n := range leaves {
		leafSet[n.ID] = true
	}
	pick, err = s.ask(ctx, retryPrompt)
	if err != nil {
		return domain.Selection{}, &domain.SelectionError{SKU: p.ASIN, Reason: err.Error()}
	}
	if !leafSet[pick.CategoryID] || !snap.IsLeaf(pick.CategoryID) {
		return domain.Selection{}, &domain.SelectionError{
			SKU:    p.ASIN,
			Reason: fmt.Sprintf("category %q is not an offered leaf after retry", pick.CategoryID),
		}
	}
	return selectionFrom(snap, pick), nil
}

func (s *LLMSelector) ask(ctx context.Context, prompt string) (pickResponse, error) {
	text, err := s.completer.Complete(ctx, selectSystem, prompt, 512)
	if err != nil {
		return pickResponse{}, err
	}
	raw, err := anthropic.ExtractJSON(text)
	if err != nil {
		return pickResponse{}, err
	}
	var pick pickResponse
	if err := json.Unmarshal([]byte(raw), &pick); err != nil {
		return pickResponse{}, fmt.Errorf("parse category pick: %w", err)
	}
	if pick.CategoryID == "" {
		return pickResponse{}, fmt.Errorf("empty category pick")
	}
	return pick, nil
}

// leafCandidates collects leaves under parentID, padded out with the
// leaves already present in the sampled candidate list.
func leafCandidates(snap *domain.CategorySnapshot, parentID string, sampled []domain.CategoryNode) []domain.CategoryNode {
	out := make([]domain.CategoryNode, 0, 64)
	seen := map[string]bool{}
	for id, node := range snap.Nodes {
		if node.Leaf && underParent(snap, id, parentID) {
			out = append(out, node)
			seen[id] = true
		}
	}
	for _, n := range sampled {
		if n.Leaf && !seen[n.ID] {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > 60 {
		out = out[:60]
	}
	return out
}

func underParent(snap *domain.CategorySnapshot, id, parentID string) bool {
	for cur := id; cur != ""; {
		if cur == parentID {
			return true
		}
		node, ok := snap.Nodes[cur]
		if !ok {
			return false
		}
		cur = node.ParentID
	}
	return false
}

func selectionFrom(snap *domain.CategorySnapshot, pick pickResponse) domain.Selection {
	name := pick.CategoryName
	if node, ok := snap.Node(pick.CategoryID); ok {
		name = node.Name
	}
	conf := pick.Confidence
	if conf <= 0 || conf > 1 {
		conf = 0.5
	}
	return domain.Selection{
		CategoryID:   pick.CategoryID,
		CategoryName: name,
		Confidence:   conf,
	}
}
