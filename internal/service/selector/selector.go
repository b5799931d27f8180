package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"crosslister/internal/domain"
	"crosslister/internal/integrations/anthropic"
)

// Selector picks a leaf category for a product, optionally enriching
// the selection with an optimized title and brand.
type Selector interface {
	Select(ctx context.Context, p domain.Product, snap *domain.CategorySnapshot) (domain.Selection, error)
}

const refineSystem = "You are an expert at writing marketplace listings. Always answer with a single JSON object and nothing else."

// HybridSelector ranks leaves semantically and hands the top three to
// the model, which picks the winner and rewrites the title for search.
// When no candidate clears the similarity floor it falls back to the
// stratified selector.
type HybridSelector struct {
	embedder      Embedder
	completer     Completer
	fallback      *LLMSelector
	minSimilarity float64
	topK          int

	mu      sync.Mutex
	indexed *domain.CategorySnapshot
	index   *SemanticIndex
}

func NewHybridSelector(embedder Embedder, completer Completer, fallback *LLMSelector, minSimilarity float64) *HybridSelector {
	return &HybridSelector{
		embedder:      embedder,
		completer:     completer,
		fallback:      fallback,
		minSimilarity: minSimilarity,
		topK:          3,
	}
}

// indexFor reuses the index as long as the snapshot pointer is stable.
func (s *HybridSelector) indexFor(snap *domain.CategorySnapshot) *SemanticIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed != snap {
		s.index = BuildIndex(snap, s.embedder)
		s.indexed = snap
		log.Printf("selector: indexed %d leaf categories", s.index.Len())
	}
	return s.index
}

type refineResponse struct {
	CategoryID string  `json:"category_id"`
	Title      string  `json:"title"`
	Brand      string  `json:"brand"`
	Confidence float64 `json:"confidence"`
}

func (s *HybridSelector) Select(ctx context.Context, p domain.Product, snap *domain.CategorySnapshot) (domain.Selection, error) {
	idx := s.indexFor(snap)
	query := p.Title
	if len(p.BulletPoints) > 0 {
		query += " " + p.BulletPoints[0]
	}
	top := idx.Search(query, s.topK, s.minSimilarity)
	if len(top) == 0 {
		if s.fallback != nil {
			log.Printf("selector: no semantic match for %s, falling back to stratified pick", p.ASIN)
			return s.fallback.Select(ctx, p, snap)
		}
		return domain.Selection{}, &domain.SelectionError{SKU: p.ASIN, Reason: "no category above similarity floor"}
	}

	var lines strings.Builder
	for _, c := range top {
		fmt.Fprintf(&lines, "%s: %s (similarity %.2f)\n", c.Node.ID, c.Path, c.Score)
	}
	prompt := fmt.Sprintf(
		"Given this product and %d candidate categories, pick the best category, write an optimized listing title of at most 80 characters, and extract the brand (use \"Generic\" if none is stated).\n\n%s\nCandidates (id: path):\n%s\nRespond with JSON: {\"category_id\": \"...\", \"title\": \"...\", \"brand\": \"...\", \"confidence\": 0.0}",
		len(top), productSummary(p), lines.String())

	sel, err := s.refine(ctx, prompt, top)
	if err != nil {
		log.Printf("selector: refinement failed for %s, using top semantic match: %v", p.ASIN, err)
		best := top[0]
		return domain.Selection{
			CategoryID:   best.Node.ID,
			CategoryName: best.Node.Name,
			Confidence:   best.Score,
		}, nil
	}
	return sel, nil
}

func (s *HybridSelector) refine(ctx context.Context, prompt string, top []Candidate) (domain.Selection, error) {
	text, err := s.completer.Complete(ctx, refineSystem, prompt, 512)
	if err != nil {
		return domain.Selection{}, err
	}
	raw, err := anthropic.ExtractJSON(text)
	if err != nil {
		return domain.Selection{}, err
	}
	var out refineResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return domain.Selection{}, fmt.Errorf("parse refinement: %w", err)
	}

	// The pick must be one of the offered candidates.
	for _, c := range top {
		if c.Node.ID == out.CategoryID {
			conf := out.Confidence
			if conf <= 0 || conf > 1 {
				conf = c.Score
			}
			return domain.Selection{
				CategoryID:   c.Node.ID,
				CategoryName: c.Node.Name,
				Confidence:   conf,
				Title:        out.Title,
				Brand:        out.Brand,
			}, nil
		}
	}
	return domain.Selection{}, fmt.Errorf("refinement picked %q, not among candidates", out.CategoryID)
}
