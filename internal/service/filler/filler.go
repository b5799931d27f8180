package filler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"crosslister/internal/domain"
	"crosslister/internal/integrations/anthropic"
)

// Aspect values above this length are rejected by the listing API.
const maxValueLen = 65

// Aspects whose values come from structured product data, never from a
// model completion.
var protectedAspects = map[string]bool{
	"brand":     true,
	"mpn":       true,
	"condition": true,
}

// Completer is the text-completion dependency.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

const fillSystem = "You extract item attributes from product data. Always answer with a single JSON object mapping attribute names to string values and nothing else. Omit attributes you cannot determine; never guess."

// Filler produces the aspect map for one listing: structured data
// first, a model completion for the gaps, then a validation pass that
// drops anything a SELECTION_ONLY aspect does not allow.
type Filler struct {
	completer Completer
}

func New(completer Completer) *Filler {
	return &Filler{completer: completer}
}

// Fill resolves values for the category's aspect requirements. brand is
// authoritative; a missing required aspect after all sources are
// exhausted is a RequirementsError.
func (f *Filler) Fill(ctx context.Context, p domain.Product, brand string, reqs []domain.AspectRequirement) (map[string][]string, error) {
	values := map[string][]string{}
	if brand != "" {
		values["Brand"] = []string{brand}
	}

	// Structured specifications win over completions.
	specs := map[string]string{}
	for k, v := range p.Specifications {
		specs[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	var missing []domain.AspectRequirement
	for _, req := range reqs {
		key := strings.ToLower(req.Name)
		if _, done := values[req.Name]; done {
			continue
		}
		if v, ok := specs[key]; ok && v != "" {
			values[req.Name] = []string{v}
			continue
		}
		if req.Required || req.Recommended {
			missing = append(missing, req)
		}
	}

	if len(missing) > 0 && f.completer != nil {
		filled, err := f.complete(ctx, p, missing)
		if err != nil {
			log.Printf("filler: completion failed for %s: %v", p.ASIN, err)
		}
		for name, vals := range filled {
			if protectedAspects[strings.ToLower(name)] {
				continue
			}
			if _, done := values[name]; !done {
				values[name] = vals
			}
		}
	}

	return f.validate(values, reqs)
}

// validate enforces allowed values, cardinality and value length, then
// checks that every required aspect survived.
func (f *Filler) validate(values map[string][]string, reqs []domain.AspectRequirement) (map[string][]string, error) {
	byName := map[string]domain.AspectRequirement{}
	for _, req := range reqs {
		byName[strings.ToLower(req.Name)] = req
	}

	out := map[string][]string{}
	for name, vals := range values {
		req, known := byName[strings.ToLower(name)]
		kept := make([]string, 0, len(vals))
		for _, v := range vals {
			v = truncateValue(strings.TrimSpace(v))
			if v == "" {
				continue
			}
			if known && req.Mode == domain.AspectSelectionOnly {
				allowed, canonical := matchAllowed(v, req.AllowedValues)
				if !allowed {
					log.Printf("filler: dropping %q=%q, not in allowed values", name, v)
					continue
				}
				v = canonical
			}
			kept = append(kept, v)
		}
		if len(kept) == 0 {
			continue
		}
		if known && req.Cardinality == domain.CardinalitySingle && len(kept) > 1 {
			kept = kept[:1]
		}
		if known {
			name = req.Name
		}
		out[name] = kept
	}

	var unmet []string
	categoryID := ""
	for _, req := range reqs {
		categoryID = req.CategoryID
		if req.Required {
			if _, ok := out[req.Name]; !ok {
				unmet = append(unmet, req.Name)
			}
		}
	}
	if len(unmet) > 0 {
		return nil, &domain.RequirementsError{CategoryID: categoryID, Unmet: unmet}
	}
	return out, nil
}

func (f *Filler) complete(ctx context.Context, p domain.Product, missing []domain.AspectRequirement) (map[string][]string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Product:\nTitle: %s\n", p.Title)
	for i, bp := range p.BulletPoints {
		if i >= 8 {
			break
		}
		fmt.Fprintf(&b, "- %s\n", bp)
	}
	if p.Description != "" {
		desc := p.Description
		if len(desc) > 800 {
			desc = desc[:800]
		}
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}
	b.WriteString("\nAttributes to extract:\n")
	for _, req := range missing {
		// Optional aspects with huge option lists blow up the prompt for
		// little gain.
		if !req.Required && len(req.AllowedValues) > 50 {
			continue
		}
		switch {
		case req.Mode == domain.AspectSelectionOnly && len(req.AllowedValues) > 0:
			opts := req.AllowedValues
			if len(opts) > 30 {
				opts = opts[:30]
			}
			fmt.Fprintf(&b, "- %s (choose one of: %s)\n", req.Name, strings.Join(opts, ", "))
		case req.Required:
			fmt.Fprintf(&b, "- %s (required)\n", req.Name)
		default:
			fmt.Fprintf(&b, "- %s\n", req.Name)
		}
	}
	b.WriteString("\nRespond with JSON mapping attribute names to values.")

	text, err := f.completer.Complete(ctx, fillSystem, b.String(), 1024)
	if err != nil {
		return nil, err
	}
	raw, err := anthropic.ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parse attributes: %w", err)
	}

	out := map[string][]string{}
	for name, v := range decoded {
		switch val := v.(type) {
		case string:
			if val != "" {
				out[name] = []string{val}
			}
		case []interface{}:
			var vals []string
			for _, item := range val {
				if s, ok := item.(string); ok && s != "" {
					vals = append(vals, s)
				}
			}
			if len(vals) > 0 {
				out[name] = vals
			}
		case float64:
			out[name] = []string{strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")}
		}
	}
	return out, nil
}

// matchAllowed does a case-insensitive lookup and returns the canonical
// spelling on success.
func matchAllowed(v string, allowed []string) (bool, string) {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true, a
		}
	}
	return false, ""
}

// truncateValue cuts at the last word boundary that fits the API's
// value length cap.
func truncateValue(v string) string {
	if len(v) <= maxValueLen {
		return v
	}
	cut := v[:maxValueLen]
	if i := strings.LastIndexByte(cut, ' '); i > maxValueLen/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
