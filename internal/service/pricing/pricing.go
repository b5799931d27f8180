package pricing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Charm strategies.
const (
	StrategyNone     = ""
	StrategyAlways99 = "always_99"
	StrategyAlways49 = "always_49"
	StrategyTiered   = "tiered"
)

// Tier maps a source-price band to a multiplier.
type Tier struct {
	MaxPrice   float64 // 0 means no upper bound
	Multiplier float64
}

// Calculator turns a source price into a listing price: percentage plus
// fixed markup by default, band multipliers under the tiered strategy,
// and an optional charm ending. A per-product multiplier overrides the
// markup entirely.
type Calculator struct {
	MarkupPct float64
	Fixed     float64
	Strategy  string
	Tiers     []Tier
}

var priceRe = regexp.MustCompile(`[0-9]+(?:[.,][0-9]{1,2})?`)

// ParsePrice extracts the first monetary value from a price string such
// as "$29.99", "29,99 €" or "29.99 - 34.99".
func ParsePrice(s string) (float64, error) {
	m := priceRe.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("no price in %q", s)
	}
	m = strings.ReplaceAll(m, ",", ".")
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("non-positive price in %q", s)
	}
	return v, nil
}

// Price computes the listing price. deliveryFee is added to the cost
// basis before markup; override, when set, replaces the markup with a
// flat multiplier.
func (c Calculator) Price(sourcePrice, deliveryFee float64, override *float64) float64 {
	base := sourcePrice + deliveryFee
	var price float64
	switch {
	case override != nil && *override > 0:
		price = base * *override
	case c.Strategy == StrategyTiered && len(c.Tiers) > 0:
		price = base * c.tierMultiplier(sourcePrice)
	default:
		price = base*(1+c.MarkupPct/100) + c.Fixed
	}
	return c.charm(round2(price))
}

func (c Calculator) tierMultiplier(sourcePrice float64) float64 {
	for _, t := range c.Tiers {
		if t.MaxPrice > 0 && sourcePrice <= t.MaxPrice {
			return t.Multiplier
		}
	}
	last := c.Tiers[len(c.Tiers)-1]
	return last.Multiplier
}

// charm nudges the price up to the configured psychological ending.
// Never down: the computed price is the floor.
func (c Calculator) charm(price float64) float64 {
	whole := math.Floor(price)
	switch c.Strategy {
	case StrategyAlways99, StrategyTiered:
		return round2(whole + 0.99)
	case StrategyAlways49:
		if price <= whole+0.49 {
			return round2(whole + 0.49)
		}
		return round2(whole + 0.99)
	}
	return price
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
