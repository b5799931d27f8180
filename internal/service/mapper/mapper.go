package mapper

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"crosslister/internal/domain"
	"crosslister/internal/integrations/ebay"
)

const (
	maxTitleLen = 80
	maxBrandLen = 65
	maxImages   = 12

	marketplaceID = "EBAY_US"
	locale        = "en_US"
	condition     = "NEW"
)

// Listing titles must fit the marketplace cap; cut at a word boundary
// so truncation never leaves a dangling fragment.
func TruncateTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) <= maxTitleLen {
		return title
	}
	cut := title[:maxTitleLen]
	if i := strings.LastIndexByte(cut, ' '); i > maxTitleLen/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

var invalidBrands = map[string]bool{
	"":               true,
	"unknown":        true,
	"n/a":            true,
	"na":             true,
	"none":           true,
	"no brand":       true,
	"unbranded":      true,
	"does not apply": true,
	"not specified":  true,
}

// NormalizeBrand maps placeholder brands to "Generic" and clamps the
// value to the aspect length cap.
func NormalizeBrand(brand string) string {
	brand = strings.TrimSpace(brand)
	if invalidBrands[strings.ToLower(brand)] {
		return "Generic"
	}
	if len(brand) > maxBrandLen {
		brand = strings.TrimSpace(brand[:maxBrandLen])
	}
	return brand
}

var (
	zeroWidthRe  = regexp.MustCompile("[\u200B\u200C\u200D\u2060\uFEFF]")
	controlRe    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// SanitizeText strips the control and zero-width characters that appear
// in scraped product data and collapses runs of whitespace.
func SanitizeText(s string) string {
	s = zeroWidthRe.ReplaceAllString(s, "")
	s = controlRe.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// URL fragments that mark UI sprites and video overlays rather than
// product photos.
var skipImagePatterns = []string{
	"_AC_SL",
	"/images/G/",
	"play-button",
	"play-icon",
	"360_icon",
	"transparent-pixel",
}

// FilterImages drops non-product image URLs and caps the gallery size.
func FilterImages(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := map[string]bool{}
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] || !strings.HasPrefix(u, "http") {
			continue
		}
		skip := false
		for _, pat := range skipImagePatterns {
			if strings.Contains(u, pat) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) == maxImages {
			break
		}
	}
	return out
}

// SKU returns the inventory SKU for a product. The ASIN is the SKU, so
// the order export can recover it without a lookup table.
func SKU(p domain.Product) string {
	return strings.ToUpper(strings.TrimSpace(p.ASIN))
}

// ASINFromSKU recovers the source ASIN from a listing SKU, tolerating a
// legacy "AMZN-" prefix.
func ASINFromSKU(sku string) string {
	return strings.TrimPrefix(strings.TrimSpace(sku), "AMZN-")
}

var weightRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*(pounds?|lbs?|ounces?|oz|kilograms?|kg|grams?|g)\b`)

// ParseWeight extracts a shipping weight from the specification map.
// Returns nil when no weight-like spec is present.
func ParseWeight(specs map[string]string) *ebay.PackageWeightAndSize {
	for k, v := range specs {
		lk := strings.ToLower(k)
		if !strings.Contains(lk, "weight") {
			continue
		}
		m := weightRe.FindStringSubmatch(strings.ToLower(v))
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil || value <= 0 {
			continue
		}
		unit := ""
		switch {
		case strings.HasPrefix(m[2], "pound"), strings.HasPrefix(m[2], "lb"):
			unit = "POUND"
		case strings.HasPrefix(m[2], "ounce"), m[2] == "oz":
			unit = "OUNCE"
		case strings.HasPrefix(m[2], "kilogram"), m[2] == "kg":
			unit = "KILOGRAM"
		default:
			unit = "GRAM"
		}
		return &ebay.PackageWeightAndSize{
			Weight: ebay.Weight{Value: m[1], Unit: unit},
		}
	}
	return nil
}

// BuildDescription renders the listing description as simple HTML.
func BuildDescription(p domain.Product) string {
	var b strings.Builder
	b.WriteString("<div>")
	fmt.Fprintf(&b, "<h3>%s</h3>", html.EscapeString(SanitizeText(p.Title)))
	if len(p.BulletPoints) > 0 {
		b.WriteString("<ul>")
		for _, bp := range p.BulletPoints {
			bp = SanitizeText(bp)
			if bp == "" {
				continue
			}
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(bp))
		}
		b.WriteString("</ul>")
	}
	if desc := SanitizeText(p.Description); desc != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(desc))
	}
	b.WriteString("</div>")
	return b.String()
}

// BuildDraft assembles the listing draft from a product, its category
// selection and validated aspects. The selection's optimized title wins
// over the raw product title; both get sanitized and clamped.
func BuildDraft(p domain.Product, sel domain.Selection, aspects map[string][]string, price float64, accountID int) domain.ListingDraft {
	title := sel.Title
	if title == "" {
		title = p.Title
	}
	title = TruncateTitle(SanitizeText(title))

	brand := NormalizeBrand(sel.Brand)
	if aspects == nil {
		aspects = map[string][]string{}
	}
	aspects["Brand"] = []string{brand}

	return domain.ListingDraft{
		Product:    p,
		CategoryID: sel.CategoryID,
		Title:      title,
		Brand:      brand,
		Aspects:    aspects,
		Price:      price,
		AccountID:  accountID,
	}
}

// BuildInventoryItem maps a draft onto the inventory payload. Without a
// parseable weight spec the item ships as 1 pound.
func BuildInventoryItem(draft domain.ListingDraft, quantity int, locationKey string) ebay.InventoryItem {
	weight := ParseWeight(draft.Product.Specifications)
	if weight == nil {
		weight = &ebay.PackageWeightAndSize{Weight: ebay.Weight{Value: "1", Unit: "POUND"}}
	}
	return ebay.InventoryItem{
		Locale: locale,
		Product: ebay.ProductDetails{
			Title:       draft.Title,
			Description: BuildDescription(draft.Product),
			ImageURLs:   FilterImages(draft.Product.Images),
			Aspects:     draft.Aspects,
		},
		Condition:            condition,
		PackageWeightAndSize: weight,
		Availability: ebay.Availability{
			ShipToLocationAvailability: ebay.ShipToLocationAvailability{
				Quantity: quantity,
				AvailabilityDistributions: []ebay.AvailabilityDistribution{
					{MerchantLocationKey: locationKey, Quantity: quantity},
				},
			},
		},
	}
}

// BuildOffer maps a draft onto the offer payload for one account.
func BuildOffer(draft domain.ListingDraft, acct domain.Account, quantity int, locationKey string) ebay.Offer {
	return ebay.Offer{
		SKU:                SKU(draft.Product),
		MarketplaceID:      marketplaceID,
		Format:             "FIXED_PRICE",
		AvailableQuantity:  quantity,
		CategoryID:         draft.CategoryID,
		ListingDescription: BuildDescription(draft.Product),
		ListingPolicies: ebay.ListingPolicies{
			PaymentPolicyID:     acct.PaymentPolicyID,
			ReturnPolicyID:      acct.ReturnPolicyID,
			FulfillmentPolicyID: acct.FulfillmentPolicyID,
		},
		PricingSummary: ebay.PricingSummary{
			Price: ebay.Amount{Value: strconv.FormatFloat(draft.Price, 'f', 2, 64), Currency: "USD"},
		},
		MerchantLocationKey: locationKey,
	}
}
