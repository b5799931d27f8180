package mapper

import (
	"strings"
	"testing"

	"crosslister/internal/domain"
)

func TestTruncateTitle(t *testing.T) {
	short := "Wireless Headphones"
	if got := TruncateTitle(short); got != short {
		t.Fatalf("short title changed: %q", got)
	}

	long := "Professional Wireless Bluetooth Over-Ear Headphones with Active Noise Cancelling Technology"
	got := TruncateTitle(long)
	if len(got) > 80 {
		t.Fatalf("title length = %d, want <= 80", len(got))
	}
	if strings.HasSuffix(got, " ") {
		t.Fatalf("trailing space after truncation: %q", got)
	}
	// Cut must land on a word boundary, not inside a word.
	if !strings.HasPrefix(long, got+" ") {
		t.Fatalf("mid-word truncation: %q", got)
	}
}

func TestNormalizeBrand(t *testing.T) {
	cases := map[string]string{
		"Sony":           "Sony",
		"  Sony  ":       "Sony",
		"":               "Generic",
		"Unknown":        "Generic",
		"N/A":            "Generic",
		"unbranded":      "Generic",
		"Does Not Apply": "Generic",
	}
	for in, want := range cases {
		if got := NormalizeBrand(in); got != want {
			t.Errorf("NormalizeBrand(%q) = %q, want %q", in, got, want)
		}
	}
	long := strings.Repeat("B", 80)
	if got := NormalizeBrand(long); len(got) != 65 {
		t.Errorf("long brand length = %d, want 65", len(got))
	}
}

func TestSanitizeText(t *testing.T) {
	in := "Hello\u200B \x07world\n\n  again"
	if got := SanitizeText(in); got != "Hello world again" {
		t.Fatalf("SanitizeText = %q", got)
	}
}

func TestFilterImages(t *testing.T) {
	urls := []string{
		"https://m.media-amazon.com/images/I/71abc.jpg",
		"https://m.media-amazon.com/images/I/71abc.jpg", // duplicate
		"https://m.media-amazon.com/images/I/41def._AC_SL1500_.jpg",
		"https://m.media-amazon.com/images/G/01/sprite.png",
		"https://m.media-amazon.com/images/I/play-button-overlay.png",
		"not-a-url",
		"",
		"https://m.media-amazon.com/images/I/81xyz.jpg",
	}
	got := FilterImages(urls)
	want := []string{
		"https://m.media-amazon.com/images/I/71abc.jpg",
		"https://m.media-amazon.com/images/I/81xyz.jpg",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d images: %v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("image[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFilterImages_CapsGallery(t *testing.T) {
	var urls []string
	for i := 0; i < 20; i++ {
		urls = append(urls, "https://example.com/img"+strings.Repeat("x", i)+".jpg")
	}
	if got := FilterImages(urls); len(got) != 12 {
		t.Fatalf("gallery size = %d, want 12", len(got))
	}
}

func TestSKUAndASINRoundTrip(t *testing.T) {
	p := domain.Product{ASIN: " b08n5wrwnw "}
	if got := SKU(p); got != "B08N5WRWNW" {
		t.Fatalf("SKU = %q", got)
	}
	if got := ASINFromSKU("B08N5WRWNW"); got != "B08N5WRWNW" {
		t.Fatalf("ASINFromSKU = %q", got)
	}
	if got := ASINFromSKU("AMZN-B08N5WRWNW"); got != "B08N5WRWNW" {
		t.Fatalf("legacy prefix not stripped: %q", got)
	}
}

func TestParseWeight(t *testing.T) {
	cases := []struct {
		specs     map[string]string
		wantValue string
		wantUnit  string
	}{
		{map[string]string{"Item Weight": "1.5 pounds"}, "1.5", "POUND"},
		{map[string]string{"Item Weight": "12 ounces"}, "12", "OUNCE"},
		{map[string]string{"Package Weight": "2 kg"}, "2", "KILOGRAM"},
		{map[string]string{"Item Weight": "500 g"}, "500", "GRAM"},
	}
	for _, tc := range cases {
		got := ParseWeight(tc.specs)
		if got == nil {
			t.Errorf("ParseWeight(%v) = nil", tc.specs)
			continue
		}
		if got.Weight.Value != tc.wantValue || got.Weight.Unit != tc.wantUnit {
			t.Errorf("ParseWeight(%v) = %+v", tc.specs, got.Weight)
		}
	}

	if got := ParseWeight(map[string]string{"Color": "Black"}); got != nil {
		t.Fatalf("expected nil without a weight spec, got %+v", got)
	}
	if got := ParseWeight(map[string]string{"Item Weight": "heavy"}); got != nil {
		t.Fatalf("expected nil for unparseable weight, got %+v", got)
	}
}

func TestBuildDescription_EscapesHTML(t *testing.T) {
	p := domain.Product{
		Title:        "Mug <special>",
		BulletPoints: []string{"Holds 12oz & more", ""},
		Description:  "A \"nice\" mug",
	}
	got := BuildDescription(p)
	if !strings.Contains(got, "Mug &lt;special&gt;") {
		t.Fatalf("title not escaped: %s", got)
	}
	if !strings.Contains(got, "<li>Holds 12oz &amp; more</li>") {
		t.Fatalf("bullet not escaped: %s", got)
	}
	if strings.Contains(got, "<li></li>") {
		t.Fatalf("empty bullet rendered: %s", got)
	}
}

func TestBuildDraft(t *testing.T) {
	p := domain.Product{ASIN: "B1", Title: "Raw Title"}
	sel := domain.Selection{CategoryID: "100", Title: "Optimized Title", Brand: "unknown"}

	draft := BuildDraft(p, sel, map[string][]string{"Color": {"Black"}}, 40.99, 2)
	if draft.Title != "Optimized Title" {
		t.Fatalf("title = %q, optimized title must win", draft.Title)
	}
	if draft.Brand != "Generic" {
		t.Fatalf("brand = %q", draft.Brand)
	}
	if draft.Aspects["Brand"][0] != "Generic" {
		t.Fatalf("aspects brand = %v", draft.Aspects["Brand"])
	}
	if draft.CategoryID != "100" || draft.Price != 40.99 || draft.AccountID != 2 {
		t.Fatalf("draft = %+v", draft)
	}

	// No optimized title: fall back to the product title.
	draft = BuildDraft(p, domain.Selection{CategoryID: "100"}, nil, 10, 1)
	if draft.Title != "Raw Title" {
		t.Fatalf("title = %q", draft.Title)
	}
}

func TestBuildInventoryItemAndOffer(t *testing.T) {
	draft := domain.ListingDraft{
		Product: domain.Product{
			ASIN:           "b1abcdefgh",
			Title:          "Widget",
			Images:         []string{"https://example.com/1.jpg"},
			Specifications: map[string]string{"Item Weight": "1.5 pounds"},
		},
		CategoryID: "100",
		Title:      "Widget Deluxe",
		Aspects:    map[string][]string{"Brand": {"Acme"}},
		Price:      40.9,
	}

	item := BuildInventoryItem(draft, 10, "us_warehouse")
	if item.Product.Title != "Widget Deluxe" || item.Condition != "NEW" || item.Locale != "en_US" {
		t.Fatalf("item = %+v", item)
	}
	if item.PackageWeightAndSize == nil || item.PackageWeightAndSize.Weight.Unit != "POUND" {
		t.Fatalf("weight = %+v", item.PackageWeightAndSize)
	}
	avail := item.Availability.ShipToLocationAvailability
	if avail.Quantity != 10 || avail.AvailabilityDistributions[0].MerchantLocationKey != "us_warehouse" {
		t.Fatalf("availability = %+v", avail)
	}

	// Without a weight spec the item defaults to one pound.
	noWeight := draft
	noWeight.Product.Specifications = nil
	item = BuildInventoryItem(noWeight, 10, "us_warehouse")
	if item.PackageWeightAndSize == nil || item.PackageWeightAndSize.Weight.Value != "1" ||
		item.PackageWeightAndSize.Weight.Unit != "POUND" {
		t.Fatalf("default weight = %+v", item.PackageWeightAndSize)
	}

	acct := domain.Account{
		ID:                  1,
		PaymentPolicyID:     "pay-1",
		ReturnPolicyID:      "ret-1",
		FulfillmentPolicyID: "ful-1",
	}
	offer := BuildOffer(draft, acct, 10, "us_warehouse")
	if offer.SKU != "B1ABCDEFGH" || offer.MarketplaceID != "EBAY_US" || offer.Format != "FIXED_PRICE" {
		t.Fatalf("offer = %+v", offer)
	}
	if offer.PricingSummary.Price.Value != "40.90" || offer.PricingSummary.Price.Currency != "USD" {
		t.Fatalf("price = %+v", offer.PricingSummary.Price)
	}
	if offer.ListingPolicies.PaymentPolicyID != "pay-1" || offer.ListingPolicies.FulfillmentPolicyID != "ful-1" {
		t.Fatalf("policies = %+v", offer.ListingPolicies)
	}
	if offer.MerchantLocationKey != "us_warehouse" || offer.CategoryID != "100" {
		t.Fatalf("offer = %+v", offer)
	}
}
