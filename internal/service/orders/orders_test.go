package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crosslister/internal/integrations/ebay"
)

func orderJSON(id, sku string) string {
	return fmt.Sprintf(`{
		"orderId": %q,
		"creationDate": "2026-08-20T14:02:00.000Z",
		"orderFulfillmentStatus": "NOT_STARTED",
		"fulfillmentStartInstructions": [{
			"shippingStep": {"shipTo": {
				"fullName": "Jordan Smith",
				"contactAddress": {
					"addressLine1": "1 Main St",
					"city": "Springfield",
					"stateOrProvince": "IL",
					"postalCode": "62704",
					"countryCode": "US"
				},
				"primaryPhone": {"phoneNumber": "555-0100"},
				"email": "buyer@example.com"
			}}
		}],
		"lineItems": [{
			"lineItemId": "li-1",
			"sku": %q,
			"title": "Widget",
			"quantity": 2,
			"lineItemCost": {"value": "19.99", "currency": "USD"}
		}]
	}`, id, sku)
}

func decodeOrder(t *testing.T, raw string) ebay.FulfillmentOrder {
	t.Helper()
	var o ebay.FulfillmentOrder
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	return o
}

type fakeFetcher struct {
	orders  []ebay.FulfillmentOrder
	offsets []int
	limits  []int
}

func (f *fakeFetcher) GetOrders(ctx context.Context, statuses []string, limit, offset int) (ebay.OrdersPage, error) {
	f.offsets = append(f.offsets, offset)
	f.limits = append(f.limits, limit)
	end := offset + limit
	if end > len(f.orders) {
		end = len(f.orders)
	}
	if offset > end {
		offset = end
	}
	return ebay.OrdersPage{Orders: f.orders[offset:end], Total: len(f.orders)}, nil
}

func TestFetchUnshipped_PagesThroughAll(t *testing.T) {
	fetcher := &fakeFetcher{}
	for i := 0; i < 250; i++ {
		fetcher.orders = append(fetcher.orders,
			decodeOrder(t, orderJSON(fmt.Sprintf("11-%05d", i), "B000TEST")))
	}

	got, err := NewExporter(fetcher, t.TempDir(), 1).FetchUnshipped(context.Background())
	if err != nil {
		t.Fatalf("FetchUnshipped error: %v", err)
	}
	if len(got) != 250 {
		t.Fatalf("got %d orders, want 250", len(got))
	}
	if len(fetcher.offsets) != 2 || fetcher.offsets[1] != 200 {
		t.Fatalf("offsets = %v, want two pages", fetcher.offsets)
	}
	for _, l := range fetcher.limits {
		if l != 200 {
			t.Fatalf("limits = %v", fetcher.limits)
		}
	}
}

func TestMapOrder(t *testing.T) {
	raw := decodeOrder(t, orderJSON("11-22-33", "AMZN-B08N5WRWNW"))
	got := mapOrder(raw)

	if got.EbayOrderID != "11-22-33" || got.EbayOrderStatus != "NOT_STARTED" {
		t.Fatalf("order = %+v", got)
	}
	addr := got.ShippingAddress
	if addr.Name != "Jordan Smith" || addr.City != "Springfield" || addr.PostalCode != "62704" {
		t.Fatalf("address = %+v", addr)
	}
	if addr.PhoneNumber != "555-0100" || addr.Email != "buyer@example.com" {
		t.Fatalf("contact = %+v", addr)
	}
	if len(got.Items) != 1 {
		t.Fatalf("items = %+v", got.Items)
	}
	item := got.Items[0]
	if item.ASIN != "B08N5WRWNW" {
		t.Fatalf("ASIN = %q, legacy prefix must be stripped", item.ASIN)
	}
	if item.SKU != "AMZN-B08N5WRWNW" || item.Quantity != 2 || item.Price != 19.99 || item.Currency != "USD" {
		t.Fatalf("item = %+v", item)
	}
}

func TestExport_WritesTimestampedFile(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{orders: []ebay.FulfillmentOrder{
		decodeOrder(t, orderJSON("11-22-33", "B000TEST")),
	}}
	exp := NewExporter(fetcher, filepath.Join(dir, "orders"), 2)

	orders, err := exp.FetchUnshipped(context.Background())
	if err != nil {
		t.Fatalf("FetchUnshipped error: %v", err)
	}
	path, err := exp.Export(orders)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "ebay_orders_") || !strings.HasSuffix(base, ".json") {
		t.Fatalf("file name = %q", base)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var decoded struct {
		ExportedAt  string                   `json:"exportedAt"`
		Account     int                      `json:"account"`
		TotalOrders int                      `json:"totalOrders"`
		Orders      []map[string]interface{} `json:"orders"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.Account != 2 || decoded.TotalOrders != 1 || decoded.ExportedAt == "" {
		t.Fatalf("envelope = %+v", decoded)
	}
	if len(decoded.Orders) != 1 || decoded.Orders[0]["ebayOrderId"] != "11-22-33" {
		t.Fatalf("orders = %+v", decoded.Orders)
	}
}
