package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"crosslister/internal/domain"
	"crosslister/internal/integrations/ebay"
	"crosslister/internal/service/mapper"
)

// Unshipped orders are the ones that still need a source purchase.
var unshippedStatuses = []string{"NOT_STARTED", "IN_PROGRESS"}

const pageSize = 200

// Fetcher is the fulfillment API dependency.
type Fetcher interface {
	GetOrders(ctx context.Context, statuses []string, limit, offset int) (ebay.OrdersPage, error)
}

// Exporter pulls unshipped marketplace orders and writes them as a
// purchase worklist: ship-to address plus the source ASIN per line.
type Exporter struct {
	fetcher Fetcher
	dir     string
	account int
}

func NewExporter(fetcher Fetcher, dir string, account int) *Exporter {
	return &Exporter{fetcher: fetcher, dir: dir, account: account}
}

// exportFile is the on-disk layout of one export.
type exportFile struct {
	ExportedAt  string         `json:"exportedAt"`
	Account     int            `json:"account"`
	TotalOrders int            `json:"totalOrders"`
	Orders      []domain.Order `json:"orders"`
}

// FetchUnshipped pages through every order awaiting fulfillment.
func (e *Exporter) FetchUnshipped(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	for offset := 0; ; offset += pageSize {
		page, err := e.fetcher.GetOrders(ctx, unshippedStatuses, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Orders {
			out = append(out, mapOrder(raw))
		}
		if len(page.Orders) < pageSize || offset+pageSize >= page.Total {
			break
		}
	}
	log.Printf("orders: %d unshipped", len(out))
	return out, nil
}

// Export writes the orders to a timestamped JSON file and returns its
// path.
func (e *Exporter) Export(orders []domain.Order) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create orders dir: %w", err)
	}
	now := time.Now()
	name := fmt.Sprintf("ebay_orders_%s.json", now.Format("20060102_150405"))
	path := filepath.Join(e.dir, name)

	raw, err := json.MarshalIndent(exportFile{
		ExportedAt:  now.Format(time.RFC3339),
		Account:     e.account,
		TotalOrders: len(orders),
		Orders:      orders,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	log.Printf("orders: exported %d orders to %s", len(orders), path)
	return path, nil
}

func mapOrder(raw ebay.FulfillmentOrder) domain.Order {
	order := domain.Order{
		EbayOrderID:     raw.OrderID,
		EbayOrderDate:   raw.CreationDate,
		EbayOrderStatus: raw.OrderFulfillmentStatus,
	}
	if len(raw.FulfillmentStartInstructions) > 0 {
		ship := raw.FulfillmentStartInstructions[0].ShippingStep.ShipTo
		order.ShippingAddress = domain.ShippingAddress{
			Name:            ship.FullName,
			AddressLine1:    ship.ContactAddress.AddressLine1,
			AddressLine2:    ship.ContactAddress.AddressLine2,
			City:            ship.ContactAddress.City,
			StateOrProvince: ship.ContactAddress.StateOrProvince,
			PostalCode:      ship.ContactAddress.PostalCode,
			CountryCode:     ship.ContactAddress.CountryCode,
			PhoneNumber:     ship.PrimaryPhone.PhoneNumber,
			Email:           ship.Email,
		}
	}
	for _, li := range raw.LineItems {
		price := 0.0
		if li.LineItemCost.Value != "" {
			if v, err := strconv.ParseFloat(li.LineItemCost.Value, 64); err == nil {
				price = v
			}
		}
		order.Items = append(order.Items, domain.OrderItem{
			LineItemID: li.LineItemID,
			SKU:        li.SKU,
			ASIN:       mapper.ASINFromSKU(li.SKU),
			Title:      li.Title,
			Quantity:   li.Quantity,
			Price:      price,
			Currency:   li.LineItemCost.Currency,
		})
	}
	return order
}
