package domain

import "time"

// Product is a validated Amazon export record. Fields beyond ASIN and
// Title are optional; validation happens at the ingest boundary.
type Product struct {
	ASIN            string            `json:"asin"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	BulletPoints    []string          `json:"bulletPoints,omitempty"`
	Images          []string          `json:"images,omitempty"`
	Price           string            `json:"price,omitempty"`
	DeliveryFee     string            `json:"deliveryFee,omitempty"`
	PriceMultiplier *float64          `json:"price_multiplier,omitempty"`
	Specifications  map[string]string `json:"specifications,omitempty"`
	URL             string            `json:"url,omitempty"`
}

// TokenRecord is one account's OAuth credential pair. Access tokens live
// about 2 hours, refresh tokens about 18 months.
type TokenRecord struct {
	AccountID    int       `json:"account_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExpiry time.Time `json:"access_expiry"`
	SavedAt      time.Time `json:"saved_at"`
}

// Account bundles the identifiers that differ between seller accounts.
type Account struct {
	ID                  int
	Name                string
	PaymentPolicyID     string
	ReturnPolicyID      string
	FulfillmentPolicyID string
}

// CategoryNode is one immutable member of a CategorySnapshot.
type CategoryNode struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	Level    int    `json:"level"`
	Leaf     bool   `json:"leaf"`
}

// CategorySnapshot is the marketplace category tree at a point in time.
// The whole snapshot is replaced atomically on refresh, never mutated.
type CategorySnapshot struct {
	FetchedAt time.Time               `json:"fetched_at"`
	Version   string                  `json:"version,omitempty"`
	Nodes     map[string]CategoryNode `json:"nodes"`
}

// Node returns the node for id, if present.
func (s *CategorySnapshot) Node(id string) (CategoryNode, bool) {
	n, ok := s.Nodes[id]
	return n, ok
}

// IsLeaf reports whether id resolves to a listing-eligible leaf node.
func (s *CategorySnapshot) IsLeaf(id string) bool {
	n, ok := s.Nodes[id]
	return ok && n.Leaf
}

// Path walks parent links up to the root, e.g.
// "eBay Motors > Parts & Accessories > Wiper Blades".
func (s *CategorySnapshot) Path(id string) string {
	var parts []string
	for cur := id; cur != ""; {
		n, ok := s.Nodes[cur]
		if !ok {
			break
		}
		parts = append([]string{n.Name}, parts...)
		cur = n.ParentID
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " > "
		}
		out += p
	}
	return out
}

type AspectMode string

const (
	AspectFreeText      AspectMode = "FREE_TEXT"
	AspectSelectionOnly AspectMode = "SELECTION_ONLY"
)

type AspectCardinality string

const (
	CardinalitySingle AspectCardinality = "SINGLE"
	CardinalityMulti  AspectCardinality = "MULTI"
)

// AspectRequirement is one category-specific item attribute definition.
// AllowedValues is populated only for SELECTION_ONLY aspects.
type AspectRequirement struct {
	CategoryID    string            `json:"category_id"`
	Name          string            `json:"name"`
	Mode          AspectMode        `json:"mode"`
	Cardinality   AspectCardinality `json:"cardinality"`
	AllowedValues []string          `json:"allowed_values,omitempty"`
	Required      bool              `json:"required"`
	Recommended   bool              `json:"recommended"`
}

// Selection is a category choice for one product, optionally enriched
// with an optimized title and extracted brand.
type Selection struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Confidence   float64 `json:"confidence"`
	Title        string  `json:"title,omitempty"`
	Brand        string  `json:"brand,omitempty"`
}

// ListingDraft is everything needed to create one listing. Built once per
// product per run and not persisted beyond the run's result log.
type ListingDraft struct {
	Product    Product
	CategoryID string
	Title      string
	Brand      string
	Aspects    map[string][]string
	Price      float64
	AccountID  int
}

type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
)

// Pipeline stages recorded on failure.
const (
	StageSelection    = "selection"
	StageRequirements = "requirements"
	StageInventory    = "inventory"
	StageOffer        = "offer"
	StagePublish      = "publish"
)

// ListingResult is the per-product outcome of one run.
type ListingResult struct {
	ID           string       `json:"id"`
	RunID        string       `json:"run_id"`
	SKU          string       `json:"sku"`
	Status       ResultStatus `json:"status"`
	Stage        string       `json:"stage,omitempty"`
	Error        string       `json:"error,omitempty"`
	CategoryID   string       `json:"category_id,omitempty"`
	CategoryName string       `json:"category_name,omitempty"`
	OfferID      string       `json:"offer_id,omitempty"`
	ListingID    string       `json:"listing_id,omitempty"`
	Elapsed      float64      `json:"processing_time,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// OrderItem is one line of an exported order; SKU carries the ASIN.
type OrderItem struct {
	LineItemID string  `json:"lineItemId"`
	SKU        string  `json:"sku"`
	ASIN       string  `json:"asin"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
}

// ShippingAddress is the buyer ship-to address mapped for reordering.
type ShippingAddress struct {
	Name            string `json:"name"`
	AddressLine1    string `json:"addressLine1"`
	AddressLine2    string `json:"addressLine2,omitempty"`
	City            string `json:"city"`
	StateOrProvince string `json:"stateOrProvince"`
	PostalCode      string `json:"postalCode"`
	CountryCode     string `json:"countryCode"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	Email           string `json:"email,omitempty"`
}

// Order is one unshipped marketplace order mapped for manual reordering.
type Order struct {
	EbayOrderID     string          `json:"ebayOrderId"`
	EbayOrderDate   string          `json:"ebayOrderDate"`
	EbayOrderStatus string          `json:"ebayOrderStatus"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Items           []OrderItem     `json:"items"`
}
