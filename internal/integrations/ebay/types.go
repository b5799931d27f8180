package ebay

// Request/response shapes for the Sell Inventory, Taxonomy and
// Fulfillment APIs. Only the fields this tool touches are modelled.

type ProductDetails struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	ImageURLs   []string            `json:"imageUrls,omitempty"`
	Aspects     map[string][]string `json:"aspects,omitempty"`
}

type Weight struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

type PackageWeightAndSize struct {
	Weight Weight `json:"weight"`
}

type AvailabilityDistribution struct {
	MerchantLocationKey string `json:"merchantLocationKey"`
	Quantity            int    `json:"quantity"`
}

type ShipToLocationAvailability struct {
	Quantity                  int                        `json:"quantity"`
	AvailabilityDistributions []AvailabilityDistribution `json:"availabilityDistributions,omitempty"`
}

type Availability struct {
	ShipToLocationAvailability ShipToLocationAvailability `json:"shipToLocationAvailability"`
}

type InventoryItem struct {
	SKU                  string                `json:"sku,omitempty"`
	Locale               string                `json:"locale,omitempty"`
	Product              ProductDetails        `json:"product"`
	Condition            string                `json:"condition"`
	ConditionDescription string                `json:"conditionDescription,omitempty"`
	PackageWeightAndSize *PackageWeightAndSize `json:"packageWeightAndSize,omitempty"`
	Availability         Availability          `json:"availability"`
}

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type PricingSummary struct {
	Price Amount `json:"price"`
}

type ListingPolicies struct {
	PaymentPolicyID     string `json:"paymentPolicyId"`
	ReturnPolicyID      string `json:"returnPolicyId"`
	FulfillmentPolicyID string `json:"fulfillmentPolicyId"`
}

type Offer struct {
	OfferID             string          `json:"offerId,omitempty"`
	SKU                 string          `json:"sku"`
	MarketplaceID       string          `json:"marketplaceId"`
	Format              string          `json:"format"`
	AvailableQuantity   int             `json:"availableQuantity,omitempty"`
	CategoryID          string          `json:"categoryId"`
	ListingDescription  string          `json:"listingDescription,omitempty"`
	ListingPolicies     ListingPolicies `json:"listingPolicies"`
	PricingSummary      PricingSummary  `json:"pricingSummary"`
	MerchantLocationKey string          `json:"merchantLocationKey,omitempty"`
}

type offersResponse struct {
	Offers []Offer `json:"offers"`
}

type createOfferResponse struct {
	OfferID string `json:"offerId"`
}

type publishResponse struct {
	ListingID string `json:"listingId"`
}

// Taxonomy API.

type CategoryRef struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

type CategoryTreeNode struct {
	Category               CategoryRef        `json:"category"`
	CategoryTreeNodeLevel  int                `json:"categoryTreeNodeLevel"`
	ChildCategoryTreeNodes []CategoryTreeNode `json:"childCategoryTreeNodes,omitempty"`
}

type CategoryTree struct {
	CategoryTreeID      string           `json:"categoryTreeId"`
	CategoryTreeVersion string           `json:"categoryTreeVersion"`
	RootCategoryNode    CategoryTreeNode `json:"rootCategoryNode"`
}

type aspectValue struct {
	LocalizedValue string `json:"localizedValue"`
}

type aspectConstraint struct {
	AspectRequired          bool   `json:"aspectRequired"`
	AspectUsage             string `json:"aspectUsage"`
	AspectMode              string `json:"aspectMode"`
	ItemToAspectCardinality string `json:"itemToAspectCardinality"`
}

type aspect struct {
	LocalizedAspectName string           `json:"localizedAspectName"`
	AspectConstraint    aspectConstraint `json:"aspectConstraint"`
	AspectValues        []aspectValue    `json:"aspectValues,omitempty"`
}

type aspectsResponse struct {
	Aspects []aspect `json:"aspects"`
}

// Fulfillment API.

type phone struct {
	PhoneNumber string `json:"phoneNumber"`
}

type contactAddress struct {
	AddressLine1    string `json:"addressLine1"`
	AddressLine2    string `json:"addressLine2"`
	City            string `json:"city"`
	StateOrProvince string `json:"stateOrProvince"`
	PostalCode      string `json:"postalCode"`
	CountryCode     string `json:"countryCode"`
}

type shipTo struct {
	FullName       string         `json:"fullName"`
	ContactAddress contactAddress `json:"contactAddress"`
	PrimaryPhone   phone          `json:"primaryPhone"`
	Email          string         `json:"email"`
}

type shippingStep struct {
	ShipTo shipTo `json:"shipTo"`
}

type fulfillmentStartInstruction struct {
	ShippingStep shippingStep `json:"shippingStep"`
}

type buyer struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type lineItem struct {
	LineItemID   string `json:"lineItemId"`
	SKU          string `json:"sku"`
	Title        string `json:"title"`
	Quantity     int    `json:"quantity"`
	LineItemCost Amount `json:"lineItemCost"`
}

type paymentSummary struct {
	TotalDueSeller Amount `json:"totalDueSeller"`
}

// FulfillmentOrder is one order as returned by getOrders.
type FulfillmentOrder struct {
	OrderID                      string                        `json:"orderId"`
	CreationDate                 string                        `json:"creationDate"`
	OrderFulfillmentStatus       string                        `json:"orderFulfillmentStatus"`
	Buyer                        buyer                         `json:"buyer"`
	FulfillmentStartInstructions []fulfillmentStartInstruction `json:"fulfillmentStartInstructions"`
	LineItems                    []lineItem                    `json:"lineItems"`
	PaymentSummary               paymentSummary                `json:"paymentSummary"`
}

// OrdersPage is one page of getOrders results.
type OrdersPage struct {
	Orders []FulfillmentOrder `json:"orders"`
	Total  int                `json:"total"`
}

type merchantLocation struct {
	Location struct {
		Address struct {
			PostalCode string `json:"postalCode"`
			Country    string `json:"country"`
		} `json:"address"`
	} `json:"location"`
	LocationTypes          []string `json:"locationTypes"`
	Name                   string   `json:"name"`
	MerchantLocationStatus string   `json:"merchantLocationStatus"`
}
