package ebay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// PutInventoryItem creates or replaces the inventory record for a SKU.
// The API answers 204 on both create and update.
func (c *Client) PutInventoryItem(ctx context.Context, sku string, item InventoryItem) error {
	path := "/sell/inventory/v1/inventory_item/" + url.PathEscape(sku)
	_, err := c.do(ctx, http.MethodPut, path, item, authUser, nil,
		http.StatusOK, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return fmt.Errorf("put inventory item %s: %w", sku, err)
	}
	return nil
}

// GetOfferBySKU returns the existing marketplace offer for a SKU, or
// ErrNoOffer when none exists yet.
var ErrNoOffer = errors.New("no offer for sku")

func (c *Client) GetOfferBySKU(ctx context.Context, sku string) (Offer, error) {
	path := "/sell/inventory/v1/offer?sku=" + url.QueryEscape(sku)
	var resp offersResponse
	status, err := c.do(ctx, http.MethodGet, path, nil, authUser, &resp,
		http.StatusOK, http.StatusNotFound)
	if err != nil {
		return Offer{}, fmt.Errorf("get offer for %s: %w", sku, err)
	}
	if status == http.StatusNotFound || len(resp.Offers) == 0 {
		return Offer{}, ErrNoOffer
	}
	return resp.Offers[0], nil
}

// CreateOffer creates a new offer and returns its id.
func (c *Client) CreateOffer(ctx context.Context, offer Offer) (string, error) {
	var resp createOfferResponse
	_, err := c.do(ctx, http.MethodPost, "/sell/inventory/v1/offer", offer, authUser, &resp,
		http.StatusOK, http.StatusCreated)
	if err != nil {
		return "", fmt.Errorf("create offer for %s: %w", offer.SKU, err)
	}
	return resp.OfferID, nil
}

// UpdateOffer replaces an existing offer in place.
func (c *Client) UpdateOffer(ctx context.Context, offerID string, offer Offer) error {
	path := "/sell/inventory/v1/offer/" + url.PathEscape(offerID)
	_, err := c.do(ctx, http.MethodPut, path, offer, authUser, nil,
		http.StatusOK, http.StatusNoContent)
	if err != nil {
		return fmt.Errorf("update offer %s: %w", offerID, err)
	}
	return nil
}

// PublishOffer makes the offer live and returns the listing id.
func (c *Client) PublishOffer(ctx context.Context, offerID string) (string, error) {
	path := "/sell/inventory/v1/offer/" + url.PathEscape(offerID) + "/publish"
	var resp publishResponse
	_, err := c.do(ctx, http.MethodPost, path, struct{}{}, authUser, &resp)
	if err != nil {
		return "", fmt.Errorf("publish offer %s: %w", offerID, err)
	}
	return resp.ListingID, nil
}

// EnsureLocation creates the merchant warehouse location if it does not
// exist. Offers cannot publish without one.
func (c *Client) EnsureLocation(ctx context.Context, key, postalCode, country string) error {
	path := "/sell/inventory/v1/location/" + url.PathEscape(key)
	status, err := c.do(ctx, http.MethodGet, path, nil, authUser, nil,
		http.StatusOK, http.StatusNotFound)
	if err != nil {
		return fmt.Errorf("get location %s: %w", key, err)
	}
	if status == http.StatusOK {
		return nil
	}

	loc := merchantLocation{
		LocationTypes:          []string{"WAREHOUSE"},
		Name:                   key,
		MerchantLocationStatus: "ENABLED",
	}
	loc.Location.Address.PostalCode = postalCode
	loc.Location.Address.Country = country

	_, err = c.do(ctx, http.MethodPost, path, loc, authUser, nil,
		http.StatusOK, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return fmt.Errorf("create location %s: %w", key, err)
	}
	return nil
}
