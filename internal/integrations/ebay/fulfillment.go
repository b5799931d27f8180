package ebay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GetOrders fetches one page of orders in the given fulfillment
// statuses. limit is clamped to the API maximum of 200.
func (c *Client) GetOrders(ctx context.Context, statuses []string, limit, offset int) (OrdersPage, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	q := url.Values{}
	q.Set("filter", fmt.Sprintf("orderfulfillmentstatus:{%s}", strings.Join(statuses, "|")))
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))

	var page OrdersPage
	_, err := c.do(ctx, http.MethodGet, "/sell/fulfillment/v1/order?"+q.Encode(), nil, authUser, &page)
	if err != nil {
		return OrdersPage{}, fmt.Errorf("get orders: %w", err)
	}
	return page, nil
}
