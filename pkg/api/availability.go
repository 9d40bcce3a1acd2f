package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/pal-lokesh/festiva-commerce/pkg/enums"
	pkgerrors "github.com/pal-lokesh/festiva-commerce/pkg/errors"
)

// AvailabilityQuery identifies one item+type+date availability lookup.
type AvailabilityQuery struct {
	ItemID   string
	ItemType enums.ItemType
	Date     string
}

func (q AvailabilityQuery) validate() error {
	if q.ItemID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if !q.ItemType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid item type")
	}
	if q.Date == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking date is required")
	}
	return nil
}

func (q AvailabilityQuery) values() url.Values {
	return url.Values{
		"itemId":   []string{q.ItemID},
		"itemType": []string{q.ItemType.String()},
		"date":     []string{q.Date},
	}
}

// CheckAvailability returns the remaining stock for an item on a date.
func (c *Client) CheckAvailability(ctx context.Context, query AvailabilityQuery) (int, error) {
	if err := query.validate(); err != nil {
		return 0, err
	}

	var resp struct {
		AvailableQuantity int `json:"availableQuantity"`
	}
	path := queryPath("availability", query.values())
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	if resp.AvailableQuantity < 0 {
		return 0, nil
	}
	return resp.AvailableQuantity, nil
}

// RestockSubscription keys a user's interest in an item+type+date restock.
type RestockSubscription struct {
	UserID   uuid.UUID      `json:"userId"`
	ItemID   string         `json:"itemId"`
	ItemType enums.ItemType `json:"itemType"`
	Date     string         `json:"date,omitempty"`
}

func (r RestockSubscription) validate() error {
	if r.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if r.ItemID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if !r.ItemType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid item type")
	}
	return nil
}

func (r RestockSubscription) values() url.Values {
	values := url.Values{
		"userId":   []string{r.UserID.String()},
		"itemId":   []string{r.ItemID},
		"itemType": []string{r.ItemType.String()},
	}
	if r.Date != "" {
		values.Set("date", r.Date)
	}
	return values
}

// SubscribeRestock registers a restock notification subscription.
func (c *Client) SubscribeRestock(ctx context.Context, sub RestockSubscription) error {
	if err := sub.validate(); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, "stock-notifications/subscribe", sub, nil)
}

// UnsubscribeRestock removes a restock notification subscription.
func (c *Client) UnsubscribeRestock(ctx context.Context, sub RestockSubscription) error {
	if err := sub.validate(); err != nil {
		return err
	}
	path := queryPath("stock-notifications/subscribe", sub.values())
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// IsSubscribed reports whether the user already has a restock subscription
// for the exact item+type+date.
func (c *Client) IsSubscribed(ctx context.Context, sub RestockSubscription) (bool, error) {
	if err := sub.validate(); err != nil {
		return false, err
	}

	var resp struct {
		Subscribed bool `json:"subscribed"`
	}
	path := queryPath("stock-notifications/check", sub.values())
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Subscribed, nil
}
