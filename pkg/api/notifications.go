package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pal-lokesh/festiva-commerce/pkg/enums"
	pkgerrors "github.com/pal-lokesh/festiva-commerce/pkg/errors"
)

// Notification is one record from the remote notification feed.
type Notification struct {
	ID            uuid.UUID              `json:"id"`
	Kind          enums.NotificationKind `json:"kind"`
	IsRead        bool                   `json:"isRead"`
	Message       string                 `json:"message"`
	CreatedAt     time.Time              `json:"createdAt"`
	OrderID       *uuid.UUID             `json:"orderId,omitempty"`
	VendorName    string                 `json:"vendorName,omitempty"`
	AvailableDate string                 `json:"availableDate,omitempty"`
}

// NotificationFeed wraps a full feed fetch plus the server's unread count.
type NotificationFeed struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}

// FetchNotifications loads the user's current notification feed for a kind.
func (c *Client) FetchNotifications(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind) (*NotificationFeed, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification kind")
	}

	path := queryPath("notifications", url.Values{
		"userId": []string{userID.String()},
		"kind":   []string{string(kind)},
	})

	var feed NotificationFeed
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// MarkNotificationRead flags a single notification read on the server.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id is required")
	}
	path := "notifications/" + url.PathEscape(notificationID.String()) + "/read"
	return c.doJSON(ctx, http.MethodPut, path, nil, nil)
}

// MarkAllNotificationsRead flags every notification of a kind read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification kind")
	}
	path := queryPath("notifications/read-all", url.Values{
		"userId": []string{userID.String()},
		"kind":   []string{string(kind)},
	})
	return c.doJSON(ctx, http.MethodPut, path, nil, nil)
}
