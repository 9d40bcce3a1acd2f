package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pal-lokesh/festiva-commerce/pkg/enums"
	pkgerrors "github.com/pal-lokesh/festiva-commerce/pkg/errors"
)

// OrderItem is the wire form of one cart line item inside an order request.
type OrderItem struct {
	ItemID         string         `json:"itemId"`
	ItemName       string         `json:"itemName"`
	ItemPrice      float64        `json:"itemPrice"`
	Quantity       int            `json:"quantity"`
	ItemType       enums.ItemType `json:"itemType"`
	BusinessID     uuid.UUID      `json:"businessId"`
	BusinessName   string         `json:"businessName"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	BookingDate    string         `json:"bookingDate,omitempty"`
	SelectedDishes string         `json:"selectedDishes,omitempty"`
}

// CreateOrderRequest carries one vendor partition plus the shared
// customer/delivery fields.
type CreateOrderRequest struct {
	UserID        uuid.UUID   `json:"userId"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	CustomerPhone string      `json:"customerPhone"`
	DeliveryAddr  string      `json:"deliveryAddress"`
	DeliveryDate  string      `json:"deliveryDate"`
	SpecialNotes  string      `json:"specialNotes,omitempty"`
	Items         []OrderItem `json:"items"`
}

// Order is the record echoed back by the order API.
type Order struct {
	ID            uuid.UUID         `json:"id"`
	UserID        uuid.UUID         `json:"userId"`
	BusinessID    uuid.UUID         `json:"businessId"`
	BusinessName  string            `json:"businessName"`
	Status        enums.OrderStatus `json:"status"`
	CustomerName  string            `json:"customerName"`
	CustomerEmail string            `json:"customerEmail"`
	CustomerPhone string            `json:"customerPhone"`
	DeliveryAddr  string            `json:"deliveryAddress"`
	DeliveryDate  string            `json:"deliveryDate"`
	SpecialNotes  string            `json:"specialNotes,omitempty"`
	TotalAmount   float64           `json:"totalAmount"`
	Items         []OrderItem       `json:"items"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// CreateOrder submits one vendor's order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	var order Order
	if err := c.doJSON(ctx, http.MethodPost, "orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus moves an order to the given status.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	path := fmt.Sprintf("orders/%s/status?%s", url.PathEscape(orderID.String()),
		url.Values{"status": []string{status.String()}}.Encode())

	var order Order
	if err := c.doJSON(ctx, http.MethodPut, path, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUser fetches the caller's order history.
func (c *Client) GetOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}

	path := "orders?" + url.Values{"userId": []string{userID.String()}}.Encode()
	var orders []Order
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// queryPath joins a path with encoded query values.
func queryPath(path string, values url.Values) string {
	encoded := values.Encode()
	if encoded == "" {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + encoded
	}
	return path + "?" + encoded
}
