package checkout

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pal-lokesh/festiva-commerce/internal/cart"
	"github.com/pal-lokesh/festiva-commerce/pkg/api"
	"github.com/pal-lokesh/festiva-commerce/pkg/enums"
)

// VendorPartition is the subset of cart line items owned by one vendor,
// in cart order.
type VendorPartition struct {
	VendorID   uuid.UUID
	VendorName string
	Items      []cart.LineItem
}

// SplitByVendor partitions cart line items by vendor identity. Partition
// order follows the first appearance of each vendor in the cart, and item
// order within a partition is preserved.
func SplitByVendor(items []cart.LineItem) []VendorPartition {
	index := make(map[uuid.UUID]int, len(items))
	partitions := make([]VendorPartition, 0, len(items))
	for _, item := range items {
		at, seen := index[item.VendorID]
		if !seen {
			at = len(partitions)
			index[item.VendorID] = at
			partitions = append(partitions, VendorPartition{
				VendorID:   item.VendorID,
				VendorName: item.VendorName,
			})
		}
		partitions[at].Items = append(partitions[at].Items, item)
	}
	return partitions
}

// buildRequest translates one partition into the wire order request,
// attaching the shared customer/delivery fields.
func buildRequest(userID uuid.UUID, form OrderForm, partition VendorPartition) api.CreateOrderRequest {
	items := make([]api.OrderItem, 0, len(partition.Items))
	for _, item := range partition.Items {
		items = append(items, toOrderItem(item))
	}
	return api.CreateOrderRequest{
		UserID:        userID,
		CustomerName:  form.CustomerName,
		CustomerEmail: form.CustomerEmail,
		CustomerPhone: form.CustomerPhone,
		DeliveryAddr:  form.DeliveryAddress,
		DeliveryDate:  form.DeliveryDate,
		SpecialNotes:  form.SpecialNotes,
		Items:         items,
	}
}

func toOrderItem(item cart.LineItem) api.OrderItem {
	record := api.OrderItem{
		ItemID:       item.ItemID,
		ItemName:     item.Name,
		ItemPrice:    item.UnitPrice.InexactFloat64(),
		Quantity:     item.Quantity,
		ItemType:     item.Kind,
		BusinessID:   item.VendorID,
		BusinessName: item.VendorName,
		ImageURL:     item.ImageURL,
		BookingDate:  item.BookingDate,
	}
	if item.Kind == enums.ItemTypePlate && len(item.SelectedDishes) > 0 {
		if encoded, err := json.Marshal(item.SelectedDishes); err == nil {
			record.SelectedDishes = string(encoded)
		}
	}
	return record
}
