package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pal-lokesh/festiva-commerce/pkg/enums"
	pkgerrors "github.com/pal-lokesh/festiva-commerce/pkg/errors"
	"github.com/shopspring/decimal"
)

const bookingDateLayout = "2006-01-02"

// Store holds the in-memory cart for one session. All operations are
// synchronous and atomic; derived reads recompute from the line items on
// every call. One store exists per authenticated session, never shared.
type Store struct {
	mu    sync.Mutex
	items []LineItem
}

// NewStore builds an empty cart store.
func NewStore() *Store {
	return &Store{}
}

// AddOptions carries the optional parts of an add-to-cart call.
type AddOptions struct {
	Quantity       int
	BookingDate    string
	SelectedDishes []DishSelection
}

// Add classifies the item, computes its unit price, and either merges into
// the line item with the same (id, kind) identity or appends a new one.
// No mutation happens when validation fails.
func (s *Store) Add(item Catalogable, vendor Vendor, opts AddOptions) error {
	if err := validateCatalogable(item); err != nil {
		return err
	}
	if vendor.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	quantity := opts.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if len(opts.SelectedDishes) > 0 && item.Kind() != enums.ItemTypePlate {
		return pkgerrors.New(pkgerrors.CodeValidation, "dish selections apply to plates only")
	}
	for _, selection := range opts.SelectedDishes {
		if selection.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "dish selection quantity must be positive")
		}
		if selection.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "dish selection price cannot be negative")
		}
	}
	if opts.BookingDate != "" {
		if _, err := time.Parse(bookingDateLayout, opts.BookingDate); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking date")
		}
	}

	unitPrice := item.unitPrice(opts.SelectedDishes)
	if unitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].matches(item.CatalogID(), item.Kind()) {
			s.items[i].Quantity += quantity
			return nil
		}
	}

	desc := item.describe()
	s.items = append(s.items, LineItem{
		ItemID:         item.CatalogID(),
		Kind:           item.Kind(),
		Name:           desc.Name,
		Description:    desc.Description,
		UnitPrice:      unitPrice,
		ImageURL:       desc.ImageURL,
		VendorID:       vendor.ID,
		VendorName:     vendor.Name,
		Quantity:       quantity,
		Category:       desc.Category,
		BookingDate:    opts.BookingDate,
		SelectedDishes: copyDishes(opts.SelectedDishes),
	})
	return nil
}

// Remove deletes the matching line item; removing an absent item is a no-op.
func (s *Store) Remove(itemID string, kind enums.ItemType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(itemID, kind)
}

// UpdateQuantity sets the quantity; a result of zero or less removes the
// item, mirroring Remove.
func (s *Store) UpdateQuantity(itemID string, kind enums.ItemType, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(itemID, kind)
		return
	}
	for i := range s.items {
		if s.items[i].matches(itemID, kind) {
			s.items[i].Quantity = quantity
			return
		}
	}
}

// UpdateBookingDate sets or clears the booking date on the matching item
// without touching quantity or price.
func (s *Store) UpdateBookingDate(itemID string, kind enums.ItemType, date string) error {
	if date != "" {
		if _, err := time.Parse(bookingDateLayout, date); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking date")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].matches(itemID, kind) {
			s.items[i].BookingDate = date
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "line item not in cart")
}

// Clear empties the cart unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// RemoveVendorItems drops every line item belonging to one vendor. The
// checkout flow uses it to remove only the partitions whose orders were
// actually created.
func (s *Store) RemoveVendorItems(vendorID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	for _, item := range s.items {
		if item.VendorID != vendorID {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

// ItemCount is the sum of per-item quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// TotalPrice is the sum of price times quantity across the cart.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.items)
}

// Snapshot is a read-only projection of the cart, recomputed per call.
type Snapshot struct {
	Items          []LineItem
	ItemCount      int
	TotalPrice     decimal.Decimal
	SingleVendorID *uuid.UUID
}

// Snapshot copies the current cart state. The returned items are detached
// from the store; mutating them does not affect the cart.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]LineItem, len(s.items))
	count := 0
	for i, item := range s.items {
		items[i] = item
		items[i].SelectedDishes = copyDishes(item.SelectedDishes)
		count += item.Quantity
	}

	snapshot := Snapshot{
		Items:      items,
		ItemCount:  count,
		TotalPrice: totalOf(s.items),
	}

	if len(items) > 0 {
		vendorID := items[0].VendorID
		single := true
		for _, item := range items[1:] {
			if item.VendorID != vendorID {
				single = false
				break
			}
		}
		if single {
			snapshot.SingleVendorID = &vendorID
		}
	}

	return snapshot
}

func (s *Store) removeLocked(itemID string, kind enums.ItemType) {
	for i := range s.items {
		if s.items[i].matches(itemID, kind) {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func totalOf(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func copyDishes(selections []DishSelection) []DishSelection {
	if len(selections) == 0 {
		return nil
	}
	copied := make([]DishSelection, len(selections))
	copy(copied, selections)
	return copied
}
