package cart

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pal-lokesh/festiva-commerce/pkg/enums"
	pkgerrors "github.com/pal-lokesh/festiva-commerce/pkg/errors"
	"github.com/shopspring/decimal"
)

// Vendor identifies the business that owns a catalog item.
type Vendor struct {
	ID   uuid.UUID
	Name string
}

// DishSelection is one dish chosen for a composed plate, priced per unit.
type DishSelection struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Catalogable is the tagged union of addable catalog items. The kind is set
// at the point the raw item is fetched from its source API, so the store
// never has to sniff fields to classify an item.
type Catalogable interface {
	Kind() enums.ItemType
	CatalogID() string
	unitPrice(selections []DishSelection) decimal.Decimal
	describe() itemDescription
}

type itemDescription struct {
	Name        string
	Description string
	ImageURL    string
	Category    string
}

// Theme is a decorated-event package whose price arrives as a free-text
// price-range string.
type Theme struct {
	ID          string
	Name        string
	Description string
	PriceRange  string
	ImageURL    string
	Category    string
}

func (t Theme) Kind() enums.ItemType { return enums.ItemTypeTheme }
func (t Theme) CatalogID() string    { return t.ID }

func (t Theme) unitPrice([]DishSelection) decimal.Decimal {
	return parsePriceRange(t.PriceRange)
}

func (t Theme) describe() itemDescription {
	return itemDescription{Name: t.Name, Description: t.Description, ImageURL: t.ImageURL, Category: t.Category}
}

// RentalItem is a rentable inventory unit with a fixed unit price.
type RentalItem struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	Category    string
}

func (r RentalItem) Kind() enums.ItemType { return enums.ItemTypeInventory }
func (r RentalItem) CatalogID() string    { return r.ID }

func (r RentalItem) unitPrice([]DishSelection) decimal.Decimal { return r.Price }

func (r RentalItem) describe() itemDescription {
	return itemDescription{Name: r.Name, Description: r.Description, ImageURL: r.ImageURL, Category: r.Category}
}

// Plate is a composed catering plate: base price plus selected dishes.
type Plate struct {
	ID          string
	Name        string
	Description string
	BasePrice   decimal.Decimal
	ImageURL    string
	Category    string
}

func (p Plate) Kind() enums.ItemType { return enums.ItemTypePlate }
func (p Plate) CatalogID() string    { return p.ID }

func (p Plate) unitPrice(selections []DishSelection) decimal.Decimal {
	total := p.BasePrice
	for _, selection := range selections {
		total = total.Add(selection.Price.Mul(decimal.NewFromInt(int64(selection.Quantity))))
	}
	return total
}

func (p Plate) describe() itemDescription {
	return itemDescription{Name: p.Name, Description: p.Description, ImageURL: p.ImageURL, Category: p.Category}
}

// Dish is a standalone dish ordered outside any plate.
type Dish struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	Category    string
}

func (d Dish) Kind() enums.ItemType { return enums.ItemTypeDish }
func (d Dish) CatalogID() string    { return d.ID }

func (d Dish) unitPrice([]DishSelection) decimal.Decimal { return d.Price }

func (d Dish) describe() itemDescription {
	return itemDescription{Name: d.Name, Description: d.Description, ImageURL: d.ImageURL, Category: d.Category}
}

// LineItem is one cart entry, identified by (ItemID, Kind).
type LineItem struct {
	ItemID         string
	Kind           enums.ItemType
	Name           string
	Description    string
	UnitPrice      decimal.Decimal
	ImageURL       string
	VendorID       uuid.UUID
	VendorName     string
	Quantity       int
	Category       string
	BookingDate    string
	SelectedDishes []DishSelection
}

// LineTotal is the line item's price times quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l LineItem) matches(itemID string, kind enums.ItemType) bool {
	return l.ItemID == itemID && l.Kind == kind
}

// parsePriceRange extracts a numeric price from a free-text price-range
// string. Non-numeric characters are stripped before parsing; unparseable
// input prices at zero.
func parsePriceRange(raw string) decimal.Decimal {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return price
}

func validateCatalogable(item Catalogable) error {
	if item == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item cannot be classified: no catalog source")
	}
	if !item.Kind().IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "item cannot be classified: unknown kind")
	}
	if strings.TrimSpace(item.CatalogID()) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item cannot be classified: missing catalog id")
	}
	return nil
}
