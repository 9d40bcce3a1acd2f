package enums

import "fmt"

// ItemType identifies which catalog an item was sourced from.
type ItemType string

const (
	ItemTypeTheme     ItemType = "theme"
	ItemTypeInventory ItemType = "inventory"
	ItemTypePlate     ItemType = "plate"
	ItemTypeDish      ItemType = "dish"
)

var validItemTypes = []ItemType{
	ItemTypeTheme,
	ItemTypeInventory,
	ItemTypePlate,
	ItemTypeDish,
}

// String implements fmt.Stringer.
func (i ItemType) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ItemType.
func (i ItemType) IsValid() bool {
	for _, candidate := range validItemTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseItemType converts raw input into an ItemType.
func ParseItemType(value string) (ItemType, error) {
	for _, candidate := range validItemTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item type %q", value)
}
