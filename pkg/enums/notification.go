package enums

import "fmt"

// NotificationKind distinguishes the notification feeds the client polls.
type NotificationKind string

const (
	NotificationKindOrder   NotificationKind = "order"
	NotificationKindRestock NotificationKind = "restock"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindOrder,
	NotificationKindRestock,
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
