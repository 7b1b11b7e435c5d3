package enums

import "fmt"

// NotificationKind classifies persisted notifications and their mail templates.
type NotificationKind string

const (
	NotificationOrderConfirmation NotificationKind = "order_confirmation"
	NotificationOrderStatusUpdate NotificationKind = "order_status_update"
	NotificationNewOrderAlert     NotificationKind = "new_order_alert"
	NotificationBackInStock       NotificationKind = "back_in_stock"
)

var validNotificationKinds = []NotificationKind{
	NotificationOrderConfirmation,
	NotificationOrderStatusUpdate,
	NotificationNewOrderAlert,
	NotificationBackInStock,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
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

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
