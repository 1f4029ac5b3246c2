package enums

import "fmt"

// NotificationType buckets in-app notifications by originating module.
type NotificationType string

const (
	NotificationTypeSale    NotificationType = "sale"
	NotificationTypeStock   NotificationType = "stock"
	NotificationTypeExpense NotificationType = "expense"
	NotificationTypeSystem  NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeSale,
	NotificationTypeStock,
	NotificationTypeExpense,
	NotificationTypeSystem,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
