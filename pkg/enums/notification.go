package enums

import "fmt"

// NotificationType classifies an in-app notification.
type NotificationType string

const (
	NotificationTypeOrderUpdate NotificationType = "ORDER_UPDATE"
	NotificationTypePayment     NotificationType = "PAYMENT"
	NotificationTypePromotion   NotificationType = "PROMOTION"
	NotificationTypeSystem      NotificationType = "SYSTEM"
	NotificationTypeChat        NotificationType = "CHAT"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderUpdate,
	NotificationTypePayment,
	NotificationTypePromotion,
	NotificationTypeSystem,
	NotificationTypeChat,
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
