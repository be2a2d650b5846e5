package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/relay"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// OrderNotifier turns order lifecycle changes into stored notifications and
// order channel events.
type OrderNotifier struct {
	notifications Service
	publisher     Publisher
}

var _ orders.Notifier = (*OrderNotifier)(nil)

func NewOrderNotifier(notifications Service, publisher Publisher) *OrderNotifier {
	return &OrderNotifier{notifications: notifications, publisher: publisher}
}

// TrackingChannel is where live watchers of an order listen: bookings for
// rides and the order channel otherwise.
func TrackingChannel(order models.Order) string {
	if order.ServiceType == enums.ServiceTypeTransport {
		return relay.BookingChannel(order.ID)
	}
	return relay.OrderChannel(order.ID)
}

func (n *OrderNotifier) OrderChanged(ctx context.Context, event orders.Event) error {
	order := event.Order
	title := "Order Updated"
	message := fmt.Sprintf("Order #%s is now %s", order.OrderNumber, strings.ToLower(string(order.Status)))
	switch order.Status {
	case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		title = "Order Cancelled"
		message = fmt.Sprintf("Order #%s has been cancelled", order.OrderNumber)
		if order.Status == enums.OrderStatusRefunded {
			message += " and will be refunded"
		}
	case enums.OrderStatusReady:
		if order.DeliveryPartnerID != nil && *order.DeliveryPartnerID == event.Recipient {
			title = "New Delivery Assigned"
			message = fmt.Sprintf("Order #%s is ready for pickup", order.OrderNumber)
		}
	}
	_, err := n.notifications.Send(ctx, SendInput{
		UserID:  event.Recipient,
		Title:   title,
		Message: message,
		Type:    enums.NotificationTypeOrderUpdate,
		Data:    map[string]any{"orderId": order.ID, "orderNumber": order.OrderNumber, "status": order.Status},
	})
	return err
}

func (n *OrderNotifier) Broadcast(ctx context.Context, order models.Order, previous enums.OrderStatus) error {
	return n.publisher.Publish(ctx, TrackingChannel(order), relay.EventOrderStatusChanged, map[string]any{
		"orderId":           order.ID,
		"orderNumber":       order.OrderNumber,
		"status":            order.Status,
		"previousStatus":    previous,
		"deliveryPartnerId": order.DeliveryPartnerID,
		"updatedAt":         order.UpdatedAt,
	})
}
