package orders

import (
	"slices"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusAccepted, enums.OrderStatusCancelled},
	enums.OrderStatusAccepted:  {enums.OrderStatusPreparing, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing: {enums.OrderStatusReady},
	enums.OrderStatusReady:     {enums.OrderStatusPickedUp},
	enums.OrderStatusPickedUp:  {enums.OrderStatusInTransit},
	enums.OrderStatusInTransit: {enums.OrderStatusDelivered},
}

// AllowedNext lists the statuses reachable in one step from current.
func AllowedNext(current enums.OrderStatus) []enums.OrderStatus {
	return slices.Clone(transitions[current])
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to enums.OrderStatus) bool {
	return slices.Contains(transitions[from], to)
}

// Cancellable reports whether an order in status may still be cancelled.
func Cancellable(status enums.OrderStatus) bool {
	return CanTransition(status, enums.OrderStatusCancelled)
}
