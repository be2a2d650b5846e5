package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/pkg/auth"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// Client events.
const (
	EventTrackOrder         = "track:order"
	EventUntrackOrder       = "untrack:order"
	EventTrackRide          = "track:ride"
	EventLocationUpdate     = "location:update"
	EventOrderAccept        = "order:accept"
	EventOrderStatus        = "order:status"
	EventOrderUpdate        = "order:update"
	EventAvailabilityToggle = "availability:toggle"
	EventPing               = "ping"
)

// Server events.
const (
	EventTrackingStarted     = "tracking:started"
	EventTrackingStopped     = "tracking:stopped"
	EventDriverLocation      = "driver:location"
	EventOrderAccepted       = "order:accepted"
	EventOrderStatusChanged  = "order:status:changed"
	EventAvailabilityChanged = "availability:changed"
	EventNotification        = "notification"
	EventPong                = "pong"
	EventError               = "error"
)

// ClientFrame is one message read from a connection.
type ClientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Actions are the state changes a connection may trigger.
type Actions interface {
	SetDriverLocation(ctx context.Context, driverID uuid.UUID, loc models.Location) (models.User, error)
	SetDriverOnline(ctx context.Context, driverID uuid.UUID, online bool) (models.User, error)
	SetAvailability(ctx context.Context, vendorID uuid.UUID, open bool) (models.User, error)
}

// OrderLookup resolves the orders a connection tracks and applies the status
// changes it sends. Transition is expected to broadcast the change itself.
type OrderLookup interface {
	Get(ctx context.Context, id uuid.UUID) (models.Order, error)
	Transition(ctx context.Context, input orders.TransitionInput) (models.Order, error)
}

// Session applies client frames for one authenticated connection.
type Session struct {
	hub       *Hub
	sub       *Subscriber
	principal auth.Principal
	actions   Actions
	lookup    OrderLookup
	now       func() time.Time
}

func NewSession(hub *Hub, sub *Subscriber, principal auth.Principal, actions Actions, lookup OrderLookup) *Session {
	return &Session{hub: hub, sub: sub, principal: principal, actions: actions, lookup: lookup, now: time.Now}
}

type orderRef struct {
	OrderID   uuid.UUID `json:"orderId"`
	BookingID uuid.UUID `json:"bookingId"`
}

type statusFrame struct {
	OrderID uuid.UUID         `json:"orderId"`
	Status  enums.OrderStatus `json:"status"`
}

type locationFrame struct {
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	BookingID *uuid.UUID `json:"bookingId,omitempty"`
}

type availabilityFrame struct {
	IsOpen   *bool `json:"isOpen"`
	IsOnline *bool `json:"isOnline"`
}

// Handle applies frame and returns the direct reply, if any. Errors are
// reported to the client as an error frame and never close the connection.
func (s *Session) Handle(ctx context.Context, frame ClientFrame) *Envelope {
	reply, err := s.handle(ctx, frame)
	if err != nil {
		return s.reply(EventError, map[string]string{"event": frame.Event, "message": err.Error()})
	}
	return reply
}

func (s *Session) handle(ctx context.Context, frame ClientFrame) (*Envelope, error) {
	switch frame.Event {
	case EventPing:
		return s.reply(EventPong, map[string]any{"timestamp": s.now().UTC()}), nil

	case EventTrackOrder, EventUntrackOrder, EventTrackRide:
		var ref orderRef
		if err := decode(frame.Data, &ref); err != nil {
			return nil, err
		}
		id, channel := ref.OrderID, OrderChannel(ref.OrderID)
		if frame.Event == EventTrackRide {
			id, channel = ref.BookingID, BookingChannel(ref.BookingID)
		}
		if id == uuid.Nil {
			return nil, fmt.Errorf("order id required")
		}
		if frame.Event == EventUntrackOrder {
			s.hub.Leave(s.sub, channel)
			return s.reply(EventTrackingStopped, map[string]any{"id": id, "channel": channel}), nil
		}
		if err := s.canTrack(ctx, id); err != nil {
			return nil, err
		}
		s.hub.Join(s.sub, channel)
		return s.reply(EventTrackingStarted, map[string]any{"id": id, "channel": channel}), nil

	case EventLocationUpdate:
		if s.principal.Role != enums.RoleDeliveryPartner {
			return nil, fmt.Errorf("only delivery partners share location")
		}
		var loc locationFrame
		if err := decode(frame.Data, &loc); err != nil {
			return nil, err
		}
		point := models.Location{Latitude: loc.Lat, Longitude: loc.Lng}
		if _, err := s.actions.SetDriverLocation(ctx, s.principal.UserID, point); err != nil {
			return nil, err
		}
		if loc.BookingID != nil && *loc.BookingID != uuid.Nil {
			if _, err := s.assignedOrder(ctx, *loc.BookingID); err != nil {
				return nil, err
			}
			return nil, s.hub.Publish(ctx, BookingChannel(*loc.BookingID), EventDriverLocation, map[string]any{
				"driverId":  s.principal.UserID,
				"location":  point,
				"timestamp": s.now().UTC(),
			})
		}
		return nil, nil

	case EventOrderAccept:
		if s.principal.Role != enums.RoleDeliveryPartner {
			return nil, fmt.Errorf("only delivery partners accept orders")
		}
		var ref orderRef
		if err := decode(frame.Data, &ref); err != nil {
			return nil, err
		}
		if ref.OrderID == uuid.Nil {
			return nil, fmt.Errorf("order id required")
		}
		order, err := s.assignedOrder(ctx, ref.OrderID)
		if err != nil {
			return nil, err
		}
		return nil, s.hub.Publish(ctx, trackingChannel(order), EventOrderAccepted, map[string]any{
			"orderId":  order.ID,
			"driverId": s.principal.UserID,
		})

	case EventOrderStatus, EventOrderUpdate:
		want := enums.RoleDeliveryPartner
		if frame.Event == EventOrderUpdate {
			want = enums.RoleVendor
		}
		if s.principal.Role != want {
			return nil, fmt.Errorf("%s is not allowed for %s", frame.Event, s.principal.Role)
		}
		var st statusFrame
		if err := decode(frame.Data, &st); err != nil {
			return nil, err
		}
		if st.OrderID == uuid.Nil || !st.Status.IsValid() {
			return nil, fmt.Errorf("order id and a valid status are required")
		}
		if s.lookup == nil {
			return nil, fmt.Errorf("order updates are unavailable")
		}
		// The order service checks the actor and the state machine, then
		// broadcasts order:status:changed to the tracking channel.
		_, err := s.lookup.Transition(ctx, orders.TransitionInput{
			OrderID: st.OrderID,
			Next:    st.Status,
			Actor:   orders.Actor{ID: s.principal.UserID, Role: s.principal.Role},
		})
		if err != nil {
			return nil, err
		}
		return nil, nil

	case EventAvailabilityToggle:
		var av availabilityFrame
		if err := decode(frame.Data, &av); err != nil {
			return nil, err
		}
		switch s.principal.Role {
		case enums.RoleVendor:
			if av.IsOpen == nil {
				return nil, fmt.Errorf("isOpen required")
			}
			if _, err := s.actions.SetAvailability(ctx, s.principal.UserID, *av.IsOpen); err != nil {
				return nil, err
			}
			return nil, s.hub.Publish(ctx, VendorChannel(s.principal.UserID), EventAvailabilityChanged, map[string]any{
				"vendorId": s.principal.UserID,
				"isOpen":   *av.IsOpen,
			})
		case enums.RoleDeliveryPartner:
			if av.IsOnline == nil {
				return nil, fmt.Errorf("isOnline required")
			}
			if _, err := s.actions.SetDriverOnline(ctx, s.principal.UserID, *av.IsOnline); err != nil {
				return nil, err
			}
			return s.reply(EventAvailabilityChanged, map[string]any{"driverId": s.principal.UserID, "isOnline": *av.IsOnline}), nil
		}
		return nil, fmt.Errorf("availability is managed by vendors and delivery partners")
	}
	return nil, fmt.Errorf("unknown event %q", frame.Event)
}

func (s *Session) canTrack(ctx context.Context, id uuid.UUID) error {
	if s.principal.Role == enums.RoleAdmin || s.lookup == nil {
		return nil
	}
	order, err := s.lookup.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("order not found")
	}
	if !order.IsParty(s.principal.UserID) {
		return fmt.Errorf("not allowed to track this order")
	}
	return nil
}

// assignedOrder loads id and requires the caller to be its delivery partner.
func (s *Session) assignedOrder(ctx context.Context, id uuid.UUID) (models.Order, error) {
	if s.lookup == nil {
		return models.Order{}, fmt.Errorf("order lookup unavailable")
	}
	order, err := s.lookup.Get(ctx, id)
	if err != nil {
		return models.Order{}, fmt.Errorf("order not found")
	}
	if order.DeliveryPartnerID == nil || *order.DeliveryPartnerID != s.principal.UserID {
		return models.Order{}, fmt.Errorf("not assigned to this order")
	}
	return order, nil
}

func trackingChannel(order models.Order) string {
	if order.ServiceType == enums.ServiceTypeTransport {
		return BookingChannel(order.ID)
	}
	return OrderChannel(order.ID)
}

func (s *Session) reply(event string, data any) *Envelope {
	raw, _ := json.Marshal(data)
	return &Envelope{Event: event, Data: raw, Timestamp: s.now().UTC()}
}

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("data required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("malformed data: %w", err)
	}
	return nil
}
