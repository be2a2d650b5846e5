package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/internal/notifications"
	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/relay"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/geo"
)

type BookingInput struct {
	Pickup        models.Location
	Drop          models.Location
	PickupAddress string
	DropAddress   string
	VehicleType   enums.VehicleType
	PaymentMethod enums.PaymentMethod
	PromoCode     string
}

// Tracking is the live view of a ride.
type Tracking struct {
	BookingID        uuid.UUID             `json:"bookingId"`
	CurrentStatus    enums.OrderStatus     `json:"currentStatus"`
	StatusHistory    []models.StatusChange `json:"statusHistory"`
	DriverLocation   *models.Location      `json:"driverLocation"`
	EstimatedArrival *time.Time            `json:"estimatedArrival,omitempty"`
	PickupLocation   *models.Location      `json:"pickupLocation"`
	DropLocation     *models.Location      `json:"dropLocation"`
}

func validLocation(loc models.Location) bool {
	return loc.Latitude >= -90 && loc.Latitude <= 90 && loc.Longitude >= -180 && loc.Longitude <= 180
}

// BookRide prices the trip, assigns the first matching driver and stores an
// ACCEPTED TRANSPORT order.
func (s *service) BookRide(ctx context.Context, actor orders.Actor, input BookingInput) (models.Order, error) {
	if !validLocation(input.Pickup) || !validLocation(input.Drop) {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "Invalid coordinates")
	}
	if !input.VehicleType.IsValid() {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid vehicle type")
	}
	if err := validPaymentMethod(input.PaymentMethod); err != nil {
		return models.Order{}, err
	}

	distance := geo.DistanceKM(input.Pickup, input.Drop)
	duration := geo.DurationMinutes(distance)
	fare := geo.Fare(distance, duration, input.VehicleType)

	vehicle := input.VehicleType
	pickup := input.Pickup
	driverID, ok, err := s.Matcher.Match(ctx, orders.MatchRequest{
		ServiceType: enums.ServiceTypeTransport,
		VehicleType: &vehicle,
		Near:        &pickup,
	})
	if err != nil {
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "match driver")
	}
	if !ok {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "No drivers available")
	}

	c := charges{subtotal: fare.Total, deliveryFee: decimal.Zero, taxes: s.taxOn(fare.Total)}
	release, err := s.applyPromo(ctx, &c, input.PromoCode, actor.ID, enums.ServiceTypeTransport)
	if err != nil {
		return models.Order{}, err
	}
	defer release()

	drop := input.Drop
	created, err := s.place(ctx, models.Order{
		DeliveryPartnerID: &driverID,
		ServiceType:       enums.ServiceTypeTransport,
		Status:            enums.OrderStatusAccepted,
		PaymentMethod:     input.PaymentMethod,
		VehicleType:       &vehicle,
		PickupLocation:    &pickup,
		DropLocation:      &drop,
		PickupAddress:     input.PickupAddress,
		DropAddress:       input.DropAddress,
		Fare:              &fare,
		EstimatedDuration: duration,
	}, c, actor)
	if err != nil {
		return models.Order{}, err
	}

	if err := s.Publisher.Publish(ctx, relay.BookingChannel(created.ID), relay.EventOrderAccepted, map[string]any{
		"bookingId":         created.ID,
		"orderNumber":       created.OrderNumber,
		"deliveryPartnerId": driverID,
		"status":            created.Status,
	}); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"order_id": created.ID.String(), "error": err.Error()}), "checkout.booking_publish_failed")
	}
	if _, err := s.Notifications.Send(ctx, notifications.SendInput{
		UserID:  driverID,
		Title:   "New Ride Assigned",
		Message: "Booking #" + created.OrderNumber + " is waiting for pickup",
		Type:    enums.NotificationTypeOrderUpdate,
		Data:    map[string]any{"bookingId": created.ID, "pickupLocation": pickup},
	}); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"order_id": created.ID.String(), "error": err.Error()}), "checkout.driver_notify_failed")
	}
	return created, nil
}

// booking loads a ride visible to actor: its customer, its driver or an admin.
func (s *service) booking(ctx context.Context, actor orders.Actor, id uuid.UUID) (models.Order, error) {
	order, err := s.Orders.Get(ctx, id)
	if err != nil || order.ServiceType != enums.ServiceTypeTransport {
		if err == nil || pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return models.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "Booking not found")
		}
		return models.Order{}, err
	}
	if actor.Role == enums.RoleAdmin {
		return order, nil
	}
	if order.CustomerID != actor.ID && (order.DeliveryPartnerID == nil || *order.DeliveryPartnerID != actor.ID) {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
	}
	return order, nil
}

func (s *service) BookingDetails(ctx context.Context, actor orders.Actor, bookingID uuid.UUID) (*OrderDetails, error) {
	order, err := s.booking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, order), nil
}

func (s *service) TrackBooking(ctx context.Context, actor orders.Actor, bookingID uuid.UUID) (*Tracking, error) {
	order, err := s.booking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	t := &Tracking{
		BookingID:      order.ID,
		CurrentStatus:  order.Status,
		StatusHistory:  order.StatusHistory,
		PickupLocation: order.PickupLocation,
		DropLocation:   order.DropLocation,
	}
	if order.DeliveryPartnerID != nil {
		if driver, err := s.Users.Get(ctx, *order.DeliveryPartnerID); err == nil && driver.Driver != nil {
			t.DriverLocation = driver.Driver.CurrentLocation
		}
	}
	if !order.Status.IsTerminal() {
		eta := s.now().UTC().Add(time.Duration(order.EstimatedDuration) * time.Minute)
		t.EstimatedArrival = &eta
	}
	return t, nil
}

// CancelBooking lets only the rider cancel; the refund follows Cancel.
func (s *service) CancelBooking(ctx context.Context, input orders.CancelInput) (*CancelResult, error) {
	order, err := s.booking(ctx, input.Actor, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != input.Actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only customer can cancel booking")
	}
	return s.Cancel(ctx, input)
}
