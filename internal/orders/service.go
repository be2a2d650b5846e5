package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/metrics"
	"github.com/jebdekho/jebdekho-backend/pkg/pagination"
	"github.com/jebdekho/jebdekho-backend/pkg/security"
)

// Actor is the authenticated caller driving an order change.
type Actor struct {
	ID   uuid.UUID
	Role enums.Role
}

// MatchRequest describes the partner an order needs.
type MatchRequest struct {
	OrderID     uuid.UUID
	ServiceType enums.ServiceType
	VehicleType *enums.VehicleType
	Near        *models.Location
}

// DriverMatcher picks a delivery partner for an order. ok is false when no
// partner is available.
type DriverMatcher interface {
	Match(ctx context.Context, req MatchRequest) (driverID uuid.UUID, ok bool, err error)
}

// Event describes an applied status change addressed to one recipient.
type Event struct {
	Order     models.Order
	Previous  enums.OrderStatus
	Actor     Actor
	Recipient uuid.UUID
}

// Notifier delivers order events. OrderChanged runs once per recipient and
// Broadcast once per change for everyone tracking the order. Delivery
// failures never fail the change.
type Notifier interface {
	OrderChanged(ctx context.Context, event Event) error
	Broadcast(ctx context.Context, order models.Order, previous enums.OrderStatus) error
}

// Service owns the order lifecycle. It never touches the ledger: callers
// refund REFUNDED orders themselves.
type Service interface {
	Create(ctx context.Context, order models.Order, actor Actor) (models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (models.Order, error)
	List(ctx context.Context, filter Filter, params pagination.Params) (pagination.Page[models.Order], error)
	All(ctx context.Context, filter Filter) ([]models.Order, error)
	CountCustomerOrders(ctx context.Context, customerID uuid.UUID) (int, error)
	Transition(ctx context.Context, input TransitionInput) (models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, transactionID uuid.UUID) (models.Order, error)
}

type TransitionInput struct {
	OrderID uuid.UUID
	Next    enums.OrderStatus
	Actor   Actor
	Note    string
}

type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Reason  string
}

type service struct {
	repo     Repository
	matcher  DriverMatcher
	notifier Notifier
	logg     *logger.Logger
	metrics  *metrics.BusinessMetrics
	now      func() time.Time
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *metrics.BusinessMetrics) Option {
	return func(s *service) { s.metrics = m }
}

func NewService(repo Repository, matcher DriverMatcher, notifier Notifier, logg *logger.Logger, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if matcher == nil {
		return nil, fmt.Errorf("driver matcher required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("order notifier required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &service{repo: repo, matcher: matcher, notifier: notifier, logg: logg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewOrderNumber returns the service prefix followed by six random digits.
func NewOrderNumber(service enums.ServiceType) (string, error) {
	digits, err := security.GenerateOTP(6)
	if err != nil {
		return "", err
	}
	return service.OrderPrefix() + digits, nil
}

func (s *service) Create(ctx context.Context, order models.Order, actor Actor) (models.Order, error) {
	if order.CustomerID == uuid.Nil {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "customer is required")
	}
	if !order.ServiceType.IsValid() {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusAccepted {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "orders start as PENDING or ACCEPTED")
	}
	// Re-derive FinalAmount so the invariant holds whatever the caller set.
	order.SetAmounts(order.TotalAmount, order.DeliveryFee, order.Taxes, order.Discount)

	number, err := NewOrderNumber(order.ServiceType)
	if err != nil {
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}
	now := s.now().UTC()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.OrderNumber = number
	order.CreatedAt = now
	order.UpdatedAt = now
	order.StatusHistory = []models.StatusChange{{Status: order.Status, ActorID: actor.ID, ActorRole: actor.Role, At: now}}

	if err := s.repo.Create(ctx, order); err != nil {
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store order")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"service_type": order.ServiceType,
		"status":       order.Status,
	}), "order.created")
	return order, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (models.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filter Filter, params pagination.Params) (pagination.Page[models.Order], error) {
	rows, err := s.All(ctx, filter)
	if err != nil {
		return pagination.Page[models.Order]{}, err
	}
	return pagination.Slice(rows, params), nil
}

func (s *service) All(ctx context.Context, filter Filter) ([]models.Order, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) CountCustomerOrders(ctx context.Context, customerID uuid.UUID) (int, error) {
	return s.repo.Count(ctx, Filter{CustomerID: &customerID})
}

// authorize allows admins, the order's vendor and its assigned partner. The
// customer is allowed only to cancel.
func authorize(order models.Order, actor Actor, cancelling bool) error {
	switch {
	case actor.Role == enums.RoleAdmin:
		return nil
	case actor.Role == enums.RoleVendor && order.VendorID != nil && *order.VendorID == actor.ID:
		return nil
	case actor.Role == enums.RoleDeliveryPartner && order.DeliveryPartnerID != nil && *order.DeliveryPartnerID == actor.ID:
		return nil
	case cancelling && order.CustomerID == actor.ID:
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "Not authorized to update this order")
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("Cannot change order status from %s to %s", from, to)).
		WithDetails(map[string]any{"currentStatus": from, "requestedStatus": to, "allowed": AllowedNext(from)})
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (models.Order, error) {
	if !input.Next.IsValid() {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	if input.Next == enums.OrderStatusCancelled {
		return s.Cancel(ctx, CancelInput{OrderID: input.OrderID, Actor: input.Actor, Reason: input.Note})
	}

	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	current, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return models.Order{}, err
	}
	if err := checkTransition(current, input.Actor, input.Next); err != nil {
		s.metrics.RecordTransition(input.Next.String(), false)
		return models.Order{}, err
	}

	var assigned *uuid.UUID
	if input.Next == enums.OrderStatusReady && current.DeliveryPartnerID == nil {
		assigned = s.matchDriver(ctx, current)
	}

	previous := current.Status
	updated, err := s.repo.Update(ctx, input.OrderID, func(o *models.Order) error {
		// Re-check under the row lock; a concurrent change may have moved it.
		if err := checkTransition(*o, input.Actor, input.Next); err != nil {
			return err
		}
		previous = o.Status
		now := s.now().UTC()
		o.Status = input.Next
		o.UpdatedAt = now
		o.StatusHistory = append(o.StatusHistory, models.StatusChange{
			Status: input.Next, ActorID: input.Actor.ID, ActorRole: input.Actor.Role, Note: strings.TrimSpace(input.Note), At: now,
		})
		if assigned != nil && o.DeliveryPartnerID == nil {
			id := *assigned
			o.DeliveryPartnerID = &id
		}
		if input.Next == enums.OrderStatusDelivered {
			o.DeliveredAt = &now
			if o.PaymentMethod == enums.PaymentMethodCash {
				o.PaymentStatus = enums.PaymentStatusSuccess
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordTransition(input.Next.String(), false)
		if pkgerrors.As(err) != nil {
			return models.Order{}, err
		}
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	s.metrics.RecordTransition(input.Next.String(), true)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from":       previous,
		"to":         updated.Status,
		"actor_id":   input.Actor.ID.String(),
		"actor_role": input.Actor.Role,
	}), "order.transition")

	recipients := []uuid.UUID{counterParty(updated, input.Actor)}
	if assigned != nil && updated.DeliveryPartnerID != nil && *updated.DeliveryPartnerID == *assigned {
		recipients = append(recipients, *assigned)
	}
	s.notify(ctx, updated, previous, input.Actor, recipients...)
	return updated, nil
}

func checkTransition(order models.Order, actor Actor, next enums.OrderStatus) error {
	if order.Status.IsTerminal() {
		return invalidTransition(order.Status, next)
	}
	if err := authorize(order, actor, false); err != nil {
		return err
	}
	if !CanTransition(order.Status, next) {
		return invalidTransition(order.Status, next)
	}
	return nil
}

func (s *service) matchDriver(ctx context.Context, order models.Order) *uuid.UUID {
	req := MatchRequest{OrderID: order.ID, ServiceType: order.ServiceType, VehicleType: order.VehicleType, Near: order.PickupLocation}
	driverID, ok, err := s.matcher.Match(ctx, req)
	if err != nil {
		s.logg.Error(ctx, "order.driver_match_failed", err)
		return nil
	}
	if !ok {
		s.logg.Warn(ctx, "order.no_driver_available")
		return nil
	}
	return &driverID
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (models.Order, error) {
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	current, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return models.Order{}, err
	}
	if err := checkCancel(current, input.Actor); err != nil {
		s.metrics.RecordTransition(enums.OrderStatusCancelled.String(), false)
		return models.Order{}, err
	}

	previous := current.Status
	updated, err := s.repo.Update(ctx, input.OrderID, func(o *models.Order) error {
		if err := checkCancel(*o, input.Actor); err != nil {
			return err
		}
		previous = o.Status
		now := s.now().UTC()
		next := enums.OrderStatusCancelled
		if o.PaymentStatus == enums.PaymentStatusSuccess {
			next = enums.OrderStatusRefunded
			o.PaymentStatus = enums.PaymentStatusRefunded
		}
		o.Status = next
		o.UpdatedAt = now
		o.CancelledAt = &now
		if reason := strings.TrimSpace(input.Reason); reason != "" {
			o.CancellationReason = &reason
		}
		o.StatusHistory = append(o.StatusHistory, models.StatusChange{
			Status: next, ActorID: input.Actor.ID, ActorRole: input.Actor.Role, Note: strings.TrimSpace(input.Reason), At: now,
		})
		return nil
	})
	if err != nil {
		s.metrics.RecordTransition(enums.OrderStatusCancelled.String(), false)
		if pkgerrors.As(err) != nil {
			return models.Order{}, err
		}
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	s.metrics.RecordTransition(updated.Status.String(), true)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from":       previous,
		"to":         updated.Status,
		"actor_id":   input.Actor.ID.String(),
		"actor_role": input.Actor.Role,
	}), "order.cancelled")

	recipients := []uuid.UUID{counterParty(updated, input.Actor)}
	if input.Actor.ID != updated.CustomerID && recipients[0] != updated.CustomerID {
		recipients = append(recipients, updated.CustomerID)
	}
	s.notify(ctx, updated, previous, input.Actor, recipients...)
	return updated, nil
}

func checkCancel(order models.Order, actor Actor) error {
	if order.Status.IsTerminal() {
		return invalidTransition(order.Status, enums.OrderStatusCancelled)
	}
	if err := authorize(order, actor, true); err != nil {
		return err
	}
	if !Cancellable(order.Status) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "Order cannot be cancelled at this stage").
			WithDetails(map[string]any{"currentStatus": order.Status})
	}
	return nil
}

func (s *service) MarkPaid(ctx context.Context, id uuid.UUID, transactionID uuid.UUID) (models.Order, error) {
	updated, err := s.repo.Update(ctx, id, func(o *models.Order) error {
		if o.PaymentStatus == enums.PaymentStatusSuccess {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Order is already paid")
		}
		if o.Status.IsTerminal() && o.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Order is no longer payable")
		}
		txID := transactionID
		o.PaymentStatus = enums.PaymentStatusSuccess
		o.PaymentTransactionID = &txID
		o.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
		if pkgerrors.As(err) != nil {
			return models.Order{}, err
		}
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	return updated, nil
}

// counterParty is the customer when a vendor or partner drove the change and
// the vendor when an admin or the customer did. Vendorless orders fall back to
// the partner, then the customer.
func counterParty(order models.Order, actor Actor) uuid.UUID {
	if actor.Role == enums.RoleAdmin || actor.ID == order.CustomerID {
		if order.VendorID != nil {
			return *order.VendorID
		}
		if order.DeliveryPartnerID != nil && actor.ID == order.CustomerID {
			return *order.DeliveryPartnerID
		}
	}
	return order.CustomerID
}

func (s *service) notify(ctx context.Context, order models.Order, previous enums.OrderStatus, actor Actor, recipients ...uuid.UUID) {
	if err := s.notifier.Broadcast(ctx, order, previous); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order.broadcast_failed")
	}
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	for _, recipient := range recipients {
		if recipient == uuid.Nil || recipient == actor.ID {
			continue
		}
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}
		event := Event{Order: order, Previous: previous, Actor: actor, Recipient: recipient}
		if err := s.notifier.OrderChanged(ctx, event); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"recipient": recipient.String(),
				"error":     err.Error(),
			}), "order.notify_failed")
		}
	}
}
