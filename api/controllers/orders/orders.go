package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/api/middleware"
	"github.com/jebdekho/jebdekho-backend/api/responses"
	"github.com/jebdekho/jebdekho-backend/api/validators"
	"github.com/jebdekho/jebdekho-backend/internal/checkout"
	internalorders "github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

type LineRequest struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1,max=50"`
}

type PlaceRequest struct {
	VendorID            uuid.UUID           `json:"vendorId" validate:"required"`
	Items               []LineRequest       `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress     *models.Address     `json:"deliveryAddress" validate:"required"`
	PaymentMethod       enums.PaymentMethod `json:"paymentMethod" validate:"required"`
	PromoCode           string              `json:"promoCode" validate:"max=32"`
	SpecialInstructions string              `json:"specialInstructions" validate:"max=500"`
}

type StatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
	Note   string            `json:"note" validate:"max=200"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

// ParseStatuses reads the comma separated status filter.
func ParseStatuses(r *http.Request) ([]enums.OrderStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	var out []enums.OrderStatus
	for _, part := range strings.Split(raw, ",") {
		status, err := enums.ParseOrderStatus(strings.TrimSpace(part))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		out = append(out, status)
	}
	return out, nil
}

// ScopeFilter restricts a listing to the orders the caller is a party to.
func ScopeFilter(actor internalorders.Actor, filter internalorders.Filter) internalorders.Filter {
	id := actor.ID
	switch actor.Role {
	case enums.RoleVendor:
		filter.VendorID = &id
	case enums.RoleDeliveryPartner:
		filter.DeliveryPartnerID = &id
	case enums.RoleAdmin:
	default:
		filter.CustomerID = &id
	}
	return filter
}

// Place creates a food order for the caller.
func Place(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body PlaceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]checkout.LineInput, 0, len(body.Items))
		for _, item := range body.Items {
			lines = append(lines, checkout.LineInput{ID: item.ID, Quantity: item.Quantity})
		}

		order, err := svc.PlaceFoodOrder(r.Context(), middleware.ActorFromContext(r.Context()), checkout.FoodOrderInput{
			VendorID:            body.VendorID,
			Items:               lines,
			DeliveryAddress:     body.DeliveryAddress,
			PaymentMethod:       body.PaymentMethod,
			PromoCode:           strings.TrimSpace(body.PromoCode),
			SpecialInstructions: validators.SanitizeString(body.SpecialInstructions, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusCreated, "Order placed successfully", order)
	}
}

// Detail returns an order enriched with its parties. Only parties to the order may read it.
func Detail(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		orderID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		details, err := svc.OrderDetails(r.Context(), middleware.ActorFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, details)
	}
}

// List returns the caller's food order history, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		statuses, err := ParseStatuses(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := ScopeFilter(middleware.ActorFromContext(r.Context()), internalorders.Filter{
			ServiceType: enums.ServiceTypeFood,
			Statuses:    statuses,
		})
		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// UpdateStatus moves an order through the status state machine.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body StatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			Next:    body.Status,
			Actor:   middleware.ActorFromContext(r.Context()),
			Note:    validators.SanitizeString(body.Note, 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "Order status updated", order)
	}
}

// Cancel cancels an order and refunds a paid one to the customer's wallet.
func Cancel(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		orderID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body CancelRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			Actor:   middleware.ActorFromContext(r.Context()),
			Reason:  validators.SanitizeString(body.Reason, 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "Order cancelled successfully", result)
	}
}
