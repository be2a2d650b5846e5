package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/jebdekho/jebdekho-backend/api/middleware"
	"github.com/jebdekho/jebdekho-backend/api/responses"
	"github.com/jebdekho/jebdekho-backend/api/validators"
	"github.com/jebdekho/jebdekho-backend/internal/checkout"
	"github.com/jebdekho/jebdekho-backend/internal/dispatch"
	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/geo"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

type EstimateRequest struct {
	PickupLat   float64           `json:"pickupLat" validate:"latitude"`
	PickupLng   float64           `json:"pickupLng" validate:"longitude"`
	DropLat     float64           `json:"dropLat" validate:"latitude"`
	DropLng     float64           `json:"dropLng" validate:"longitude"`
	VehicleType enums.VehicleType `json:"vehicleType"`
}

type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Address   string  `json:"address" validate:"max=255"`
}

func (p LocationRequest) location() models.Location {
	return models.Location{Latitude: p.Latitude, Longitude: p.Longitude}
}

type BookingRequest struct {
	PickupLocation LocationRequest     `json:"pickupLocation"`
	DropLocation   LocationRequest     `json:"dropLocation"`
	VehicleType    enums.VehicleType   `json:"vehicleType" validate:"required"`
	PaymentMethod  enums.PaymentMethod `json:"paymentMethod" validate:"required"`
	PromoCode      string              `json:"promoCode" validate:"max=32"`
}

type driverDirectory interface {
	All(ctx context.Context, filter users.Filter) ([]models.User, error)
}

func checkoutUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
}

// EstimateFare prices a trip for every vehicle type, or only the requested one.
func EstimateFare(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body EstimateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		estimates := geo.Estimates(
			models.Location{Latitude: body.PickupLat, Longitude: body.PickupLng},
			models.Location{Latitude: body.DropLat, Longitude: body.DropLng},
		)
		if body.VehicleType != "" {
			vehicle, err := enums.ParseVehicleType(string(body.VehicleType))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vehicle type"))
				return
			}
			filtered := estimates[:0]
			for _, e := range estimates {
				if e.VehicleType == vehicle {
					filtered = append(filtered, e)
				}
			}
			estimates = filtered
		}

		responses.WriteSuccess(w, estimates)
	}
}

// BookRide matches a driver and creates an ACCEPTED booking.
func BookRide(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checkoutUnavailable(w, r, logg)
			return
		}

		var body BookingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.BookRide(r.Context(), middleware.ActorFromContext(r.Context()), checkout.BookingInput{
			Pickup:        body.PickupLocation.location(),
			Drop:          body.DropLocation.location(),
			PickupAddress: validators.SanitizeString(body.PickupLocation.Address, 255),
			DropAddress:   validators.SanitizeString(body.DropLocation.Address, 255),
			VehicleType:   body.VehicleType,
			PaymentMethod: body.PaymentMethod,
			PromoCode:     strings.TrimSpace(body.PromoCode),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Booking created successfully", booking)
	}
}

func GetBooking(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checkoutUnavailable(w, r, logg)
			return
		}

		bookingID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		details, err := svc.BookingDetails(r.Context(), middleware.ActorFromContext(r.Context()), bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, details)
	}
}

func TrackBooking(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checkoutUnavailable(w, r, logg)
			return
		}

		bookingID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tracking, err := svc.TrackBooking(r.Context(), middleware.ActorFromContext(r.Context()), bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tracking)
	}
}

// CancelBooking is limited to the rider; a paid ride is refunded to the wallet.
func CancelBooking(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checkoutUnavailable(w, r, logg)
			return
		}

		bookingID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body struct {
			Reason string `json:"reason" validate:"max=200"`
		}
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CancelBooking(r.Context(), orders.CancelInput{
			OrderID: bookingID,
			Actor:   middleware.ActorFromContext(r.Context()),
			Reason:  validators.SanitizeString(body.Reason, 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Booking cancelled successfully", result)
	}
}

// NearbyDrivers lists online partners within radius km, closest first.
func NearbyDrivers(drivers driverDirectory, defaultRadiusKM float64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if drivers == nil {
			usersUnavailable(w, r, logg)
			return
		}

		lat, err := validators.ParseQueryFloat(r, "latitude")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "longitude")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if lat == nil || lng == nil || *lat < -90 || *lat > 90 || *lng < -180 || *lng > 180 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "valid latitude and longitude are required"))
			return
		}
		radius, err := validators.ParseQueryFloat(r, "radius")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		radiusKM := defaultRadiusKM
		if radius != nil {
			if *radius <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "radius must be positive"))
				return
			}
			radiusKM = *radius
		}
		var vehicle enums.VehicleType
		if raw := strings.TrimSpace(r.URL.Query().Get("vehicleType")); raw != "" {
			vehicle, err = enums.ParseVehicleType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vehicle type"))
				return
			}
		}

		nearby, err := dispatch.Nearby(r.Context(), drivers, models.Location{Latitude: *lat, Longitude: *lng}, vehicle, radiusKM)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nearby)
	}
}
