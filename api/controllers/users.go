package controllers

import (
	"net/http"

	"github.com/jebdekho/jebdekho-backend/api/middleware"
	"github.com/jebdekho/jebdekho-backend/api/responses"
	"github.com/jebdekho/jebdekho-backend/api/validators"
	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

type ProfileUpdateRequest struct {
	FirstName      *string `json:"firstName" validate:"omitempty,min=1,max=64"`
	LastName       *string `json:"lastName" validate:"omitempty,max=64"`
	Phone          *string `json:"phone" validate:"omitempty,indian_phone"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,max=512"`
}

type AddressRequest struct {
	Line1     string            `json:"line1" validate:"required,max=200"`
	Line2     string            `json:"line2" validate:"max=200"`
	City      string            `json:"city" validate:"required,max=100"`
	State     string            `json:"state" validate:"required,max=100"`
	Pincode   string            `json:"pincode" validate:"required,pincode"`
	Type      enums.AddressType `json:"type" validate:"omitempty,oneof=HOME WORK OTHER"`
	IsDefault bool              `json:"isDefault"`
	Location  *models.Location  `json:"location"`
}

func (a AddressRequest) input() users.AddressInput {
	return users.AddressInput{
		Line1:     validators.SanitizeString(a.Line1, 200),
		Line2:     validators.SanitizeString(a.Line2, 200),
		City:      validators.SanitizeString(a.City, 100),
		State:     validators.SanitizeString(a.State, 100),
		Pincode:   a.Pincode,
		Type:      a.Type,
		IsDefault: a.IsDefault,
		Location:  a.Location,
	}
}

func usersUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
}

// GetProfile returns the caller's account.
func GetProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			usersUnavailable(w, r, logg)
			return
		}
		user, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func UpdateProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			usersUnavailable(w, r, logg)
			return
		}
		var body ProfileUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), users.ProfileInput{
			FirstName:      body.FirstName,
			LastName:       body.LastName,
			Phone:          body.Phone,
			ProfilePicture: body.ProfilePicture,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Profile updated successfully", user)
	}
}

// DeleteProfile deactivates the caller's account.
func DeleteProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			usersUnavailable(w, r, logg)
			return
		}
		if err := svc.Deactivate(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Account deleted successfully", nil)
	}
}

func ListAddresses(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			usersUnavailable(w, r, logg)
			return
		}
		addresses, err := svc.Addresses(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, addresses)
	}
}

func AddAddress(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			usersUnavailable(w, r, logg)
			return
		}
		var body AddressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		address, err := svc.AddAddress(r.Context(), middleware.UserIDFromContext(r.Context()), body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Address added successfully", address)
	}
}

func UpdateAddress(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			usersUnavailable(w, r, logg)
			return
		}
		addressID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body AddressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		address, err := svc.UpdateAddress(r.Context(), middleware.UserIDFromContext(r.Context()), addressID, body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Address updated successfully", address)
	}
}

func DeleteAddress(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			usersUnavailable(w, r, logg)
			return
		}
		addressID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteAddress(r.Context(), middleware.UserIDFromContext(r.Context()), addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Address deleted successfully", nil)
	}
}
