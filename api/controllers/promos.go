package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/api/middleware"
	"github.com/jebdekho/jebdekho-backend/api/responses"
	"github.com/jebdekho/jebdekho-backend/api/validators"
	"github.com/jebdekho/jebdekho-backend/internal/promo"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

type ValidatePromoRequest struct {
	Code        string            `json:"code" validate:"required,max=32"`
	OrderValue  decimal.Decimal   `json:"orderValue"`
	ServiceType enums.ServiceType `json:"serviceType" validate:"required,oneof=TRANSPORT FOOD MART"`
}

type CreatePromoRequest struct {
	Code            string              `json:"code" validate:"required,min=3,max=32"`
	Description     string              `json:"description" validate:"max=255"`
	Type            enums.PromoType     `json:"type" validate:"required"`
	Value           decimal.Decimal     `json:"value"`
	MinOrderValue   decimal.Decimal     `json:"minOrderValue"`
	MaxDiscount     *decimal.Decimal    `json:"maxDiscount"`
	ValidFrom       *time.Time          `json:"validFrom"`
	ValidUntil      time.Time           `json:"validUntil" validate:"required"`
	UsageLimit      int                 `json:"usageLimit" validate:"required,min=1"`
	IsFirstTimeOnly bool                `json:"isFirstTimeOnly"`
	ServiceTypes    []enums.ServiceType `json:"serviceTypes" validate:"required,min=1"`
}

type UpdatePromoRequest struct {
	Description   *string             `json:"description" validate:"omitempty,max=255"`
	Value         *decimal.Decimal    `json:"value"`
	MinOrderValue *decimal.Decimal    `json:"minOrderValue"`
	MaxDiscount   *decimal.Decimal    `json:"maxDiscount"`
	ValidUntil    *time.Time          `json:"validUntil"`
	UsageLimit    *int                `json:"usageLimit" validate:"omitempty,min=1"`
	IsActive      *bool               `json:"isActive"`
	ServiceTypes  []enums.ServiceType `json:"serviceTypes"`
}

func promoUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo service unavailable"))
}

// ValidatePromo is a dry run; it never consumes a usage.
func ValidatePromo(svc promo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			promoUnavailable(w, r, logg)
			return
		}

		var body ValidatePromoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.OrderValue.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "orderValue cannot be negative"))
			return
		}

		validation, err := svc.Validate(r.Context(), promo.ValidateInput{
			Code:        body.Code,
			UserID:      middleware.UserIDFromContext(r.Context()),
			OrderValue:  body.OrderValue,
			ServiceType: body.ServiceType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, validation)
	}
}

func MyPromos(svc promo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			promoUnavailable(w, r, logg)
			return
		}

		promos, err := svc.UserPromos(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, promos)
	}
}

func CreatePromo(svc promo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			promoUnavailable(w, r, logg)
			return
		}

		var body CreatePromoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		validFrom := time.Now().UTC()
		if body.ValidFrom != nil {
			validFrom = *body.ValidFrom
		}

		created, err := svc.Create(r.Context(), promo.CreateInput{
			Code:            body.Code,
			Description:     validators.SanitizeString(body.Description, 255),
			Type:            body.Type,
			Value:           body.Value,
			MinOrderValue:   body.MinOrderValue,
			MaxDiscount:     body.MaxDiscount,
			ValidFrom:       validFrom,
			ValidUntil:      body.ValidUntil,
			UsageLimit:      body.UsageLimit,
			IsFirstTimeOnly: body.IsFirstTimeOnly,
			ServiceTypes:    body.ServiceTypes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Promo code created", created)
	}
}

func UpdatePromo(svc promo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			promoUnavailable(w, r, logg)
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		var body UpdatePromoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), code, promo.UpdateInput{
			Description:   body.Description,
			Value:         body.Value,
			MinOrderValue: body.MinOrderValue,
			MaxDiscount:   body.MaxDiscount,
			ValidUntil:    body.ValidUntil,
			UsageLimit:    body.UsageLimit,
			IsActive:      body.IsActive,
			ServiceTypes:  body.ServiceTypes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Promo code updated", updated)
	}
}

// DeletePromo deactivates the code; usage history is kept.
func DeletePromo(svc promo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			promoUnavailable(w, r, logg)
			return
		}

		if err := svc.Deactivate(r.Context(), strings.TrimSpace(chi.URLParam(r, "code"))); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Promo code deactivated", nil)
	}
}
