package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// PromoCode is a discount rule.
type PromoCode struct {
	ID              uuid.UUID           `json:"id"`
	Code            string              `json:"code"`
	Description     string              `json:"description"`
	Type            enums.PromoType     `json:"type"`
	Value           decimal.Decimal     `json:"value"`
	MinOrderValue   decimal.Decimal     `json:"minOrderValue"`
	MaxDiscount     *decimal.Decimal    `json:"maxDiscount,omitempty"`
	ValidFrom       time.Time           `json:"validFrom"`
	ValidUntil      time.Time           `json:"validUntil"`
	UsageLimit      int                 `json:"usageLimit"`
	IsFirstTimeOnly bool                `json:"isFirstTimeOnly"`
	ServiceTypes    []enums.ServiceType `json:"serviceTypes"`
	IsActive        bool                `json:"isActive"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// AppliesTo reports whether the promo covers the service type.
func (p PromoCode) AppliesTo(service enums.ServiceType) bool {
	return slices.Contains(p.ServiceTypes, service)
}

// PromoUsage is one consumed usage slot.
type PromoUsage struct {
	UserID  uuid.UUID `json:"userId"`
	PromoID uuid.UUID `json:"promoId"`
	UsedAt  time.Time `json:"usedAt"`
}
