package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

// OrderCounter reports how many orders a customer has placed. It backs the
// first-time-only check.
type OrderCounter interface {
	CountCustomerOrders(ctx context.Context, customerID uuid.UUID) (int, error)
}

// Service evaluates and manages promo codes. Validate never consumes a usage
// slot; only Apply does.
type Service interface {
	Validate(ctx context.Context, input ValidateInput) (Validation, error)
	Apply(ctx context.Context, userID, promoID uuid.UUID) error
	UserPromos(ctx context.Context, userID uuid.UUID) ([]UserPromo, error)
	Create(ctx context.Context, input CreateInput) (models.PromoCode, error)
	Update(ctx context.Context, code string, input UpdateInput) (models.PromoCode, error)
	Deactivate(ctx context.Context, code string) error
}

type ValidateInput struct {
	Code        string
	UserID      uuid.UUID
	OrderValue  decimal.Decimal
	ServiceType enums.ServiceType
}

// Validation is an eligible promo and the discount it grants.
type Validation struct {
	PromoID      uuid.UUID       `json:"promoId"`
	Code         string          `json:"code"`
	Discount     decimal.Decimal `json:"discount"`
	FreeDelivery bool            `json:"freeDelivery"`
	Description  string          `json:"description"`
}

// UserPromo is an active promo annotated with the caller's remaining uses.
type UserPromo struct {
	models.PromoCode
	RemainingUsage int  `json:"remainingUsage"`
	CanUse         bool `json:"canUse"`
}

type CreateInput struct {
	Code            string
	Description     string
	Type            enums.PromoType
	Value           decimal.Decimal
	MinOrderValue   decimal.Decimal
	MaxDiscount     *decimal.Decimal
	ValidFrom       time.Time
	ValidUntil      time.Time
	UsageLimit      int
	IsFirstTimeOnly bool
	ServiceTypes    []enums.ServiceType
}

// UpdateInput carries the optional fields an admin may change.
type UpdateInput struct {
	Description   *string
	Value         *decimal.Decimal
	MinOrderValue *decimal.Decimal
	MaxDiscount   *decimal.Decimal
	ValidUntil    *time.Time
	UsageLimit    *int
	IsActive      *bool
	ServiceTypes  []enums.ServiceType
}

type service struct {
	repo   Repository
	orders OrderCounter
	now    func() time.Time
}

func NewService(repo Repository, orders OrderCounter, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promo repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order counter required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, orders: orders, now: now}, nil
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Validate(ctx context.Context, input ValidateInput) (Validation, error) {
	promo, err := s.repo.FindByCode(ctx, NormalizeCode(input.Code))
	if err != nil {
		return Validation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}
	if promo == nil {
		return Validation{}, pkgerrors.New(pkgerrors.CodeInvalidPromoCode, "Invalid promo code")
	}
	if !promo.IsActive {
		return Validation{}, pkgerrors.New(pkgerrors.CodePromoInactive, "Promo code is not active")
	}
	now := s.now()
	if now.Before(promo.ValidFrom) || now.After(promo.ValidUntil) {
		return Validation{}, pkgerrors.New(pkgerrors.CodePromoExpired, "Promo code has expired")
	}
	if !promo.AppliesTo(input.ServiceType) {
		return Validation{}, pkgerrors.New(pkgerrors.CodePromoWrongService, "Promo code not valid for this service")
	}
	if input.OrderValue.LessThan(promo.MinOrderValue) {
		return Validation{}, pkgerrors.New(pkgerrors.CodePromoBelowMinimum,
			fmt.Sprintf("Minimum order value should be ₹%s", promo.MinOrderValue.String())).
			WithDetails(map[string]any{"minOrderValue": promo.MinOrderValue})
	}

	used, err := s.repo.CountUsage(ctx, input.UserID, promo.ID)
	if err != nil {
		return Validation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promo usage")
	}
	if used >= promo.UsageLimit {
		return Validation{}, pkgerrors.New(pkgerrors.CodePromoUsageExceeded, "Promo code usage limit exceeded")
	}

	if promo.IsFirstTimeOnly {
		placed, err := s.orders.CountCustomerOrders(ctx, input.UserID)
		if err != nil {
			return Validation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customer orders")
		}
		if placed > 0 {
			return Validation{}, pkgerrors.New(pkgerrors.CodePromoFirstTimeOnly, "Promo code is only for first-time users")
		}
	}

	out := Validation{
		PromoID:     promo.ID,
		Code:        promo.Code,
		Discount:    decimal.Zero,
		Description: promo.Description,
	}
	switch promo.Type {
	case enums.PromoTypePercentage:
		out.Discount = input.OrderValue.Mul(promo.Value).Div(decimal.NewFromInt(100)).Round(0)
		if promo.MaxDiscount != nil && promo.MaxDiscount.IsPositive() && out.Discount.GreaterThan(*promo.MaxDiscount) {
			out.Discount = *promo.MaxDiscount
		}
	case enums.PromoTypeFixedAmount:
		out.Discount = promo.Value
	case enums.PromoTypeFreeDelivery:
		out.FreeDelivery = true
	}
	return out, nil
}

func (s *service) Apply(ctx context.Context, userID, promoID uuid.UUID) error {
	if userID == uuid.Nil || promoID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user and promo are required")
	}
	if err := s.repo.AppendUsage(ctx, models.PromoUsage{UserID: userID, PromoID: promoID, UsedAt: s.now().UTC()}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record promo usage")
	}
	return nil
}

func (s *service) UserPromos(ctx context.Context, userID uuid.UUID) ([]UserPromo, error) {
	promos, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promo codes")
	}
	out := make([]UserPromo, 0, len(promos))
	for _, p := range promos {
		if !p.IsActive {
			continue
		}
		used, err := s.repo.CountUsage(ctx, userID, p.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promo usage")
		}
		out = append(out, UserPromo{
			PromoCode:      p,
			RemainingUsage: max(p.UsageLimit-used, 0),
			CanUse:         used < p.UsageLimit,
		})
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (models.PromoCode, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return models.PromoCode{}, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if !input.Type.IsValid() {
		return models.PromoCode{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid promo type")
	}
	if input.Value.IsNegative() || input.MinOrderValue.IsNegative() {
		return models.PromoCode{}, pkgerrors.New(pkgerrors.CodeValidation, "promo amounts cannot be negative")
	}
	if input.Type == enums.PromoTypePercentage && input.Value.GreaterThan(decimal.NewFromInt(100)) {
		return models.PromoCode{}, pkgerrors.New(pkgerrors.CodeValidation, "percentage cannot exceed 100")
	}
	if !input.ValidUntil.After(input.ValidFrom) {
		return models.PromoCode{}, pkgerrors.New(pkgerrors.CodeValidation, "validUntil must be after validFrom")
	}
	if input.UsageLimit <= 0 {
		return models.PromoCode{}, pkgerrors.New(pkgerrors.CodeValidation, "usageLimit must be positive")
	}
	if len(input.ServiceTypes) == 0 {
		return models.PromoCode{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one service type is required")
	}
	for _, st := range input.ServiceTypes {
		if !st.IsValid() {
			return models.PromoCode{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid service type %q", st))
		}
	}

	now := s.now().UTC()
	promo := models.PromoCode{
		ID:              uuid.New(),
		Code:            code,
		Description:     strings.TrimSpace(input.Description),
		Type:            input.Type,
		Value:           input.Value,
		MinOrderValue:   input.MinOrderValue,
		MaxDiscount:     input.MaxDiscount,
		ValidFrom:       input.ValidFrom,
		ValidUntil:      input.ValidUntil,
		UsageLimit:      input.UsageLimit,
		IsFirstTimeOnly: input.IsFirstTimeOnly,
		ServiceTypes:    input.ServiceTypes,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, promo); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return models.PromoCode{}, pkgerrors.New(pkgerrors.CodeConflict, "Promo code already exists")
		}
		return models.PromoCode{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create promo code")
	}
	return promo, nil
}

func (s *service) Update(ctx context.Context, code string, input UpdateInput) (models.PromoCode, error) {
	updated, err := s.repo.Update(ctx, NormalizeCode(code), func(p *models.PromoCode) error {
		if input.Description != nil {
			p.Description = strings.TrimSpace(*input.Description)
		}
		if input.Value != nil {
			if input.Value.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "value cannot be negative")
			}
			p.Value = *input.Value
		}
		if input.MinOrderValue != nil {
			p.MinOrderValue = *input.MinOrderValue
		}
		if input.MaxDiscount != nil {
			p.MaxDiscount = input.MaxDiscount
		}
		if input.ValidUntil != nil {
			if !input.ValidUntil.After(p.ValidFrom) {
				return pkgerrors.New(pkgerrors.CodeValidation, "validUntil must be after validFrom")
			}
			p.ValidUntil = *input.ValidUntil
		}
		if input.UsageLimit != nil {
			if *input.UsageLimit <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "usageLimit must be positive")
			}
			p.UsageLimit = *input.UsageLimit
		}
		if input.IsActive != nil {
			p.IsActive = *input.IsActive
		}
		if len(input.ServiceTypes) > 0 {
			p.ServiceTypes = input.ServiceTypes
		}
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.PromoCode{}, pkgerrors.New(pkgerrors.CodeNotFound, "Promo code not found")
		}
		if pkgerrors.As(err) != nil {
			return models.PromoCode{}, err
		}
		return models.PromoCode{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update promo code")
	}
	return updated, nil
}

func (s *service) Deactivate(ctx context.Context, code string) error {
	inactive := false
	_, err := s.Update(ctx, code, UpdateInput{IsActive: &inactive})
	return err
}
