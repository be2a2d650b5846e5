package promo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

// DefaultPromos are the launch codes, valid from now.
func DefaultPromos(now time.Time) []CreateInput {
	capped := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	day := 24 * time.Hour
	return []CreateInput{
		{
			Code:            "WELCOME50",
			Description:     "Get 50% off on your first order",
			Type:            enums.PromoTypePercentage,
			Value:           decimal.NewFromInt(50),
			MinOrderValue:   decimal.NewFromInt(100),
			MaxDiscount:     capped(200),
			ValidFrom:       now,
			ValidUntil:      now.Add(30 * day),
			UsageLimit:      1,
			IsFirstTimeOnly: true,
			ServiceTypes:    []enums.ServiceType{enums.ServiceTypeFood, enums.ServiceTypeMart},
		},
		{
			Code:          "RIDE100",
			Description:   "Flat ₹100 off on transport booking",
			Type:          enums.PromoTypeFixedAmount,
			Value:         decimal.NewFromInt(100),
			MinOrderValue: decimal.NewFromInt(200),
			MaxDiscount:   capped(100),
			ValidFrom:     now,
			ValidUntil:    now.Add(15 * day),
			UsageLimit:    3,
			ServiceTypes:  []enums.ServiceType{enums.ServiceTypeTransport},
		},
		{
			Code:          "FREEDEL",
			Description:   "Free delivery on orders above ₹300",
			Type:          enums.PromoTypeFreeDelivery,
			Value:         decimal.Zero,
			MinOrderValue: decimal.NewFromInt(300),
			MaxDiscount:   capped(50),
			ValidFrom:     now,
			ValidUntil:    now.Add(7 * day),
			UsageLimit:    5,
			ServiceTypes:  []enums.ServiceType{enums.ServiceTypeFood, enums.ServiceTypeMart},
		},
	}
}

// SeedDefaults creates the launch codes, skipping any that already exist.
func SeedDefaults(ctx context.Context, svc Service, now time.Time) (int, error) {
	created := 0
	for _, in := range DefaultPromos(now) {
		if _, err := svc.Create(ctx, in); err != nil {
			if isConflict(err) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

func isConflict(err error) bool {
	return errors.Is(err, ErrDuplicateCode) || pkgerrors.HasCode(err, pkgerrors.CodeConflict)
}
