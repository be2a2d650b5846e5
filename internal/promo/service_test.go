package promo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

type stubOrders struct {
	counts map[uuid.UUID]int
}

func (s stubOrders) CountCustomerOrders(_ context.Context, id uuid.UUID) (int, error) {
	return s.counts[id], nil
}

var seededAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newSeededService(t *testing.T, orders stubOrders, now time.Time) Service {
	t.Helper()
	if orders.counts == nil {
		orders.counts = map[uuid.UUID]int{}
	}
	svc, err := NewService(NewMemoryRepository(nil), orders, func() time.Time { return now })
	require.NoError(t, err)
	created, err := SeedDefaults(context.Background(), svc, seededAt)
	require.NoError(t, err)
	require.Equal(t, 3, created)
	return svc
}

func TestValidateWelcomeCapsPercentage(t *testing.T) {
	svc := newSeededService(t, stubOrders{}, seededAt.Add(time.Hour))
	ctx := context.Background()
	user := uuid.New()

	v, err := svc.Validate(ctx, ValidateInput{Code: "welcome50", UserID: user, OrderValue: decimal.NewFromInt(600), ServiceType: enums.ServiceTypeFood})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME50", v.Code)
	assert.True(t, v.Discount.Equal(decimal.NewFromInt(200)), "discount %s", v.Discount)
	assert.False(t, v.FreeDelivery)

	v, err = svc.Validate(ctx, ValidateInput{Code: "WELCOME50", UserID: user, OrderValue: decimal.NewFromInt(250), ServiceType: enums.ServiceTypeMart})
	require.NoError(t, err)
	assert.True(t, v.Discount.Equal(decimal.NewFromInt(125)))

	require.NoError(t, svc.Apply(ctx, user, v.PromoID))
	_, err = svc.Validate(ctx, ValidateInput{Code: "WELCOME50", UserID: user, OrderValue: decimal.NewFromInt(600), ServiceType: enums.ServiceTypeFood})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePromoUsageExceeded))
	assert.Equal(t, "Promo code usage limit exceeded", pkgerrors.As(err).Message())
}

func TestValidateCheckOrder(t *testing.T) {
	returning := uuid.New()
	svc := newSeededService(t, stubOrders{counts: map[uuid.UUID]int{returning: 2}}, seededAt.Add(time.Hour))
	ctx := context.Background()

	inactive := false
	_, err := svc.Create(ctx, CreateInput{
		Code: "OLD10", Description: "old", Type: enums.PromoTypeFixedAmount, Value: decimal.NewFromInt(10),
		ValidFrom: seededAt.Add(-48 * time.Hour), ValidUntil: seededAt.Add(-24 * time.Hour),
		UsageLimit: 1, ServiceTypes: []enums.ServiceType{enums.ServiceTypeFood},
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{
		Code: "OFF10", Description: "off", Type: enums.PromoTypeFixedAmount, Value: decimal.NewFromInt(10),
		ValidFrom: seededAt, ValidUntil: seededAt.Add(24 * time.Hour),
		UsageLimit: 1, ServiceTypes: []enums.ServiceType{enums.ServiceTypeFood},
	})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "off10", UpdateInput{IsActive: &inactive})
	require.NoError(t, err)

	cases := []struct {
		name    string
		input   ValidateInput
		code    pkgerrors.Code
		message string
	}{
		{"unknown", ValidateInput{Code: "NOPE", OrderValue: decimal.NewFromInt(500), ServiceType: enums.ServiceTypeFood}, pkgerrors.CodeInvalidPromoCode, "Invalid promo code"},
		{"inactive", ValidateInput{Code: "OFF10", OrderValue: decimal.NewFromInt(500), ServiceType: enums.ServiceTypeFood}, pkgerrors.CodePromoInactive, "Promo code is not active"},
		{"expired", ValidateInput{Code: "OLD10", OrderValue: decimal.NewFromInt(500), ServiceType: enums.ServiceTypeFood}, pkgerrors.CodePromoExpired, "Promo code has expired"},
		{"wrong service", ValidateInput{Code: "RIDE100", OrderValue: decimal.NewFromInt(500), ServiceType: enums.ServiceTypeFood}, pkgerrors.CodePromoWrongService, "Promo code not valid for this service"},
		{"below minimum", ValidateInput{Code: "FREEDEL", OrderValue: decimal.NewFromInt(299), ServiceType: enums.ServiceTypeFood}, pkgerrors.CodePromoBelowMinimum, "Minimum order value should be ₹300"},
		{"first time", ValidateInput{Code: "WELCOME50", UserID: returning, OrderValue: decimal.NewFromInt(500), ServiceType: enums.ServiceTypeFood}, pkgerrors.CodePromoFirstTimeOnly, "Promo code is only for first-time users"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.input.UserID == uuid.Nil {
				tc.input.UserID = uuid.New()
			}
			_, err := svc.Validate(ctx, tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.HasCode(err, tc.code), "got %v", err)
			assert.Equal(t, tc.message, pkgerrors.As(err).Message())
		})
	}
}

func TestValidateExpiresAfterWindow(t *testing.T) {
	svc := newSeededService(t, stubOrders{}, seededAt.Add(8*24*time.Hour))
	_, err := svc.Validate(context.Background(), ValidateInput{Code: "FREEDEL", UserID: uuid.New(), OrderValue: decimal.NewFromInt(400), ServiceType: enums.ServiceTypeMart})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePromoExpired))
}

func TestValidateFixedAndFreeDelivery(t *testing.T) {
	svc := newSeededService(t, stubOrders{}, seededAt.Add(time.Hour))
	ctx := context.Background()

	v, err := svc.Validate(ctx, ValidateInput{Code: "RIDE100", UserID: uuid.New(), OrderValue: decimal.NewFromInt(250), ServiceType: enums.ServiceTypeTransport})
	require.NoError(t, err)
	assert.True(t, v.Discount.Equal(decimal.NewFromInt(100)))

	v, err = svc.Validate(ctx, ValidateInput{Code: "FREEDEL", UserID: uuid.New(), OrderValue: decimal.NewFromInt(300), ServiceType: enums.ServiceTypeMart})
	require.NoError(t, err)
	assert.True(t, v.FreeDelivery)
	assert.True(t, v.Discount.IsZero())
}

func TestUserPromosReportsRemainingUsage(t *testing.T) {
	svc := newSeededService(t, stubOrders{}, seededAt.Add(time.Hour))
	ctx := context.Background()
	user := uuid.New()

	v, err := svc.Validate(ctx, ValidateInput{Code: "RIDE100", UserID: user, OrderValue: decimal.NewFromInt(250), ServiceType: enums.ServiceTypeTransport})
	require.NoError(t, err)
	require.NoError(t, svc.Apply(ctx, user, v.PromoID))
	require.NoError(t, svc.Deactivate(ctx, "freedel"))

	promos, err := svc.UserPromos(ctx, user)
	require.NoError(t, err)
	require.Len(t, promos, 2)
	byCode := map[string]UserPromo{}
	for _, p := range promos {
		byCode[p.Code] = p
	}
	assert.Equal(t, 2, byCode["RIDE100"].RemainingUsage)
	assert.True(t, byCode["RIDE100"].CanUse)
	assert.Equal(t, 1, byCode["WELCOME50"].RemainingUsage)
	_, hasFreeDel := byCode["FREEDEL"]
	assert.False(t, hasFreeDel)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := newSeededService(t, stubOrders{}, seededAt)
	in := DefaultPromos(seededAt)[0]
	in.Code = " welcome50 "
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	again, err := SeedDefaults(context.Background(), svc, seededAt)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestCreateValidatesInput(t *testing.T) {
	svc, err := NewService(NewMemoryRepository(nil), stubOrders{}, nil)
	require.NoError(t, err)
	base := DefaultPromos(seededAt)[1]

	bad := base
	bad.Code = ""
	_, err = svc.Create(context.Background(), bad)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	bad = base
	bad.ValidUntil = bad.ValidFrom
	_, err = svc.Create(context.Background(), bad)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	bad = base
	bad.Type = enums.PromoTypePercentage
	bad.Value = decimal.NewFromInt(150)
	_, err = svc.Create(context.Background(), bad)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestUpdateUnknownCode(t *testing.T) {
	svc, err := NewService(NewMemoryRepository(nil), stubOrders{}, nil)
	require.NoError(t, err)
	err = svc.Deactivate(context.Background(), "GHOST")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
