package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

type LineInput struct {
	ID       uuid.UUID
	Quantity int
}

type FoodOrderInput struct {
	VendorID            uuid.UUID
	Items               []LineInput
	DeliveryAddress     *models.Address
	PaymentMethod       enums.PaymentMethod
	PromoCode           string
	SpecialInstructions string
}

func (s *service) PlaceFoodOrder(ctx context.Context, actor orders.Actor, input FoodOrderInput) (models.Order, error) {
	if len(input.Items) == 0 {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if err := validPaymentMethod(input.PaymentMethod); err != nil {
		return models.Order{}, err
	}
	if input.DeliveryAddress == nil {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	vendor, err := s.Users.Vendor(ctx, input.VendorID, enums.ServiceTypeFood)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return models.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "Restaurant not found")
		}
		return models.Order{}, err
	}
	if !vendor.Vendor.IsOpen {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "Restaurant is currently closed")
	}

	lines := make([]models.OrderItem, 0, len(input.Items))
	subtotal := decimal.Zero
	for _, line := range input.Items {
		if line.Quantity < 1 {
			return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		item, err := s.Menu.MenuItem(ctx, line.ID)
		if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return models.Order{}, err
		}
		if err != nil || item.VendorID != vendor.ID {
			return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Invalid menu item: %s", line.ID))
		}
		if !item.IsAvailable {
			return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, item.Name+" is not available")
		}
		total := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(total)
		lines = append(lines, models.OrderItem{ItemID: item.ID, Name: item.Name, Price: item.Price, Quantity: line.Quantity, Total: total})
	}
	if subtotal.LessThan(s.pricing.FoodMinimumOrder) {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "Minimum order value is ₹"+s.pricing.FoodMinimumOrder.String())
	}

	c := charges{subtotal: subtotal, deliveryFee: s.pricing.DeliveryFee, taxes: s.taxOn(subtotal)}
	release, err := s.applyPromo(ctx, &c, input.PromoCode, actor.ID, enums.ServiceTypeFood)
	if err != nil {
		return models.Order{}, err
	}
	defer release()

	vendorID := vendor.ID
	addr := *input.DeliveryAddress
	order := models.Order{
		VendorID:        &vendorID,
		ServiceType:     enums.ServiceTypeFood,
		Status:          enums.OrderStatusPending,
		Items:           lines,
		PaymentMethod:   input.PaymentMethod,
		DeliveryAddress: &addr,
	}
	if note := strings.TrimSpace(input.SpecialInstructions); note != "" {
		order.SpecialInstructions = &note
	}
	created, err := s.place(ctx, order, c, actor)
	if err != nil {
		return models.Order{}, err
	}
	s.notifyVendor(ctx, created)
	return created, nil
}
