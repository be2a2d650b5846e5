package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

type CartCheckoutInput struct {
	DeliveryAddress *models.Address
	PaymentMethod   enums.PaymentMethod
	PromoCode       string
}

// CheckoutCart turns the caller's cart into a MART order for the vendor of
// the first line and empties the cart.
func (s *service) CheckoutCart(ctx context.Context, actor orders.Actor, input CartCheckoutInput) (models.Order, error) {
	if err := validPaymentMethod(input.PaymentMethod); err != nil {
		return models.Order{}, err
	}
	if input.DeliveryAddress == nil {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	basket, err := s.Carts.Get(ctx, actor.ID)
	if err != nil {
		return models.Order{}, err
	}
	if len(basket.Items) == 0 {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "Cart is empty")
	}
	if basket.Total.LessThan(s.pricing.MartMinimumOrder) {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "Minimum order value is ₹"+s.pricing.MartMinimumOrder.String())
	}

	lines := make([]models.OrderItem, 0, len(basket.Items))
	for _, item := range basket.Items {
		lines = append(lines, models.OrderItem{
			ItemID:   item.ProductID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Total:    item.LineTotal(),
		})
	}

	c := charges{subtotal: basket.Total, deliveryFee: s.pricing.DeliveryFee, taxes: s.taxOn(basket.Total), discount: decimal.Zero}
	release, err := s.applyPromo(ctx, &c, input.PromoCode, actor.ID, enums.ServiceTypeMart)
	if err != nil {
		return models.Order{}, err
	}
	defer release()

	vendorID := basket.Items[0].VendorID
	addr := *input.DeliveryAddress
	created, err := s.place(ctx, models.Order{
		VendorID:        &vendorID,
		ServiceType:     enums.ServiceTypeMart,
		Status:          enums.OrderStatusPending,
		Items:           lines,
		PaymentMethod:   input.PaymentMethod,
		DeliveryAddress: &addr,
	}, c, actor)
	if err != nil {
		return models.Order{}, err
	}

	if err := s.Carts.Clear(ctx, actor.ID); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_id": created.ID.String(),
			"error":    err.Error(),
		}), "checkout.cart_clear_failed")
	}
	s.notifyVendor(ctx, created)
	return created, nil
}
