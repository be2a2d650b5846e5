package checkout

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/internal/notifications"
	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/promo"
	"github.com/jebdekho/jebdekho-backend/internal/wallet"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// charges is the priced breakdown of a basket before it becomes an order.
type charges struct {
	subtotal    decimal.Decimal
	deliveryFee decimal.Decimal
	taxes       decimal.Decimal
	discount    decimal.Decimal
	promoID     uuid.UUID
	promoCode   *string
}

// taxOn applies the configured percentage, rounded to whole rupees.
func (s *service) taxOn(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.pricing.TaxRatePercent).Div(hundred).Round(0)
}

// applyPromo validates code against the basket. A FREE_DELIVERY promo waives
// the delivery fee; the usage slot is consumed only after the order is stored.
// The returned release must run once placement finishes: it holds the
// customer's claim on the code so a concurrent checkout cannot reuse the same
// remaining slot.
func (s *service) applyPromo(ctx context.Context, c *charges, code string, customerID uuid.UUID, serviceType enums.ServiceType) (func(), error) {
	if strings.TrimSpace(code) == "" {
		return func() {}, nil
	}
	release := s.lockPromo(customerID, promo.NormalizeCode(code))
	v, err := s.Promos.Validate(ctx, promo.ValidateInput{
		Code:        code,
		UserID:      customerID,
		OrderValue:  c.subtotal,
		ServiceType: serviceType,
	})
	if err != nil {
		release()
		return func() {}, err
	}
	c.discount = v.Discount
	if v.FreeDelivery {
		c.deliveryFee = decimal.Zero
	}
	c.promoID = v.PromoID
	normalized := v.Code
	c.promoCode = &normalized
	return release, nil
}

func (s *service) lockPromo(customerID uuid.UUID, code string) func() {
	mu, _ := s.promoLocks.LoadOrStore(customerID.String()+":"+code, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func validPaymentMethod(method enums.PaymentMethod) error {
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	return nil
}

// settle collects payment for a new order. WALLET debits immediately and a
// declined debit aborts placement; CASH stays PENDING until delivery and
// gateway methods wait in PROCESSING.
func (s *service) settle(ctx context.Context, order *models.Order) error {
	switch order.PaymentMethod {
	case enums.PaymentMethodCash:
		order.PaymentStatus = enums.PaymentStatusPending
	case enums.PaymentMethodWallet:
		if order.FinalAmount.IsZero() {
			order.PaymentStatus = enums.PaymentStatusSuccess
			return nil
		}
		res, err := s.Wallet.ProcessPayment(ctx, order.CustomerID, order.FinalAmount, order.ID)
		if err != nil {
			return err
		}
		if !res.Success {
			return pkgerrors.New(pkgerrors.CodePaymentDeclined, "Payment declined: "+res.Error).
				WithDetails(map[string]any{"reason": res.Code})
		}
		order.PaymentStatus = enums.PaymentStatusSuccess
		order.PaymentTransactionID = res.TransactionID
	default:
		order.PaymentStatus = enums.PaymentStatusProcessing
	}
	return nil
}

// place prices, settles and stores order, then consumes the promo. A wallet
// debit is reversed when the order cannot be stored.
func (s *service) place(ctx context.Context, order models.Order, c charges, actor orders.Actor) (models.Order, error) {
	order.ID = uuid.New()
	order.CustomerID = actor.ID
	order.PromoCode = c.promoCode
	order.SetAmounts(c.subtotal, c.deliveryFee, c.taxes, c.discount)

	if err := s.settle(ctx, &order); err != nil {
		return models.Order{}, err
	}
	created, err := s.Orders.Create(ctx, order, actor)
	if err != nil {
		if order.PaymentTransactionID != nil {
			s.reverse(ctx, order, "order could not be placed")
		}
		return models.Order{}, err
	}

	if c.promoID != uuid.Nil {
		if err := s.Promos.Apply(ctx, actor.ID, c.promoID); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"order_id": created.ID.String(),
				"promo_id": c.promoID.String(),
				"error":    err.Error(),
			}), "checkout.promo_apply_failed")
		}
	}
	return created, nil
}

func (s *service) reverse(ctx context.Context, order models.Order, reason string) {
	if _, err := s.Wallet.Refund(ctx, wallet.RefundInput{
		UserID:  order.CustomerID,
		Amount:  order.FinalAmount,
		OrderID: order.ID,
		Reason:  reason,
	}); err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "checkout.payment_reversal_failed", err)
	}
}

// notifyVendor tells the vendor about a new order. The order stands even when
// the notification cannot be stored.
func (s *service) notifyVendor(ctx context.Context, order models.Order) {
	if order.VendorID == nil {
		return
	}
	_, err := s.Notifications.Send(ctx, notifications.SendInput{
		UserID:  *order.VendorID,
		Title:   "New Order Received",
		Message: "You have a new order #" + order.OrderNumber,
		Type:    enums.NotificationTypeOrderUpdate,
		Data:    map[string]any{"orderId": order.ID, "orderNumber": order.OrderNumber},
	})
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"error":    err.Error(),
		}), "checkout.vendor_notify_failed")
	}
}
