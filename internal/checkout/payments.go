package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/wallet"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

// CancelResult is the cancelled order and, when it was paid, the wallet
// refund that followed.
type CancelResult struct {
	Order  models.Order   `json:"order"`
	Refund *wallet.Result `json:"refund,omitempty"`
}

// PaymentOutcome is the paid order and the wallet debit behind it.
type PaymentOutcome struct {
	Order   models.Order         `json:"order"`
	Payment wallet.PaymentResult `json:"payment"`
}

// Cancel runs the order cancellation and, when the order moved to REFUNDED,
// credits its final amount back to the customer's wallet.
func (s *service) Cancel(ctx context.Context, input orders.CancelInput) (*CancelResult, error) {
	order, err := s.Orders.Cancel(ctx, input)
	if err != nil {
		return nil, err
	}
	result := &CancelResult{Order: order}
	if order.Status != enums.OrderStatusRefunded || !order.FinalAmount.IsPositive() {
		return result, nil
	}
	reason := input.Reason
	if reason == "" {
		reason = "order cancelled"
	}
	refund, err := s.Wallet.Refund(ctx, wallet.RefundInput{
		UserID:  order.CustomerID,
		Amount:  order.FinalAmount,
		OrderID: order.ID,
		Reason:  reason,
	})
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "checkout.refund_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund cancelled order")
	}
	result.Refund = &refund
	return result, nil
}

// PayOrder debits the customer's wallet for an unpaid order. A debit that
// loses the race to another payment is reversed.
func (s *service) PayOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*PaymentOutcome, error) {
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
	}
	if order.PaymentStatus == enums.PaymentStatusSuccess {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Order is already paid")
	}
	if order.Status.IsTerminal() && order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Order is no longer payable")
	}

	res, err := s.Wallet.ProcessPayment(ctx, actor.ID, order.FinalAmount, order.ID)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "Payment declined: "+res.Error).
			WithDetails(map[string]any{"reason": res.Code})
	}
	paid, err := s.Orders.MarkPaid(ctx, order.ID, *res.TransactionID)
	if err != nil {
		s.reverse(ctx, order, "duplicate payment")
		return nil, err
	}
	return &PaymentOutcome{Order: paid, Payment: res}, nil
}
