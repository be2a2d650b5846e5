package wallet

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/metrics"
)

const (
	DefaultHistoryLimit = 50

	methodRefund = "REFUND"
)

// Service is the wallet ledger. Every balance change appends exactly one
// transaction and the balance never goes negative.
type Service interface {
	Wallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error)
	Credit(ctx context.Context, input CreditInput) (Result, error)
	Debit(ctx context.Context, input DebitInput) (Result, error)
	Refund(ctx context.Context, input RefundInput) (Result, error)
	ProcessPayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID) (PaymentResult, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) (History, error)
	Stats(ctx context.Context, userID uuid.UUID) (Stats, error)
}

type CreditInput struct {
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Method    string
	Reference string
}

type DebitInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
	OrderID     *uuid.UUID
}

type RefundInput struct {
	UserID  uuid.UUID
	Amount  decimal.Decimal
	OrderID uuid.UUID
	Reason  string
}

// Result is the wallet after a mutation and the transaction it appended.
type Result struct {
	Wallet      models.Wallet      `json:"wallet"`
	Transaction models.Transaction `json:"transaction"`
}

// PaymentResult reports a wallet payment. A declined payment is a result, not
// an error.
type PaymentResult struct {
	Success          bool             `json:"success"`
	TransactionID    *uuid.UUID       `json:"transactionId,omitempty"`
	RemainingBalance *decimal.Decimal `json:"remainingBalance,omitempty"`
	Error            string           `json:"error,omitempty"`
	Code             pkgerrors.Code   `json:"-"`
}

type History struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
	HasMore      bool                 `json:"hasMore"`
}

type Stats struct {
	Balance          decimal.Decimal     `json:"balance"`
	TotalAdded       decimal.Decimal     `json:"totalAdded"`
	TotalSpent       decimal.Decimal     `json:"totalSpent"`
	TransactionCount int                 `json:"transactionCount"`
	LastTransaction  *models.Transaction `json:"lastTransaction"`
	WalletCreated    time.Time           `json:"walletCreated"`
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.BusinessMetrics
	now     func() time.Time

	// one mutex per user serializes read-balance, write-balance, append-log
	locks sync.Map
}

// Option customizes the service.
type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *metrics.BusinessMetrics) Option {
	return func(s *service) { s.metrics = m }
}

func NewService(repo Repository, logg *logger.Logger, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &service{repo: repo, logg: logg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) lock(userID uuid.UUID) func() {
	mu, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *service) Wallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	defer s.lock(userID)()
	return s.loadOrCreate(ctx, userID)
}

// loadOrCreate must be called with the user's lock held.
func (s *service) loadOrCreate(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	if userID == uuid.Nil {
		return models.Wallet{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	existing, err := s.repo.FindWallet(ctx, userID)
	if err != nil {
		return models.Wallet{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if existing != nil {
		return *existing, nil
	}

	now := s.now().UTC()
	w := models.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  enums.CurrencyINR,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.SaveWallet(ctx, w); err != nil {
		return models.Wallet{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return w, nil
}

func (s *service) Credit(ctx context.Context, input CreditInput) (Result, error) {
	method := strings.TrimSpace(input.Method)
	reference := input.Reference
	if reference == "" {
		reference = fmt.Sprintf("ADD_%d", s.now().UnixMilli())
	}
	res, err := s.apply(ctx, input.UserID, enums.TransactionTypeCredit, input.Amount, entry{
		method:      method,
		description: "Added to wallet via " + method,
		reference:   &reference,
	})
	s.metrics.RecordLedger("credit", err == nil)
	return res, err
}

func (s *service) Debit(ctx context.Context, input DebitInput) (Result, error) {
	res, err := s.apply(ctx, input.UserID, enums.TransactionTypeDebit, input.Amount, entry{
		description: input.Description,
		orderID:     input.OrderID,
	})
	s.metrics.RecordLedger("debit", err == nil)
	return res, err
}

func (s *service) Refund(ctx context.Context, input RefundInput) (Result, error) {
	reference := "REFUND_" + input.OrderID.String()
	orderID := input.OrderID
	res, err := s.apply(ctx, input.UserID, enums.TransactionTypeCredit, input.Amount, entry{
		method:      methodRefund,
		description: fmt.Sprintf("Refund for order %s: %s", input.OrderID, input.Reason),
		reference:   &reference,
		orderID:     &orderID,
	})
	s.metrics.RecordLedger("refund", err == nil)
	if err == nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id": input.OrderID.String(),
			"amount":   input.Amount.String(),
		}), "wallet.refund.applied")
	}
	return res, err
}

func (s *service) ProcessPayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID) (PaymentResult, error) {
	res, err := s.Debit(ctx, DebitInput{
		UserID:      userID,
		Amount:      amount,
		Description: fmt.Sprintf("Payment for order %s", orderID),
		OrderID:     &orderID,
	})
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && (typed.Code() == pkgerrors.CodeInsufficientBalance || typed.Code() == pkgerrors.CodeInvalidAmount) {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"order_id": orderID.String(),
				"reason":   typed.Code(),
			}), "wallet.debit.declined")
			return PaymentResult{Success: false, Error: typed.Message(), Code: typed.Code()}, nil
		}
		return PaymentResult{}, err
	}
	txID := res.Transaction.ID
	balance := res.Wallet.Balance
	return PaymentResult{Success: true, TransactionID: &txID, RemainingBalance: &balance}, nil
}

type entry struct {
	method      string
	description string
	reference   *string
	orderID     *uuid.UUID
}

func (s *service) apply(ctx context.Context, userID uuid.UUID, kind enums.TransactionType, amount decimal.Decimal, e entry) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, pkgerrors.New(pkgerrors.CodeInvalidAmount, "Invalid amount")
	}

	defer s.lock(userID)()

	w, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	previous := w.Balance
	var current decimal.Decimal
	switch kind {
	case enums.TransactionTypeCredit:
		current = previous.Add(amount)
	case enums.TransactionTypeDebit:
		if previous.LessThan(amount) {
			return Result{}, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "Insufficient wallet balance").
				WithDetails(map[string]any{"balance": previous, "requested": amount})
		}
		current = previous.Sub(amount)
	default:
		return Result{}, fmt.Errorf("unknown transaction type %q", kind)
	}

	now := s.now().UTC()
	txn := models.Transaction{
		ID:              uuid.New(),
		WalletID:        w.ID,
		UserID:          userID,
		Type:            kind,
		Amount:          amount,
		PreviousBalance: previous,
		CurrentBalance:  current,
		Method:          e.method,
		Description:     e.description,
		Reference:       e.reference,
		OrderID:         e.orderID,
		Status:          enums.TransactionStatusSuccess,
		CreatedAt:       now,
	}
	next := w
	next.Balance = current
	next.UpdatedAt = now
	if err := s.repo.Commit(ctx, next, txn); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit wallet transaction")
	}
	return Result{Wallet: next, Transaction: txn}, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit, offset int) (History, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	log, err := s.repo.ListTransactions(ctx, userID)
	if err != nil {
		return History{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	slices.Reverse(log)

	total := len(log)
	start := min(offset, total)
	end := min(offset+limit, total)
	page := make([]models.Transaction, 0, end-start)
	page = append(page, log[start:end]...)
	return History{Transactions: page, Total: total, HasMore: total > offset+limit}, nil
}

func (s *service) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	w, err := s.Wallet(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	log, err := s.repo.ListTransactions(ctx, userID)
	if err != nil {
		return Stats{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	stats := Stats{
		Balance:          w.Balance,
		TotalAdded:       decimal.Zero,
		TotalSpent:       decimal.Zero,
		TransactionCount: len(log),
		WalletCreated:    w.CreatedAt,
	}
	for _, txn := range log {
		switch txn.Type {
		case enums.TransactionTypeCredit:
			stats.TotalAdded = stats.TotalAdded.Add(txn.Amount)
		case enums.TransactionTypeDebit:
			stats.TotalSpent = stats.TotalSpent.Add(txn.Amount)
		}
	}
	if len(log) > 0 {
		last := log[len(log)-1]
		stats.LastTransaction = &last
	}
	return stats, nil
}
