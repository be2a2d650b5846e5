package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// Wallet is a user's stored-value balance.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  enums.Currency  `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID              uuid.UUID               `json:"id"`
	WalletID        uuid.UUID               `json:"walletId"`
	UserID          uuid.UUID               `json:"userId"`
	Type            enums.TransactionType   `json:"type"`
	Amount          decimal.Decimal         `json:"amount"`
	PreviousBalance decimal.Decimal         `json:"previousBalance"`
	CurrentBalance  decimal.Decimal         `json:"currentBalance"`
	Method          string                  `json:"method,omitempty"`
	Description     string                  `json:"description"`
	Reference       *string                 `json:"reference,omitempty"`
	OrderID         *uuid.UUID              `json:"orderId,omitempty"`
	Status          enums.TransactionStatus `json:"status"`
	CreatedAt       time.Time               `json:"createdAt"`
}
