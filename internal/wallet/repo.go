package wallet

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/store"
)

// Repository persists wallets and their append-only transaction log.
type Repository interface {
	FindWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	SaveWallet(ctx context.Context, wallet models.Wallet) error
	// Commit stores the new balance and its ledger entry together. On error
	// neither is written.
	Commit(ctx context.Context, wallet models.Wallet, txn models.Transaction) error
	// ListTransactions returns the user's log oldest first.
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
}

type memoryRepository struct {
	wallets *store.Table[models.Wallet]

	mu  sync.RWMutex
	log map[uuid.UUID][]models.Transaction
}

// NewMemoryRepository keeps wallets keyed by user id in an injected table.
func NewMemoryRepository(wallets *store.Table[models.Wallet]) Repository {
	if wallets == nil {
		wallets = store.NewTable[models.Wallet]()
	}
	return &memoryRepository{wallets: wallets, log: make(map[uuid.UUID][]models.Transaction)}
}

func (r *memoryRepository) FindWallet(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	w, ok := r.wallets.Get(userID)
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *memoryRepository) SaveWallet(_ context.Context, wallet models.Wallet) error {
	r.wallets.Set(wallet.UserID, wallet)
	return nil
}

func (r *memoryRepository) Commit(_ context.Context, wallet models.Wallet, txn models.Transaction) error {
	if txn.UserID != wallet.UserID {
		return fmt.Errorf("transaction user %s does not own wallet %s", txn.UserID, wallet.UserID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets.Set(wallet.UserID, wallet)
	r.log[txn.UserID] = append(r.log[txn.UserID], txn)
	return nil
}

func (r *memoryRepository) ListTransactions(_ context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.log[userID]), nil
}
