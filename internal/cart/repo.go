package cart

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/store"
)

// Repository keeps one cart per customer.
type Repository interface {
	// Get returns nil when the customer has no cart.
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Save(ctx context.Context, cart models.Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
	DeleteIdleSince(ctx context.Context, cutoff time.Time) (int, error)
}

type memoryRepository struct {
	carts *store.Table[models.Cart]
}

func NewMemoryRepository(carts *store.Table[models.Cart]) Repository {
	if carts == nil {
		carts = store.NewTable[models.Cart]()
	}
	return &memoryRepository{carts: carts}
}

func (r *memoryRepository) Get(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	c, ok := r.carts.Get(userID)
	if !ok {
		return nil, nil
	}
	c.Items = append([]models.CartItem(nil), c.Items...)
	return &c, nil
}

func (r *memoryRepository) Save(_ context.Context, cart models.Cart) error {
	cart.Items = append([]models.CartItem(nil), cart.Items...)
	r.carts.Set(cart.UserID, cart)
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, userID uuid.UUID) error {
	r.carts.Delete(userID)
	return nil
}

func (r *memoryRepository) DeleteIdleSince(_ context.Context, cutoff time.Time) (int, error) {
	idle := r.carts.Filter(func(c models.Cart) bool { return c.UpdatedAt.Before(cutoff) }, nil)
	deleted := 0
	for _, c := range idle {
		if r.carts.Delete(c.UserID) {
			deleted++
		}
	}
	return deleted, nil
}
