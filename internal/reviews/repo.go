package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/store"
)

var (
	ErrNotFound        = errors.New("review not found")
	ErrAlreadyReviewed = errors.New("order already reviewed")
)

// Repository persists vendor reviews. At most one review exists per order.
type Repository interface {
	Create(ctx context.Context, review models.Review) error
	Get(ctx context.Context, id uuid.UUID) (models.Review, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*models.Review) error) (models.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ForVendor returns the vendor's reviews newest first.
	ForVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Review, error)
}

type memoryRepository struct {
	reviews *store.Table[models.Review]
}

func NewMemoryRepository(reviews *store.Table[models.Review]) Repository {
	if reviews == nil {
		reviews = store.NewTable[models.Review]()
	}
	return &memoryRepository{reviews: reviews}
}

func (r *memoryRepository) Create(_ context.Context, review models.Review) error {
	if _, dup := r.reviews.Find(func(existing models.Review) bool { return existing.OrderID == review.OrderID }); dup {
		return ErrAlreadyReviewed
	}
	if !r.reviews.Insert(review.ID, review) {
		return errors.New("review id already exists")
	}
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id uuid.UUID) (models.Review, error) {
	review, ok := r.reviews.Get(id)
	if !ok {
		return models.Review{}, ErrNotFound
	}
	return review, nil
}

func (r *memoryRepository) Update(_ context.Context, id uuid.UUID, fn func(*models.Review) error) (models.Review, error) {
	review, err := r.reviews.Update(id, fn)
	if errors.Is(err, store.ErrNotFound) {
		return models.Review{}, ErrNotFound
	}
	return review, err
}

func (r *memoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	if !r.reviews.Delete(id) {
		return ErrNotFound
	}
	return nil
}

func (r *memoryRepository) ForVendor(_ context.Context, vendorID uuid.UUID) ([]models.Review, error) {
	return r.reviews.Filter(
		func(rv models.Review) bool { return rv.VendorID == vendorID },
		func(a, b models.Review) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}
