package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	"github.com/jebdekho/jebdekho-backend/pkg/store"
)

var ErrNotFound = errors.New("order not found")

// Filter narrows an order listing. Zero fields match everything.
type Filter struct {
	CustomerID        *uuid.UUID
	VendorID          *uuid.UUID
	DeliveryPartnerID *uuid.UUID
	ServiceType       enums.ServiceType
	Statuses          []enums.OrderStatus
	From              *time.Time
	To                *time.Time
}

func (f Filter) matches(o models.Order) bool {
	if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
		return false
	}
	if f.VendorID != nil && (o.VendorID == nil || *o.VendorID != *f.VendorID) {
		return false
	}
	if f.DeliveryPartnerID != nil && (o.DeliveryPartnerID == nil || *o.DeliveryPartnerID != *f.DeliveryPartnerID) {
		return false
	}
	if f.ServiceType != "" && o.ServiceType != f.ServiceType {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if o.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && o.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && o.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// Repository persists orders. Orders are never removed.
type Repository interface {
	Create(ctx context.Context, order models.Order) error
	Get(ctx context.Context, id uuid.UUID) (models.Order, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*models.Order) error) (models.Order, error)
	// List returns matching orders newest first.
	List(ctx context.Context, filter Filter) ([]models.Order, error)
	Count(ctx context.Context, filter Filter) (int, error)
}

type memoryRepository struct {
	orders *store.Table[models.Order]
}

func NewMemoryRepository(orders *store.Table[models.Order]) Repository {
	if orders == nil {
		orders = store.NewTable[models.Order]()
	}
	return &memoryRepository{orders: orders}
}

func (r *memoryRepository) Create(_ context.Context, order models.Order) error {
	if !r.orders.Insert(order.ID, order) {
		return errors.New("order id already exists")
	}
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id uuid.UUID) (models.Order, error) {
	order, ok := r.orders.Get(id)
	if !ok {
		return models.Order{}, ErrNotFound
	}
	return order, nil
}

func (r *memoryRepository) Update(_ context.Context, id uuid.UUID, fn func(*models.Order) error) (models.Order, error) {
	order, err := r.orders.Update(id, func(o *models.Order) error {
		// StatusHistory shares its backing array with the stored row.
		o.StatusHistory = append([]models.StatusChange(nil), o.StatusHistory...)
		return fn(o)
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, ErrNotFound
	}
	return order, err
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]models.Order, error) {
	return r.orders.Filter(filter.matches, newestFirst), nil
}

func (r *memoryRepository) Count(_ context.Context, filter Filter) (int, error) {
	return len(r.orders.Filter(filter.matches, nil)), nil
}

func newestFirst(a, b models.Order) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.OrderNumber > b.OrderNumber
	}
	return a.CreatedAt.After(b.CreatedAt)
}
