package promo

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/store"
)

var (
	ErrNotFound      = errors.New("promo code not found")
	ErrDuplicateCode = errors.New("promo code already exists")
)

// Repository stores promo codes and the per-user usage log.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	List(ctx context.Context) ([]models.PromoCode, error)
	Create(ctx context.Context, promo models.PromoCode) error
	Update(ctx context.Context, code string, fn func(*models.PromoCode) error) (models.PromoCode, error)
	AppendUsage(ctx context.Context, usage models.PromoUsage) error
	CountUsage(ctx context.Context, userID, promoID uuid.UUID) (int, error)
}

type memoryRepository struct {
	promos *store.Table[models.PromoCode]

	mu     sync.Mutex
	byCode map[string]uuid.UUID
	usage  map[uuid.UUID][]models.PromoUsage
}

func NewMemoryRepository(promos *store.Table[models.PromoCode]) Repository {
	if promos == nil {
		promos = store.NewTable[models.PromoCode]()
	}
	r := &memoryRepository{
		promos: promos,
		byCode: make(map[string]uuid.UUID),
		usage:  make(map[uuid.UUID][]models.PromoUsage),
	}
	for _, p := range promos.Values() {
		r.byCode[p.Code] = p.ID
	}
	return r
}

func (r *memoryRepository) FindByCode(_ context.Context, code string) (*models.PromoCode, error) {
	r.mu.Lock()
	id, ok := r.byCode[code]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	p, ok := r.promos.Get(id)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memoryRepository) List(context.Context) ([]models.PromoCode, error) {
	return r.promos.Filter(nil, func(a, b models.PromoCode) bool { return a.Code < b.Code }), nil
}

func (r *memoryRepository) Create(_ context.Context, promo models.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCode[promo.Code]; exists {
		return ErrDuplicateCode
	}
	r.byCode[promo.Code] = promo.ID
	r.promos.Set(promo.ID, promo)
	return nil
}

func (r *memoryRepository) Update(_ context.Context, code string, fn func(*models.PromoCode) error) (models.PromoCode, error) {
	r.mu.Lock()
	id, ok := r.byCode[code]
	r.mu.Unlock()
	if !ok {
		return models.PromoCode{}, ErrNotFound
	}
	updated, err := r.promos.Update(id, fn)
	if errors.Is(err, store.ErrNotFound) {
		return models.PromoCode{}, ErrNotFound
	}
	return updated, err
}

func (r *memoryRepository) AppendUsage(_ context.Context, usage models.PromoUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage[usage.UserID] = append(r.usage[usage.UserID], usage)
	return nil
}

func (r *memoryRepository) CountUsage(_ context.Context, userID, promoID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.usage[userID] {
		if u.PromoID == promoID {
			count++
		}
	}
	return count, nil
}
