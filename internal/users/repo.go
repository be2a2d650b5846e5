package users

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	"github.com/jebdekho/jebdekho-backend/pkg/store"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicatePhone = errors.New("phone already registered")
)

// Filter narrows a user listing. Zero fields match everything.
type Filter struct {
	Role         enums.Role
	Status       enums.UserStatus
	BusinessType enums.ServiceType
	Search       string
	OnlineOnly   bool
	VehicleType  enums.VehicleType
}

func (f Filter) matches(u models.User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	if f.BusinessType != "" && (u.Vendor == nil || u.Vendor.BusinessType != f.BusinessType) {
		return false
	}
	if f.OnlineOnly && (u.Driver == nil || !u.Driver.IsOnline) {
		return false
	}
	if f.VehicleType != "" && (u.Driver == nil || u.Driver.VehicleType != f.VehicleType) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		haystack := []string{u.FirstName, u.LastName, u.Email, u.Phone}
		if u.Vendor != nil {
			haystack = append(haystack, u.Vendor.BusinessName, u.Vendor.Description)
			haystack = append(haystack, u.Vendor.Cuisines...)
		}
		if !slices.ContainsFunc(haystack, func(s string) bool { return strings.Contains(strings.ToLower(s), q) }) {
			return false
		}
	}
	return true
}

// Repository persists users with unique email and phone.
type Repository interface {
	Create(ctx context.Context, user models.User) error
	Get(ctx context.Context, id uuid.UUID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*models.User) error) (models.User, error)
	// List returns matching users oldest first.
	List(ctx context.Context, filter Filter) ([]models.User, error)
}

type memoryRepository struct {
	users *store.Table[models.User]

	// guards the unique indexes; always taken before the table lock
	mu      sync.Mutex
	byEmail map[string]uuid.UUID
	byPhone map[string]uuid.UUID
}

func NewMemoryRepository(users *store.Table[models.User]) Repository {
	if users == nil {
		users = store.NewTable[models.User]()
	}
	r := &memoryRepository{
		users:   users,
		byEmail: make(map[string]uuid.UUID),
		byPhone: make(map[string]uuid.UUID),
	}
	for _, u := range users.Values() {
		r.byEmail[normalizeEmail(u.Email)] = u.ID
		if u.Phone != "" {
			r.byPhone[u.Phone] = u.ID
		}
	}
	return r
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *memoryRepository) Create(_ context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := normalizeEmail(user.Email)
	if _, ok := r.byEmail[email]; ok {
		return ErrDuplicateEmail
	}
	if _, ok := r.byPhone[user.Phone]; ok && user.Phone != "" {
		return ErrDuplicatePhone
	}
	if !r.users.Insert(user.ID, user) {
		return errors.New("user id already exists")
	}
	r.byEmail[email] = user.ID
	if user.Phone != "" {
		r.byPhone[user.Phone] = user.ID
	}
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id uuid.UUID) (models.User, error) {
	u, ok := r.users.Get(id)
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryRepository) lookup(index map[string]uuid.UUID, key string) (*models.User, error) {
	r.mu.Lock()
	id, ok := index[key]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	u, ok := r.users.Get(id)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.lookup(r.byEmail, normalizeEmail(email))
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	return r.lookup(r.byPhone, strings.TrimSpace(phone))
}

func (r *memoryRepository) Update(_ context.Context, id uuid.UUID, fn func(*models.User) error) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldPhone string
	updated, err := r.users.Update(id, func(u *models.User) error {
		oldPhone = u.Phone
		detach(u)
		if err := fn(u); err != nil {
			return err
		}
		if u.Phone != oldPhone && u.Phone != "" {
			if owner, taken := r.byPhone[u.Phone]; taken && owner != u.ID {
				return ErrDuplicatePhone
			}
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	if updated.Phone != oldPhone {
		delete(r.byPhone, oldPhone)
		if updated.Phone != "" {
			r.byPhone[updated.Phone] = updated.ID
		}
	}
	return updated, nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]models.User, error) {
	return r.users.Filter(filter.matches, func(a, b models.User) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	}), nil
}

// detach copies everything the stored row shares by reference so fn can
// mutate freely.
func detach(u *models.User) {
	if u.Vendor != nil {
		v := *u.Vendor
		v.Cuisines = slices.Clone(v.Cuisines)
		u.Vendor = &v
	}
	if u.Driver != nil {
		d := *u.Driver
		u.Driver = &d
	}
	u.Addresses = slices.Clone(u.Addresses)
}
