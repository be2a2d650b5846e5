package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/store"
)

var ErrNotFound = errors.New("catalog item not found")

// Repository stores menu items and mart products.
type Repository interface {
	CreateMenuItem(ctx context.Context, item models.MenuItem) error
	GetMenuItem(ctx context.Context, id uuid.UUID) (models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id uuid.UUID, fn func(*models.MenuItem) error) (models.MenuItem, error)
	VendorMenu(ctx context.Context, vendorID uuid.UUID) ([]models.MenuItem, error)

	CreateProduct(ctx context.Context, product models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, fn func(*models.Product) error) (models.Product, error)
	VendorProducts(ctx context.Context, vendorID uuid.UUID) ([]models.Product, error)
}

type memoryRepository struct {
	menu     *store.Table[models.MenuItem]
	products *store.Table[models.Product]
}

// NewMemoryRepository backs the catalog with in-process tables. Nil tables are
// allocated.
func NewMemoryRepository(menu *store.Table[models.MenuItem], products *store.Table[models.Product]) Repository {
	if menu == nil {
		menu = store.NewTable[models.MenuItem]()
	}
	if products == nil {
		products = store.NewTable[models.Product]()
	}
	return &memoryRepository{menu: menu, products: products}
}

func (r *memoryRepository) CreateMenuItem(_ context.Context, item models.MenuItem) error {
	if !r.menu.Insert(item.ID, item) {
		return errors.New("menu item id already exists")
	}
	return nil
}

func (r *memoryRepository) GetMenuItem(_ context.Context, id uuid.UUID) (models.MenuItem, error) {
	item, ok := r.menu.Get(id)
	if !ok {
		return models.MenuItem{}, ErrNotFound
	}
	return item, nil
}

func (r *memoryRepository) UpdateMenuItem(_ context.Context, id uuid.UUID, fn func(*models.MenuItem) error) (models.MenuItem, error) {
	item, err := r.menu.Update(id, fn)
	if errors.Is(err, store.ErrNotFound) {
		return models.MenuItem{}, ErrNotFound
	}
	return item, err
}

func (r *memoryRepository) VendorMenu(_ context.Context, vendorID uuid.UUID) ([]models.MenuItem, error) {
	return r.menu.Filter(func(m models.MenuItem) bool { return m.VendorID == vendorID }, func(a, b models.MenuItem) bool {
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Name < b.Name
	}), nil
}

func (r *memoryRepository) CreateProduct(_ context.Context, product models.Product) error {
	if !r.products.Insert(product.ID, product) {
		return errors.New("product id already exists")
	}
	return nil
}

func (r *memoryRepository) GetProduct(_ context.Context, id uuid.UUID) (models.Product, error) {
	p, ok := r.products.Get(id)
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) UpdateProduct(_ context.Context, id uuid.UUID, fn func(*models.Product) error) (models.Product, error) {
	p, err := r.products.Update(id, fn)
	if errors.Is(err, store.ErrNotFound) {
		return models.Product{}, ErrNotFound
	}
	return p, err
}

func (r *memoryRepository) VendorProducts(_ context.Context, vendorID uuid.UUID) ([]models.Product, error) {
	return r.products.Filter(func(p models.Product) bool { return p.VendorID == vendorID }, func(a, b models.Product) bool {
		return a.Name < b.Name
	}), nil
}
