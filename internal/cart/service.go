package cart

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

// Service manages mart carts.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (View, error)
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (View, error)
	Update(ctx context.Context, userID, productID uuid.UUID, quantity int) (View, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	ExpireIdle(ctx context.Context, idleFor time.Duration) (int, error)
}

type productLoader interface {
	Product(ctx context.Context, id uuid.UUID) (models.Product, error)
}

// View is a cart with its computed total.
type View struct {
	Items     []models.CartItem `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"itemCount"`
}

func newView(c *models.Cart) View {
	v := View{Items: []models.CartItem{}, Total: decimal.Zero}
	if c == nil {
		return v
	}
	v.Items = append(v.Items, c.Items...)
	for _, item := range c.Items {
		v.Total = v.Total.Add(item.LineTotal())
		v.ItemCount += item.Quantity
	}
	return v
}

type service struct {
	repo     Repository
	products productLoader
	now      func() time.Time

	// serializes read-modify-write of a cart
	mu sync.Mutex
}

func NewService(repo Repository, products productLoader, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, products: products, now: now}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (View, error) {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return newView(c), nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (View, error) {
	if quantity < 1 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	product, err := s.products.Product(ctx, productID)
	if err != nil {
		return View{}, err
	}
	if !product.IsAvailable {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "Product is not available")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	now := s.now().UTC()
	if idx := indexOf(c.Items, productID); idx >= 0 {
		quantity += c.Items[idx].Quantity
		if err := checkStock(product, quantity); err != nil {
			return View{}, err
		}
		c.Items[idx].Quantity = quantity
	} else {
		if err := checkStock(product, quantity); err != nil {
			return View{}, err
		}
		c.Items = append(c.Items, models.CartItem{
			ProductID: product.ID,
			VendorID:  product.VendorID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
			AddedAt:   now,
		})
	}
	return s.save(ctx, c, now)
}

func checkStock(p models.Product, quantity int) error {
	if quantity > p.Stock {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Only %d left in stock", p.Stock))
	}
	return nil
}

func (s *service) Update(ctx context.Context, userID, productID uuid.UUID, quantity int) (View, error) {
	if quantity <= 0 {
		return s.Remove(ctx, userID, productID)
	}
	product, err := s.products.Product(ctx, productID)
	if err != nil {
		return View{}, err
	}
	if err := checkStock(product, quantity); err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	idx := indexOf(c.Items, productID)
	if idx < 0 {
		return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "Item not found in cart")
	}
	c.Items[idx].Quantity = quantity
	return s.save(ctx, c, s.now().UTC())
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	idx := indexOf(c.Items, productID)
	if idx < 0 {
		return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "Item not found in cart")
	}
	c.Items = slices.Delete(c.Items, idx, idx+1)
	return s.save(ctx, c, s.now().UTC())
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// ExpireIdle drops carts untouched for longer than idleFor.
func (s *service) ExpireIdle(ctx context.Context, idleFor time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.repo.DeleteIdleSince(ctx, s.now().UTC().Add(-idleFor))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire carts")
	}
	return n, nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if c == nil {
		c = &models.Cart{UserID: userID}
	}
	return c, nil
}

func (s *service) save(ctx context.Context, c *models.Cart, now time.Time) (View, error) {
	c.UpdatedAt = now
	if err := s.repo.Save(ctx, *c); err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return newView(c), nil
}

func indexOf(items []models.CartItem, productID uuid.UUID) int {
	return slices.IndexFunc(items, func(item models.CartItem) bool { return item.ProductID == productID })
}
