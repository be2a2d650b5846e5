package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/internal/relay"
	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/pagination"
)

// Service exposes restaurant menus, mart products and vendor catalog edits.
type Service interface {
	Restaurants(ctx context.Context, query VendorQuery) (pagination.Page[VendorSummary], error)
	Stores(ctx context.Context, query VendorQuery) (pagination.Page[VendorSummary], error)
	Restaurant(ctx context.Context, id uuid.UUID) (VendorSummary, error)
	Menu(ctx context.Context, vendorID uuid.UUID, query MenuQuery) (*Menu, error)
	StoreProducts(ctx context.Context, vendorID uuid.UUID, query ProductQuery) (pagination.Page[models.Product], error)

	MenuItem(ctx context.Context, id uuid.UUID) (models.MenuItem, error)
	Product(ctx context.Context, id uuid.UUID) (models.Product, error)

	AddMenuItem(ctx context.Context, vendorID uuid.UUID, input MenuItemInput) (models.MenuItem, error)
	AddProduct(ctx context.Context, vendorID uuid.UUID, input ProductInput) (models.Product, error)
	UpdateMenuItem(ctx context.Context, vendorID, itemID uuid.UUID, input MenuItemUpdate) (models.MenuItem, error)
	UpdateProduct(ctx context.Context, vendorID, productID uuid.UUID, input ProductUpdate) (models.Product, error)
	SetStoreOpen(ctx context.Context, vendorID uuid.UUID, open bool) (VendorSummary, error)
}

// Publisher pushes live events to relay channels.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, data any) error
}

type vendorDirectory interface {
	Vendor(ctx context.Context, id uuid.UUID, businessType enums.ServiceType) (models.User, error)
	List(ctx context.Context, filter users.Filter, params pagination.Params) (pagination.Page[models.User], error)
	SetAvailability(ctx context.Context, vendorID uuid.UUID, open bool) (models.User, error)
}

// VendorSummary is the public listing shape of a restaurant or store.
type VendorSummary struct {
	ID           uuid.UUID         `json:"id"`
	BusinessName string            `json:"businessName"`
	BusinessType enums.ServiceType `json:"businessType"`
	Description  string            `json:"description,omitempty"`
	Cuisines     []string          `json:"cuisines,omitempty"`
	Address      string            `json:"address,omitempty"`
	Location     *models.Location  `json:"location,omitempty"`
	IsOpen       bool              `json:"isOpen"`
	Rating       float64           `json:"rating"`
	TotalRatings int               `json:"totalRatings"`
	DeliveryTime int               `json:"deliveryTimeMinutes,omitempty"`
	MinimumOrder decimal.Decimal   `json:"minimumOrder"`
	Phone        string            `json:"phone,omitempty"`
}

// Summarize projects a vendor user into its listing shape.
func Summarize(u models.User) VendorSummary {
	s := VendorSummary{ID: u.ID, Phone: u.Phone}
	if v := u.Vendor; v != nil {
		s.BusinessName = v.BusinessName
		s.BusinessType = v.BusinessType
		s.Description = v.Description
		s.Cuisines = append([]string(nil), v.Cuisines...)
		s.Address = v.Address
		s.IsOpen = v.IsOpen
		s.Rating = v.Rating
		s.TotalRatings = v.TotalRatings
		s.DeliveryTime = v.DeliveryTime
		s.MinimumOrder = v.MinimumOrder
		if v.Location != nil {
			loc := *v.Location
			s.Location = &loc
		}
	}
	return s
}

type VendorQuery struct {
	Search string
	Page   pagination.Params
}

type MenuQuery struct {
	Category string
	IsVeg    *bool
	Search   string
}

type ProductQuery struct {
	Search   string
	Category string
	Brand    string
	Page     pagination.Params
}

// MenuCategory groups menu items under one heading.
type MenuCategory struct {
	Category string            `json:"category"`
	Items    []models.MenuItem `json:"items"`
}

type Menu struct {
	Restaurant VendorSummary  `json:"restaurant"`
	Menu       []MenuCategory `json:"menu"`
	TotalItems int            `json:"totalItems"`
}

type MenuItemInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	IsVeg       bool
	IsAvailable bool
	ImageURL    *string
	PrepTime    int
}

type ProductInput struct {
	Name        string
	Description string
	Category    string
	Brand       string
	Unit        string
	Price       decimal.Decimal
	MRP         decimal.Decimal
	Stock       int
	IsAvailable bool
	ImageURL    *string
}

// MenuItemUpdate holds the optional fields a vendor may change.
type MenuItemUpdate struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	IsVeg       *bool
	IsAvailable *bool
	ImageURL    *string
	PrepTime    *int
}

type ProductUpdate struct {
	Name        *string
	Description *string
	Category    *string
	Brand       *string
	Unit        *string
	Price       *decimal.Decimal
	MRP         *decimal.Decimal
	Stock       *int
	IsAvailable *bool
	ImageURL    *string
}

type service struct {
	repo      Repository
	vendors   vendorDirectory
	publisher Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the catalog service. publisher may be nil when no live
// relay is wired.
func NewService(repo Repository, vendors vendorDirectory, publisher Publisher, logg *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor directory required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, vendors: vendors, publisher: publisher, logg: logg, now: now}, nil
}

func (s *service) listVendors(ctx context.Context, businessType enums.ServiceType, query VendorQuery) (pagination.Page[VendorSummary], error) {
	page, err := s.vendors.List(ctx, users.Filter{
		Role:         enums.RoleVendor,
		Status:       enums.UserStatusActive,
		BusinessType: businessType,
		Search:       query.Search,
	}, query.Page)
	if err != nil {
		return pagination.Page[VendorSummary]{}, err
	}
	out := pagination.Page[VendorSummary]{Items: make([]VendorSummary, 0, len(page.Items)), Pagination: page.Pagination}
	for _, u := range page.Items {
		out.Items = append(out.Items, Summarize(u))
	}
	return out, nil
}

func (s *service) Restaurants(ctx context.Context, query VendorQuery) (pagination.Page[VendorSummary], error) {
	return s.listVendors(ctx, enums.ServiceTypeFood, query)
}

func (s *service) Stores(ctx context.Context, query VendorQuery) (pagination.Page[VendorSummary], error) {
	return s.listVendors(ctx, enums.ServiceTypeMart, query)
}

func (s *service) Restaurant(ctx context.Context, id uuid.UUID) (VendorSummary, error) {
	u, err := s.vendors.Vendor(ctx, id, enums.ServiceTypeFood)
	if err != nil {
		return VendorSummary{}, restaurantNotFound(err)
	}
	return Summarize(u), nil
}

func restaurantNotFound(err error) error {
	if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Restaurant not found")
	}
	return err
}

func (s *service) Menu(ctx context.Context, vendorID uuid.UUID, query MenuQuery) (*Menu, error) {
	vendor, err := s.vendors.Vendor(ctx, vendorID, enums.ServiceTypeFood)
	if err != nil {
		return nil, restaurantNotFound(err)
	}
	items, err := s.repo.VendorMenu(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu")
	}

	search := strings.ToLower(strings.TrimSpace(query.Search))
	menu := &Menu{Restaurant: Summarize(vendor), Menu: []MenuCategory{}}
	for _, item := range items {
		if query.Category != "" && item.Category != query.Category {
			continue
		}
		if query.IsVeg != nil && item.IsVeg != *query.IsVeg {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.Description), search) {
			continue
		}
		// items arrive sorted by category, so a new heading starts a group
		if n := len(menu.Menu); n == 0 || menu.Menu[n-1].Category != item.Category {
			menu.Menu = append(menu.Menu, MenuCategory{Category: item.Category})
		}
		last := &menu.Menu[len(menu.Menu)-1]
		last.Items = append(last.Items, item)
		menu.TotalItems++
	}
	return menu, nil
}

func (s *service) StoreProducts(ctx context.Context, vendorID uuid.UUID, query ProductQuery) (pagination.Page[models.Product], error) {
	if _, err := s.vendors.Vendor(ctx, vendorID, enums.ServiceTypeMart); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return pagination.Page[models.Product]{}, pkgerrors.New(pkgerrors.CodeNotFound, "Store not found")
		}
		return pagination.Page[models.Product]{}, err
	}
	products, err := s.repo.VendorProducts(ctx, vendorID)
	if err != nil {
		return pagination.Page[models.Product]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	search := strings.ToLower(strings.TrimSpace(query.Search))
	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if query.Category != "" && p.Category != query.Category {
			continue
		}
		if query.Brand != "" && p.Brand != query.Brand {
			continue
		}
		filtered = append(filtered, p)
	}
	return pagination.Slice(filtered, query.Page), nil
}

func (s *service) MenuItem(ctx context.Context, id uuid.UUID) (models.MenuItem, error) {
	item, err := s.repo.GetMenuItem(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return models.MenuItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "Menu item not found")
	}
	if err != nil {
		return models.MenuItem{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	return item, nil
}

func (s *service) Product(ctx context.Context, id uuid.UUID) (models.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return models.Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	if err != nil {
		return models.Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return p, nil
}

func validateListing(name, category string, price decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	return nil
}

func (s *service) AddMenuItem(ctx context.Context, vendorID uuid.UUID, input MenuItemInput) (models.MenuItem, error) {
	if _, err := s.vendors.Vendor(ctx, vendorID, enums.ServiceTypeFood); err != nil {
		return models.MenuItem{}, err
	}
	if err := validateListing(input.Name, input.Category, input.Price); err != nil {
		return models.MenuItem{}, err
	}
	now := s.now().UTC()
	item := models.MenuItem{
		ID:          uuid.New(),
		VendorID:    vendorID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    strings.TrimSpace(input.Category),
		Price:       input.Price,
		IsVeg:       input.IsVeg,
		IsAvailable: input.IsAvailable,
		ImageURL:    input.ImageURL,
		PrepTime:    input.PrepTime,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateMenuItem(ctx, item); err != nil {
		return models.MenuItem{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create menu item")
	}
	return item, nil
}

func (s *service) AddProduct(ctx context.Context, vendorID uuid.UUID, input ProductInput) (models.Product, error) {
	if _, err := s.vendors.Vendor(ctx, vendorID, enums.ServiceTypeMart); err != nil {
		return models.Product{}, err
	}
	if err := validateListing(input.Name, input.Category, input.Price); err != nil {
		return models.Product{}, err
	}
	if input.Stock < 0 {
		return models.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	mrp := input.MRP
	if mrp.LessThan(input.Price) {
		mrp = input.Price
	}
	now := s.now().UTC()
	p := models.Product{
		ID:          uuid.New(),
		VendorID:    vendorID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    strings.TrimSpace(input.Category),
		Brand:       input.Brand,
		Unit:        input.Unit,
		Price:       input.Price,
		MRP:         mrp,
		Stock:       input.Stock,
		IsAvailable: input.IsAvailable,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return models.Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return p, nil
}

func (s *service) UpdateMenuItem(ctx context.Context, vendorID, itemID uuid.UUID, input MenuItemUpdate) (models.MenuItem, error) {
	updated, err := s.repo.UpdateMenuItem(ctx, itemID, func(item *models.MenuItem) error {
		if item.VendorID != vendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
		}
		if input.Name != nil {
			item.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			item.Description = *input.Description
		}
		if input.Category != nil {
			item.Category = strings.TrimSpace(*input.Category)
		}
		if input.Price != nil {
			item.Price = *input.Price
		}
		if input.IsVeg != nil {
			item.IsVeg = *input.IsVeg
		}
		if input.IsAvailable != nil {
			item.IsAvailable = *input.IsAvailable
		}
		if input.ImageURL != nil {
			url := *input.ImageURL
			item.ImageURL = &url
		}
		if input.PrepTime != nil {
			item.PrepTime = *input.PrepTime
		}
		if err := validateListing(item.Name, item.Category, item.Price); err != nil {
			return err
		}
		item.UpdatedAt = s.now().UTC()
		return nil
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return models.MenuItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "Menu item not found")
	case err != nil && pkgerrors.As(err) == nil:
		return models.MenuItem{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update menu item")
	}
	return updated, err
}

func (s *service) UpdateProduct(ctx context.Context, vendorID, productID uuid.UUID, input ProductUpdate) (models.Product, error) {
	updated, err := s.repo.UpdateProduct(ctx, productID, func(p *models.Product) error {
		if p.VendorID != vendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
		}
		if input.Name != nil {
			p.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			p.Description = *input.Description
		}
		if input.Category != nil {
			p.Category = strings.TrimSpace(*input.Category)
		}
		if input.Brand != nil {
			p.Brand = *input.Brand
		}
		if input.Unit != nil {
			p.Unit = *input.Unit
		}
		if input.Price != nil {
			p.Price = *input.Price
		}
		if input.MRP != nil {
			p.MRP = *input.MRP
		}
		if input.Stock != nil {
			if *input.Stock < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
			}
			p.Stock = *input.Stock
		}
		if input.IsAvailable != nil {
			p.IsAvailable = *input.IsAvailable
		}
		if input.ImageURL != nil {
			url := *input.ImageURL
			p.ImageURL = &url
		}
		if err := validateListing(p.Name, p.Category, p.Price); err != nil {
			return err
		}
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return models.Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	case err != nil && pkgerrors.As(err) == nil:
		return models.Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return updated, err
}

func (s *service) SetStoreOpen(ctx context.Context, vendorID uuid.UUID, open bool) (VendorSummary, error) {
	u, err := s.vendors.SetAvailability(ctx, vendorID, open)
	if err != nil {
		return VendorSummary{}, err
	}
	summary := Summarize(u)
	if s.publisher != nil {
		payload := map[string]any{"vendorId": vendorID, "isOpen": open}
		if err := s.publisher.Publish(ctx, relay.VendorChannel(vendorID), relay.EventAvailabilityChanged, payload); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"vendor_id": vendorID.String(),
				"error":     err.Error(),
			}), "catalog.availability_publish_failed")
		}
	}
	return summary, nil
}
