package reviews

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/pagination"
)

const (
	minRating = 1
	maxRating = 5
)

// Service manages vendor reviews and keeps the vendor's rating aggregate in
// step with them.
type Service interface {
	ForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (pagination.Page[ReviewView], error)
	Create(ctx context.Context, actor uuid.UUID, input CreateInput) (models.Review, error)
	Update(ctx context.Context, actor, reviewID uuid.UUID, input UpdateInput) (models.Review, error)
	Delete(ctx context.Context, actor, reviewID uuid.UUID) error
}

type CreateInput struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
	Rating  int       `json:"rating" validate:"required,min=1,max=5"`
	Comment string    `json:"comment"`
}

// UpdateInput leaves a field unchanged when it is nil.
type UpdateInput struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment,omitempty"`
}

// ReviewView is a review with its author's public details.
type ReviewView struct {
	models.Review
	Customer *models.PartyView `json:"customer"`
}

type orderLoader interface {
	Get(ctx context.Context, id uuid.UUID) (models.Order, error)
}

type vendorDirectory interface {
	Vendor(ctx context.Context, id uuid.UUID, businessType enums.ServiceType) (models.User, error)
	Views(ctx context.Context, ids ...uuid.UUID) map[uuid.UUID]models.PartyView
	SetVendorRating(ctx context.Context, vendorID uuid.UUID, average float64, count int) error
}

type service struct {
	repo    Repository
	orders  orderLoader
	vendors vendorDirectory
	logg    *logger.Logger
	now     func() time.Time

	// serializes writes so the rating aggregate is computed from a stable set
	mu sync.Mutex
}

func NewService(repo Repository, orders orderLoader, vendors vendorDirectory, logg *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
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
	return &service{repo: repo, orders: orders, vendors: vendors, logg: logg, now: now}, nil
}

func (s *service) ForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (pagination.Page[ReviewView], error) {
	if _, err := s.vendors.Vendor(ctx, vendorID, ""); err != nil {
		return pagination.Page[ReviewView]{}, err
	}
	rows, err := s.repo.ForVendor(ctx, vendorID)
	if err != nil {
		return pagination.Page[ReviewView]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	page := pagination.Slice(rows, params)

	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, rv := range page.Items {
		ids = append(ids, rv.CustomerID)
	}
	views := s.vendors.Views(ctx, ids...)

	items := make([]ReviewView, 0, len(page.Items))
	for _, rv := range page.Items {
		item := ReviewView{Review: rv}
		if v, ok := views[rv.CustomerID]; ok {
			item.Customer = &v
		}
		items = append(items, item)
	}
	return pagination.Page[ReviewView]{Items: items, Pagination: page.Pagination}, nil
}

func (s *service) Create(ctx context.Context, actor uuid.UUID, input CreateInput) (models.Review, error) {
	if err := validRating(input.Rating); err != nil {
		return models.Review{}, err
	}
	order, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return models.Review{}, err
	}
	if order.CustomerID != actor {
		return models.Review{}, pkgerrors.New(pkgerrors.CodeForbidden, "You can only review your own orders")
	}
	if order.VendorID == nil {
		return models.Review{}, pkgerrors.New(pkgerrors.CodeValidation, "Order has no vendor to review")
	}

	now := s.now().UTC()
	review := models.Review{
		ID:         uuid.New(),
		OrderID:    order.ID,
		VendorID:   *order.VendorID,
		CustomerID: actor,
		Rating:     input.Rating,
		Comment:    strings.TrimSpace(input.Comment),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, ErrAlreadyReviewed) {
			return models.Review{}, pkgerrors.New(pkgerrors.CodeConflict, "Order already reviewed")
		}
		return models.Review{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	if err := s.recompute(ctx, review.VendorID); err != nil {
		return models.Review{}, err
	}
	return review, nil
}

func (s *service) Update(ctx context.Context, actor, reviewID uuid.UUID, input UpdateInput) (models.Review, error) {
	if input.Rating != nil {
		if err := validRating(*input.Rating); err != nil {
			return models.Review{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updated, err := s.repo.Update(ctx, reviewID, func(rv *models.Review) error {
		if rv.CustomerID != actor {
			return pkgerrors.New(pkgerrors.CodeForbidden, "You can only update your own reviews")
		}
		if input.Rating != nil {
			rv.Rating = *input.Rating
		}
		if input.Comment != nil {
			rv.Comment = strings.TrimSpace(*input.Comment)
		}
		rv.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return models.Review{}, mapErr(err, "update review")
	}
	if err := s.recompute(ctx, updated.VendorID); err != nil {
		return models.Review{}, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, actor, reviewID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	review, err := s.repo.Get(ctx, reviewID)
	if err != nil {
		return mapErr(err, "load review")
	}
	if review.CustomerID != actor {
		return pkgerrors.New(pkgerrors.CodeForbidden, "You can only delete your own reviews")
	}
	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return mapErr(err, "delete review")
	}
	return s.recompute(ctx, review.VendorID)
}

// recompute rebuilds the vendor's average from every stored review. The
// average is rounded to one decimal; no reviews resets it to zero.
func (s *service) recompute(ctx context.Context, vendorID uuid.UUID) error {
	rows, err := s.repo.ForVendor(ctx, vendorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor reviews")
	}
	var average float64
	if len(rows) > 0 {
		sum := 0
		for _, rv := range rows {
			sum += rv.Rating
		}
		average = math.Round(float64(sum)/float64(len(rows))*10) / 10
	}
	if err := s.vendors.SetVendorRating(ctx, vendorID, average, len(rows)); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "vendor_id", vendorID.String()), "reviews.rating_update_failed", err)
		return err
	}
	return nil
}

func validRating(r int) error {
	if r < minRating || r > maxRating {
		return pkgerrors.New(pkgerrors.CodeValidation, "Rating must be between 1 and 5")
	}
	return nil
}

func mapErr(err error, action string) error {
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Review not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
