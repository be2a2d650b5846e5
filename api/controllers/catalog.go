package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/api/middleware"
	"github.com/jebdekho/jebdekho-backend/api/responses"
	"github.com/jebdekho/jebdekho-backend/api/validators"
	"github.com/jebdekho/jebdekho-backend/internal/catalog"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

type MenuItemRequest struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=500"`
	Category    string          `json:"category" validate:"required,max=60"`
	Price       decimal.Decimal `json:"price"`
	IsVeg       bool            `json:"isVeg"`
	IsAvailable *bool           `json:"isAvailable"`
	ImageURL    *string         `json:"imageUrl"`
	PrepTime    int             `json:"preparationTime" validate:"min=0,max=240"`
}

type MenuItemUpdateRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	Category    *string          `json:"category" validate:"omitempty,min=1,max=60"`
	Price       *decimal.Decimal `json:"price"`
	IsVeg       *bool            `json:"isVeg"`
	IsAvailable *bool            `json:"isAvailable"`
	ImageURL    *string          `json:"imageUrl"`
	PrepTime    *int             `json:"preparationTime" validate:"omitempty,min=0,max=240"`
}

type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=500"`
	Category    string          `json:"category" validate:"required,max=60"`
	Brand       string          `json:"brand" validate:"max=60"`
	Unit        string          `json:"unit" validate:"max=30"`
	Price       decimal.Decimal `json:"price"`
	MRP         decimal.Decimal `json:"mrp"`
	Stock       int             `json:"stock" validate:"min=0"`
	IsAvailable *bool           `json:"isAvailable"`
	ImageURL    *string         `json:"imageUrl"`
}

type ProductUpdateRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	Category    *string          `json:"category" validate:"omitempty,min=1,max=60"`
	Brand       *string          `json:"brand" validate:"omitempty,max=60"`
	Unit        *string          `json:"unit" validate:"omitempty,max=30"`
	Price       *decimal.Decimal `json:"price"`
	MRP         *decimal.Decimal `json:"mrp"`
	Stock       *int             `json:"stock" validate:"omitempty,min=0"`
	IsAvailable *bool            `json:"isAvailable"`
	ImageURL    *string          `json:"imageUrl"`
}

type AvailabilityRequest struct {
	IsOpen *bool `json:"isOpen" validate:"required"`
}

func catalogUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
}

func availableOrDefault(v *bool) bool {
	return v == nil || *v
}

func vendorQuery(r *http.Request) (catalog.VendorQuery, error) {
	page, err := validators.ParsePagination(r)
	if err != nil {
		return catalog.VendorQuery{}, err
	}
	return catalog.VendorQuery{
		Search: validators.SanitizeString(r.URL.Query().Get("search"), 100),
		Page:   page,
	}, nil
}

// ListRestaurants is public and lists FOOD vendors.
func ListRestaurants(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(w, r, logg)
			return
		}
		query, err := vendorQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.Restaurants(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetRestaurant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(w, r, logg)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		restaurant, err := svc.Restaurant(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, restaurant)
	}
}

// GetMenu returns the restaurant's menu grouped by category.
func GetMenu(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(w, r, logg)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		isVeg, err := validators.ParseQueryBool(r, "isVeg")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		menu, err := svc.Menu(r.Context(), id, catalog.MenuQuery{
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			IsVeg:    isVeg,
			Search:   validators.SanitizeString(r.URL.Query().Get("search"), 100),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, menu)
	}
}

// ListStores is public and lists MART vendors.
func ListStores(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(w, r, logg)
			return
		}
		query, err := vendorQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.Stores(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ListStoreProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(w, r, logg)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		products, err := svc.StoreProducts(r.Context(), id, catalog.ProductQuery{
			Search:   validators.SanitizeString(r.URL.Query().Get("search"), 100),
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Brand:    strings.TrimSpace(r.URL.Query().Get("brand")),
			Page:     page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func AddMenuItem(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(w, r, logg)
			return
		}
		var body MenuItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.AddMenuItem(r.Context(), middleware.UserIDFromContext(r.Context()), catalog.MenuItemInput{
			Name:        validators.SanitizeString(body.Name, 120),
			Description: validators.SanitizeString(body.Description, 500),
			Category:    validators.SanitizeString(body.Category, 60),
			Price:       body.Price,
			IsVeg:       body.IsVeg,
			IsAvailable: availableOrDefault(body.IsAvailable),
			ImageURL:    body.ImageURL,
			PrepTime:    body.PrepTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Menu item added successfully", item)
	}
}

// UpdateMenuItem is limited to the vendor owning the item.
func UpdateMenuItem(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(w, r, logg)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body MenuItemUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.UpdateMenuItem(r.Context(), middleware.UserIDFromContext(r.Context()), id, catalog.MenuItemUpdate{
			Name:        body.Name,
			Description: body.Description,
			Category:    body.Category,
			Price:       body.Price,
			IsVeg:       body.IsVeg,
			IsAvailable: body.IsAvailable,
			ImageURL:    body.ImageURL,
			PrepTime:    body.PrepTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Menu item updated successfully", item)
	}
}

func AddProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(w, r, logg)
			return
		}
		var body ProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.AddProduct(r.Context(), middleware.UserIDFromContext(r.Context()), catalog.ProductInput{
			Name:        validators.SanitizeString(body.Name, 120),
			Description: validators.SanitizeString(body.Description, 500),
			Category:    validators.SanitizeString(body.Category, 60),
			Brand:       validators.SanitizeString(body.Brand, 60),
			Unit:        validators.SanitizeString(body.Unit, 30),
			Price:       body.Price,
			MRP:         body.MRP,
			Stock:       body.Stock,
			IsAvailable: availableOrDefault(body.IsAvailable),
			ImageURL:    body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Product added successfully", product)
	}
}

// UpdateProduct is limited to the vendor owning the product.
func UpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(w, r, logg)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body ProductUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), middleware.UserIDFromContext(r.Context()), id, catalog.ProductUpdate{
			Name:        body.Name,
			Description: body.Description,
			Category:    body.Category,
			Brand:       body.Brand,
			Unit:        body.Unit,
			Price:       body.Price,
			MRP:         body.MRP,
			Stock:       body.Stock,
			IsAvailable: body.IsAvailable,
			ImageURL:    body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Product updated successfully", product)
	}
}

// SetAvailability opens or closes the calling vendor's store.
func SetAvailability(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			catalogUnavailable(w, r, logg)
			return
		}
		var body AvailabilityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.SetStoreOpen(r.Context(), middleware.UserIDFromContext(r.Context()), *body.IsOpen)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
