package analytics

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/api/controllers/orders"
	"github.com/jebdekho/jebdekho-backend/api/middleware"
	"github.com/jebdekho/jebdekho-backend/api/responses"
	"github.com/jebdekho/jebdekho-backend/api/validators"
	"github.com/jebdekho/jebdekho-backend/internal/analytics"
	internalorders "github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/pagination"
)

type partyViews interface {
	Views(ctx context.Context, ids ...uuid.UUID) map[uuid.UUID]models.PartyView
}

type orderLister interface {
	List(ctx context.Context, filter internalorders.Filter, params pagination.Params) (pagination.Page[models.Order], error)
}

// OrderWithCustomer is a vendor or admin order row with the customer's public details.
type OrderWithCustomer struct {
	models.Order
	Customer *models.PartyView `json:"customer"`
}

func withCustomers(ctx context.Context, views partyViews, page pagination.Page[models.Order]) pagination.Page[OrderWithCustomer] {
	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, o := range page.Items {
		ids = append(ids, o.CustomerID)
	}
	found := views.Views(ctx, ids...)

	out := pagination.Page[OrderWithCustomer]{
		Items:      make([]OrderWithCustomer, 0, len(page.Items)),
		Pagination: page.Pagination,
	}
	for _, o := range page.Items {
		row := OrderWithCustomer{Order: o}
		if v, ok := found[o.CustomerID]; ok {
			row.Customer = &v
		}
		out.Items = append(out.Items, row)
	}
	return out
}

func VendorDashboard(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		result, err := service.VendorDashboard(ctx, middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// VendorOrders lists the calling vendor's orders across every service type.
func VendorOrders(list orderLister, views partyViews, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if list == nil || views == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		statuses, err := orders.ParseStatuses(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		vendorID := middleware.UserIDFromContext(ctx)
		page, err := list.List(ctx, internalorders.Filter{VendorID: &vendorID, Statuses: statuses}, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, withCustomers(ctx, views, page))
	}
}
