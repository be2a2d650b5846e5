package analytics

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/api/controllers/orders"
	"github.com/jebdekho/jebdekho-backend/api/responses"
	"github.com/jebdekho/jebdekho-backend/api/validators"
	"github.com/jebdekho/jebdekho-backend/internal/analytics"
	"github.com/jebdekho/jebdekho-backend/internal/analytics/types"
	internalorders "github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/pagination"
)

type userAdmin interface {
	List(ctx context.Context, filter users.Filter, params pagination.Params) (pagination.Page[models.User], error)
	SetStatus(ctx context.Context, id uuid.UUID, status enums.UserStatus) (models.User, error)
}

type UserStatusRequest struct {
	Status enums.UserStatus `json:"status" validate:"required"`
}

func unavailable(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, name string) {
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

func AdminDashboard(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			unavailable(ctx, w, logg, "analytics")
			return
		}

		result, err := service.AdminDashboard(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Revenue reports DELIVERED orders for period, which defaults to month.
func Revenue(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			unavailable(ctx, w, logg, "analytics")
			return
		}

		period, err := types.ParseRevenuePeriod(r.URL.Query().Get("period"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid period"))
			return
		}

		result, err := service.Revenue(ctx, period)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminUsers(svc userAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			unavailable(ctx, w, logg, "users")
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		query := r.URL.Query()
		filter := users.Filter{Search: strings.TrimSpace(query.Get("search"))}
		if raw := strings.TrimSpace(query.Get("role")); raw != "" {
			if filter.Role, err = enums.ParseRole(raw); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role filter"))
				return
			}
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			if filter.Status, err = enums.ParseUserStatus(raw); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
		}

		page, err := svc.List(ctx, filter, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func SetUserStatus(svc userAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			unavailable(ctx, w, logg, "users")
			return
		}

		userID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body UserStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseUserStatus(string(body.Status))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		user, err := svc.SetStatus(ctx, userID, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "User status updated", user)
	}
}

// AdminOrders lists every order with status, service type and date filters.
func AdminOrders(list orderLister, views partyViews, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if list == nil || views == nil {
			unavailable(ctx, w, logg, "orders")
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
		from, to, err := resolveDateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter := internalorders.Filter{Statuses: statuses, From: from, To: to}
		if raw := strings.TrimSpace(r.URL.Query().Get("serviceType")); raw != "" {
			if filter.ServiceType, err = enums.ParseServiceType(raw); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid serviceType filter"))
				return
			}
		}

		page, err := list.List(ctx, filter, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, withCustomers(ctx, views, page))
	}
}
