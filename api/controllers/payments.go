package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/api/middleware"
	"github.com/jebdekho/jebdekho-backend/api/responses"
	"github.com/jebdekho/jebdekho-backend/api/validators"
	"github.com/jebdekho/jebdekho-backend/internal/checkout"
	"github.com/jebdekho/jebdekho-backend/internal/wallet"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/pagination"
)

type AddMoneyRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required,oneof=UPI CARD NET_BANKING"`
}

type PayRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
}

func walletUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
}

func GetWallet(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			walletUnavailable(w, r, logg)
			return
		}

		wlt, err := svc.Wallet(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"balance":  wlt.Balance,
			"currency": wlt.Currency,
		})
	}
}

func WalletStats(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			walletUnavailable(w, r, logg)
			return
		}

		stats, err := svc.Stats(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AddMoney credits the caller's wallet. The amount must be positive.
func AddMoney(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			walletUnavailable(w, r, logg)
			return
		}

		var body AddMoneyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidAmount, "Invalid amount"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		result, err := svc.Credit(r.Context(), wallet.CreditInput{
			UserID:    userID,
			Amount:    body.Amount,
			Method:    strings.ToUpper(body.Method),
			Reference: "TOPUP_" + uuid.NewString(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Money added successfully", result)
	}
}

// Transactions returns the caller's ledger, newest first.
func Transactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			walletUnavailable(w, r, logg)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), middleware.UserIDFromContext(r.Context()), params.Limit, (params.Page-1)*params.Limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.Page[models.Transaction]{
			Items:      history.Transactions,
			Pagination: pagination.NewMeta(params, history.Total),
		})
	}
}

// PayOrder settles an unpaid order from the caller's wallet.
func PayOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checkoutUnavailable(w, r, logg)
			return
		}

		var body PayRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.PayOrder(r.Context(), middleware.ActorFromContext(r.Context()), body.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Payment successful", outcome)
	}
}
