package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// order lifecycle
	CodeInvalidTransition Code = "INVALID_TRANSITION"

	// wallet ledger
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodePaymentDeclined     Code = "PAYMENT_DECLINED"

	// promo evaluation, listed in evaluation order
	CodeInvalidPromoCode   Code = "INVALID_PROMO_CODE"
	CodePromoInactive      Code = "PROMO_INACTIVE"
	CodePromoExpired       Code = "PROMO_EXPIRED"
	CodePromoWrongService  Code = "PROMO_WRONG_SERVICE"
	CodePromoBelowMinimum  Code = "PROMO_BELOW_MINIMUM"
	CodePromoUsageExceeded Code = "PROMO_USAGE_EXCEEDED"
	CodePromoFirstTimeOnly Code = "PROMO_FIRST_TIME_ONLY"
)

// Metadata describes how a code is surfaced at the HTTP boundary.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// ExposeMessage lets the error's own message replace PublicMessage.
	ExposeMessage bool
}

func clientError(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: details, ExposeMessage: true}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    clientError(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:  clientError(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:     clientError(http.StatusForbidden, "access denied", false),
	CodeNotFound:      clientError(http.StatusNotFound, "resource not found", false),
	CodeConflict:      clientError(http.StatusConflict, "conflict detected", false),
	CodeStateConflict: clientError(http.StatusUnprocessableEntity, "state transition disallowed", true),
	CodeIdempotency:   clientError(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:     clientError(http.StatusTooManyRequests, "rate limit exceeded", false),
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},

	CodeInvalidTransition: clientError(http.StatusUnprocessableEntity, "invalid status transition", true),

	CodeInvalidAmount:       clientError(http.StatusBadRequest, "invalid amount", false),
	CodeInsufficientBalance: clientError(http.StatusBadRequest, "insufficient wallet balance", true),
	CodePaymentDeclined:     clientError(http.StatusPaymentRequired, "payment declined", true),

	CodeInvalidPromoCode:   clientError(http.StatusBadRequest, "invalid promo code", false),
	CodePromoInactive:      clientError(http.StatusBadRequest, "promo code is not active", false),
	CodePromoExpired:       clientError(http.StatusBadRequest, "promo code has expired", false),
	CodePromoWrongService:  clientError(http.StatusBadRequest, "promo code not valid for this service", false),
	CodePromoBelowMinimum:  clientError(http.StatusBadRequest, "order value below promo minimum", true),
	CodePromoUsageExceeded: clientError(http.StatusBadRequest, "promo code usage limit exceeded", false),
	CodePromoFirstTimeOnly: clientError(http.StatusBadRequest, "promo code is only for first-time users", false),
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether the outermost typed error in err's chain carries code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
