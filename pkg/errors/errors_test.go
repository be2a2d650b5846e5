package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeInvalidTransition, status: http.StatusUnprocessableEntity, publicMsg: "invalid status transition", detailsOK: true},
		{code: CodeInsufficientBalance, status: http.StatusBadRequest, publicMsg: "insufficient wallet balance", detailsOK: true},
		{code: CodePromoUsageExceeded, status: http.StatusBadRequest, publicMsg: "promo code usage limit exceeded"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
	if meta.ExposeMessage {
		t.Fatal("internal errors must not expose their message")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("redis down")
	err := Wrap(CodeDependency, cause, "load session")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if err.Error() != "DEPENDENCY_ERROR: load session" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestHasCodeThroughFmtWrapping(t *testing.T) {
	base := New(CodeInsufficientBalance, "Insufficient wallet balance")
	wrapped := fmt.Errorf("pay order: %w", base)
	if !HasCode(wrapped, CodeInsufficientBalance) {
		t.Fatal("expected code to be found through wrapping")
	}
	if HasCode(wrapped, CodeInvalidAmount) {
		t.Fatal("unexpected code match")
	}
	if HasCode(nil, CodeInternal) {
		t.Fatal("nil error has no code")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeNotFound, stdErrors.New("missing row"), "order not found")
	dump := Dump(err)
	if dump.Code != CodeNotFound {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %d", len(dump.Chain))
	}
}
