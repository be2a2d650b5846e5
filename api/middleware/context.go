package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/pkg/auth"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

type contextKey string

const (
	ctxPrincipal contextKey = "principal"
	ctxAccessID  contextKey = "access_id"
)

// WithPrincipal injects the authenticated caller into the context.
func WithPrincipal(ctx context.Context, principal auth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, principal)
}

func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	if ctx == nil {
		return auth.Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(auth.Principal)
	return p, ok
}

func UserIDFromContext(ctx context.Context) uuid.UUID {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}

func RoleFromContext(ctx context.Context) enums.Role {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}

// ActorFromContext is the caller as seen by order workflows.
func ActorFromContext(ctx context.Context) orders.Actor {
	p, _ := PrincipalFromContext(ctx)
	return orders.Actor{ID: p.UserID, Role: p.Role}
}

// AccessIDFromContext returns the jti of the access token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

func withAccessID(ctx context.Context, accessID string) context.Context {
	return context.WithValue(ctx, ctxAccessID, accessID)
}
