package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// Principal is the authenticated caller identity carried by an access token.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
	Email  string
}

// AccessTokenClaims is the JWT body issued to clients. The registered ID (jti)
// keys the refresh session in redis.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"userId"`
	Role   enums.Role `json:"role"`
	Email  string     `json:"email"`
	jwt.RegisteredClaims
}

// Principal extracts the caller identity from the claims.
func (c *AccessTokenClaims) Principal() Principal {
	return Principal{UserID: c.UserID, Role: c.Role, Email: c.Email}
}
