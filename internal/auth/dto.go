package auth

import (
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// RegisterRequest is the self sign-up payload. Vendor and driver fields are
// only read for the matching role.
type RegisterRequest struct {
	Email        string            `json:"email" validate:"required,email"`
	Password     string            `json:"password" validate:"required,min=8"`
	Phone        string            `json:"phone" validate:"required,indian_phone"`
	Role         enums.Role        `json:"role" validate:"required,oneof=CUSTOMER VENDOR DELIVERY_PARTNER"`
	FirstName    string            `json:"firstName"`
	LastName     string            `json:"lastName"`
	BusinessName string            `json:"businessName"`
	BusinessType enums.ServiceType `json:"businessType"`
	VehicleType  enums.VehicleType `json:"vehicleType"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

// RefreshRequest carries the (possibly expired) access token whose jti keys
// the refresh session, plus the opaque refresh token itself.
type RefreshRequest struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenPair is returned by every flow that opens a session.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// SessionResponse is a user plus a freshly minted token pair.
type SessionResponse struct {
	User models.User `json:"user"`
	TokenPair
	Message string `json:"message,omitempty"`
}

type OTPResponse struct {
	Message  string `json:"message"`
	DebugOTP string `json:"debugOtp,omitempty"`
}

// VerifyOTPResponse holds a session when the phone belongs to an account,
// otherwise only Verified is set.
type VerifyOTPResponse struct {
	Session  *SessionResponse
	Verified bool
}
