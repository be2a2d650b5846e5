package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// User is any account on the platform. Vendor and Driver are set only for the
// matching roles.
type User struct {
	ID             uuid.UUID        `json:"id"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone"`
	PasswordHash   string           `json:"-"`
	FirstName      string           `json:"firstName"`
	LastName       string           `json:"lastName"`
	Role           enums.Role       `json:"role"`
	Status         enums.UserStatus `json:"status"`
	ProfilePicture *string          `json:"profilePicture,omitempty"`
	Vendor         *VendorProfile   `json:"vendorProfile,omitempty"`
	Driver         *DriverProfile   `json:"driverProfile,omitempty"`
	Addresses      []Address        `json:"addresses,omitempty"`
	LastLoginAt    *time.Time       `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// VendorProfile describes a restaurant or store.
type VendorProfile struct {
	BusinessName string            `json:"businessName"`
	BusinessType enums.ServiceType `json:"businessType"`
	Description  string            `json:"description,omitempty"`
	Cuisines     []string          `json:"cuisines,omitempty"`
	Address      string            `json:"address,omitempty"`
	Location     *Location         `json:"location,omitempty"`
	IsOpen       bool              `json:"isOpen"`
	Rating       float64           `json:"rating"`
	TotalRatings int               `json:"totalRatings"`
	DeliveryTime int               `json:"deliveryTimeMinutes,omitempty"`
	MinimumOrder decimal.Decimal   `json:"minimumOrder"`
}

// DriverProfile describes a delivery partner and their vehicle.
type DriverProfile struct {
	VehicleType     enums.VehicleType `json:"vehicleType"`
	VehicleNumber   string            `json:"vehicleNumber,omitempty"`
	LicenseNumber   string            `json:"licenseNumber,omitempty"`
	IsOnline        bool              `json:"isOnline"`
	CurrentLocation *Location         `json:"currentLocation,omitempty"`
	LocationAt      *time.Time        `json:"locationUpdatedAt,omitempty"`
	Rating          float64           `json:"rating"`
	TotalDeliveries int               `json:"totalDeliveries"`
}

// PartyView is the trimmed user shape embedded in order and review responses.
type PartyView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
}

// View builds the public projection of the user.
func (u User) View() PartyView {
	name := u.FullName()
	if u.Vendor != nil && u.Vendor.BusinessName != "" {
		name = u.Vendor.BusinessName
	}
	return PartyView{ID: u.ID, Name: name, Phone: u.Phone}
}
