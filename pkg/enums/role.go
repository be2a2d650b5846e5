package enums

import "fmt"

// Role identifies which kind of actor a user account represents.
type Role string

const (
	RoleCustomer        Role = "CUSTOMER"
	RoleVendor          Role = "VENDOR"
	RoleDeliveryPartner Role = "DELIVERY_PARTNER"
	RoleAdmin           Role = "ADMIN"
)

var validRoles = []Role{
	RoleCustomer,
	RoleVendor,
	RoleDeliveryPartner,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// SelfRegistrable reports whether accounts with this role may sign up on their own.
func (r Role) SelfRegistrable() bool {
	return r == RoleCustomer || r == RoleVendor || r == RoleDeliveryPartner
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
