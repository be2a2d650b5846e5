package enums

import "fmt"

// PromoType selects how a promo code discount is computed.
type PromoType string

const (
	PromoTypePercentage   PromoType = "PERCENTAGE"
	PromoTypeFixedAmount  PromoType = "FIXED_AMOUNT"
	PromoTypeFreeDelivery PromoType = "FREE_DELIVERY"
)

var validPromoTypes = []PromoType{
	PromoTypePercentage,
	PromoTypeFixedAmount,
	PromoTypeFreeDelivery,
}

func (p PromoType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromoType.
func (p PromoType) IsValid() bool {
	for _, candidate := range validPromoTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromoType converts raw input into a PromoType.
func ParsePromoType(value string) (PromoType, error) {
	for _, candidate := range validPromoTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo type %q", value)
}
