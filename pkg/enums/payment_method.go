package enums

import "fmt"

// PaymentMethod names how the customer settles an order.
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodCard       PaymentMethod = "CARD"
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodWallet     PaymentMethod = "WALLET"
	PaymentMethodNetBanking PaymentMethod = "NET_BANKING"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodCard,
	PaymentMethodUPI,
	PaymentMethodWallet,
	PaymentMethodNetBanking,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// InitialPaymentStatus is the payment status an order starts with for this method.
func (p PaymentMethod) InitialPaymentStatus() PaymentStatus {
	if p == PaymentMethodCash {
		return PaymentStatusPending
	}
	return PaymentStatusProcessing
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
