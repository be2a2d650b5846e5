package enums

import "fmt"

// ServiceType names one of the marketplace verticals.
type ServiceType string

const (
	ServiceTypeTransport ServiceType = "TRANSPORT"
	ServiceTypeFood      ServiceType = "FOOD"
	ServiceTypeMart      ServiceType = "MART"
)

var validServiceTypes = []ServiceType{
	ServiceTypeTransport,
	ServiceTypeFood,
	ServiceTypeMart,
}

// ServiceTypes returns every vertical in display order.
func ServiceTypes() []ServiceType {
	out := make([]ServiceType, len(validServiceTypes))
	copy(out, validServiceTypes)
	return out
}

func (s ServiceType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceType.
func (s ServiceType) IsValid() bool {
	for _, candidate := range validServiceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// OrderPrefix is the human readable prefix used for order numbers.
func (s ServiceType) OrderPrefix() string {
	switch s {
	case ServiceTypeTransport:
		return "TRN"
	case ServiceTypeFood:
		return "FOOD"
	case ServiceTypeMart:
		return "MART"
	}
	return "ORD"
}

// ParseServiceType converts raw input into a ServiceType.
func ParseServiceType(value string) (ServiceType, error) {
	for _, candidate := range validServiceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service type %q", value)
}
