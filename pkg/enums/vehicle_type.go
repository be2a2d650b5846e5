package enums

import "fmt"

// VehicleType is the class of vehicle a delivery partner drives.
type VehicleType string

const (
	VehicleTypeBike VehicleType = "BIKE"
	VehicleTypeCar  VehicleType = "CAR"
	VehicleTypeAuto VehicleType = "AUTO"
)

var validVehicleTypes = []VehicleType{
	VehicleTypeBike,
	VehicleTypeCar,
	VehicleTypeAuto,
}

func (v VehicleType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VehicleType.
func (v VehicleType) IsValid() bool {
	for _, candidate := range validVehicleTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVehicleType converts raw input into a VehicleType.
func ParseVehicleType(value string) (VehicleType, error) {
	for _, candidate := range validVehicleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vehicle type %q", value)
}
