// Package geo holds the distance, duration and fare arithmetic used for ride
// estimates, bookings and nearby-driver search.
package geo

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

const earthRadiusKM = 6371.0

// DistanceKM returns the great-circle distance between two points.
func DistanceKM(from, to models.Location) float64 {
	dLat := toRadians(to.Latitude - from.Latitude)
	dLng := toRadians(to.Longitude - from.Longitude)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(from.Latitude))*math.Cos(toRadians(to.Latitude))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// DurationMinutes is the city-traffic estimate of two minutes per kilometre.
func DurationMinutes(distanceKM float64) int {
	return int(math.Round(distanceKM * 2))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Rate is the per-vehicle pricing triple.
type Rate struct {
	Base   float64
	PerKM  float64
	PerMin float64
}

var rates = map[enums.VehicleType]Rate{
	enums.VehicleTypeBike: {Base: 20, PerKM: 10, PerMin: 1},
	enums.VehicleTypeCar:  {Base: 50, PerKM: 15, PerMin: 2},
	enums.VehicleTypeAuto: {Base: 30, PerKM: 12, PerMin: 1.5},
}

// RateFor returns the pricing for vehicle, falling back to CAR.
func RateFor(vehicle enums.VehicleType) Rate {
	if r, ok := rates[vehicle]; ok {
		return r
	}
	return rates[enums.VehicleTypeCar]
}

// Fare prices a ride. Total is rounded to whole rupees; the components keep
// paise so they explain the total.
func Fare(distanceKM float64, durationMin int, vehicle enums.VehicleType) models.FareBreakdown {
	r := RateFor(vehicle)
	distancePart := distanceKM * r.PerKM
	timePart := float64(durationMin) * r.PerMin
	return models.FareBreakdown{
		BaseFare:        decimal.NewFromFloat(r.Base),
		DistanceFare:    decimal.NewFromFloat(distancePart).Round(2),
		TimeFare:        decimal.NewFromFloat(timePart).Round(2),
		Total:           decimal.NewFromFloat(math.Round(r.Base + distancePart + timePart)),
		DistanceKM:      math.Round(distanceKM*100) / 100,
		DurationMinutes: durationMin,
	}
}

// Estimate is one vehicle option for a trip.
type Estimate struct {
	VehicleType   enums.VehicleType `json:"vehicleType"`
	Fare          decimal.Decimal   `json:"fare"`
	EstimatedTime int               `json:"estimatedTime"`
	Distance      float64           `json:"distance"`
}

// etaFactor models bikes weaving through traffic and cars getting stuck.
var etaFactor = map[enums.VehicleType]float64{
	enums.VehicleTypeBike: 0.8,
	enums.VehicleTypeAuto: 1.0,
	enums.VehicleTypeCar:  1.1,
}

// Estimates prices the trip for BIKE, AUTO and CAR in that order.
func Estimates(from, to models.Location) []Estimate {
	distance := DistanceKM(from, to)
	duration := DurationMinutes(distance)
	out := make([]Estimate, 0, len(etaFactor))
	for _, vehicle := range []enums.VehicleType{enums.VehicleTypeBike, enums.VehicleTypeAuto, enums.VehicleTypeCar} {
		fare := Fare(distance, duration, vehicle)
		out = append(out, Estimate{
			VehicleType:   vehicle,
			Fare:          fare.Total,
			EstimatedTime: int(math.Round(float64(duration) * etaFactor[vehicle])),
			Distance:      fare.DistanceKM,
		})
	}
	return out
}
