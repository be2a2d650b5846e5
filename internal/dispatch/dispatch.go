// Package dispatch finds delivery partners for orders and rides.
package dispatch

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	"github.com/jebdekho/jebdekho-backend/pkg/geo"
)

type driverSource interface {
	All(ctx context.Context, filter users.Filter) ([]models.User, error)
}

// FirstMatch picks the earliest registered online partner that satisfies the
// vehicle constraint. It does not rank by distance or load.
type FirstMatch struct {
	drivers driverSource
}

var _ orders.DriverMatcher = (*FirstMatch)(nil)

func NewFirstMatch(drivers driverSource) (*FirstMatch, error) {
	if drivers == nil {
		return nil, fmt.Errorf("driver source required")
	}
	return &FirstMatch{drivers: drivers}, nil
}

func (m *FirstMatch) Match(ctx context.Context, req orders.MatchRequest) (uuid.UUID, bool, error) {
	filter := users.Filter{
		Role:       enums.RoleDeliveryPartner,
		Status:     enums.UserStatusActive,
		OnlineOnly: true,
	}
	if req.VehicleType != nil {
		filter.VehicleType = *req.VehicleType
	}
	candidates, err := m.drivers.All(ctx, filter)
	if err != nil {
		return uuid.Nil, false, err
	}
	if len(candidates) == 0 {
		return uuid.Nil, false, nil
	}
	return candidates[0].ID, true, nil
}

// NearbyDriver is an online partner and their distance from the query point.
type NearbyDriver struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Phone           string            `json:"phone"`
	VehicleType     enums.VehicleType `json:"vehicleType"`
	VehicleNumber   string            `json:"vehicleNumber,omitempty"`
	Rating          float64           `json:"rating"`
	CurrentLocation models.Location   `json:"currentLocation"`
	DistanceKM      float64           `json:"distance"`
	ETAMinutes      int               `json:"eta"`
}

// Nearby lists online partners with a known location within radiusKM of
// from, closest first. An empty vehicle type matches every vehicle.
func Nearby(ctx context.Context, drivers driverSource, from models.Location, vehicle enums.VehicleType, radiusKM float64) ([]NearbyDriver, error) {
	candidates, err := drivers.All(ctx, users.Filter{
		Role:        enums.RoleDeliveryPartner,
		Status:      enums.UserStatusActive,
		OnlineOnly:  true,
		VehicleType: vehicle,
	})
	if err != nil {
		return nil, err
	}
	out := make([]NearbyDriver, 0, len(candidates))
	for _, d := range candidates {
		if d.Driver.CurrentLocation == nil {
			continue
		}
		km := geo.DistanceKM(from, *d.Driver.CurrentLocation)
		if km > radiusKM {
			continue
		}
		out = append(out, NearbyDriver{
			ID:              d.ID,
			Name:            d.FullName(),
			Phone:           d.Phone,
			VehicleType:     d.Driver.VehicleType,
			VehicleNumber:   d.Driver.VehicleNumber,
			Rating:          d.Driver.Rating,
			CurrentLocation: *d.Driver.CurrentLocation,
			DistanceKM:      math.Round(km*100) / 100,
			ETAMinutes:      geo.DurationMinutes(km),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKM < out[j].DistanceKM })
	return out, nil
}
