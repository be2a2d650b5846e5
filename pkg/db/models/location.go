package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Address is a saved customer address or an order's delivery address.
type Address struct {
	ID        uuid.UUID         `json:"id"`
	Line1     string            `json:"line1"`
	Line2     string            `json:"line2,omitempty"`
	City      string            `json:"city"`
	State     string            `json:"state"`
	Pincode   string            `json:"pincode"`
	Type      enums.AddressType `json:"type"`
	IsDefault bool              `json:"isDefault"`
	Location  *Location         `json:"location,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
