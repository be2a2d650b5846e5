package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

// OrderDetails is an order enriched with its parties.
type OrderDetails struct {
	models.Order
	Restaurant *models.PartyView `json:"restaurant,omitempty"`
	Customer   *models.PartyView `json:"customer,omitempty"`
	Driver     *DriverView       `json:"driver,omitempty"`
}

// DriverView is the public shape of an assigned partner.
type DriverView struct {
	models.PartyView
	VehicleType     enums.VehicleType `json:"vehicleType,omitempty"`
	VehicleNumber   string            `json:"vehicleNumber,omitempty"`
	Rating          float64           `json:"rating"`
	CurrentLocation *models.Location  `json:"currentLocation,omitempty"`
}

func (s *service) OrderDetails(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*OrderDetails, error) {
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.RoleAdmin && !order.IsParty(actor.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
	}
	return s.details(ctx, order), nil
}

// details attaches party views. Missing parties are left out rather than
// failing the read.
func (s *service) details(ctx context.Context, order models.Order) *OrderDetails {
	out := &OrderDetails{Order: order}
	if order.VendorID != nil {
		if vendor, err := s.Users.Get(ctx, *order.VendorID); err == nil {
			view := vendor.View()
			out.Restaurant = &view
		}
	}
	if customer, err := s.Users.Get(ctx, order.CustomerID); err == nil {
		view := customer.View()
		out.Customer = &view
	}
	if order.DeliveryPartnerID != nil {
		if driver, err := s.Users.Get(ctx, *order.DeliveryPartnerID); err == nil {
			dv := &DriverView{PartyView: driver.View()}
			if d := driver.Driver; d != nil {
				dv.VehicleType = d.VehicleType
				dv.VehicleNumber = d.VehicleNumber
				dv.Rating = d.Rating
				dv.CurrentLocation = d.CurrentLocation
			}
			out.Driver = dv
		}
	}
	return out
}
