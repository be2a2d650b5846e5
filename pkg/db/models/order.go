package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// Order is one transaction in any of the three verticals. A transport booking
// is an Order with ServiceType TRANSPORT and no vendor.
type Order struct {
	ID                   uuid.UUID           `json:"id"`
	OrderNumber          string              `json:"orderNumber"`
	CustomerID           uuid.UUID           `json:"customerId"`
	VendorID             *uuid.UUID          `json:"vendorId,omitempty"`
	DeliveryPartnerID    *uuid.UUID          `json:"deliveryPartnerId,omitempty"`
	ServiceType          enums.ServiceType   `json:"serviceType"`
	Status               enums.OrderStatus   `json:"status"`
	Items                []OrderItem         `json:"items,omitempty"`
	TotalAmount          decimal.Decimal     `json:"totalAmount"`
	DeliveryFee          decimal.Decimal     `json:"deliveryFee"`
	Taxes                decimal.Decimal     `json:"taxes"`
	Discount             decimal.Decimal     `json:"discount"`
	FinalAmount          decimal.Decimal     `json:"finalAmount"`
	PaymentMethod        enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus        enums.PaymentStatus `json:"paymentStatus"`
	PaymentTransactionID *uuid.UUID          `json:"paymentTransactionId,omitempty"`
	PromoCode            *string             `json:"promoCode,omitempty"`
	DeliveryAddress      *Address            `json:"deliveryAddress,omitempty"`
	SpecialInstructions  *string             `json:"specialInstructions,omitempty"`

	// Transport only.
	VehicleType       *enums.VehicleType `json:"vehicleType,omitempty"`
	PickupLocation    *Location          `json:"pickupLocation,omitempty"`
	DropLocation      *Location          `json:"dropLocation,omitempty"`
	PickupAddress     string             `json:"pickupAddress,omitempty"`
	DropAddress       string             `json:"dropAddress,omitempty"`
	Fare              *FareBreakdown     `json:"fare,omitempty"`
	EstimatedDuration int                `json:"estimatedDurationMinutes,omitempty"`

	StatusHistory      []StatusChange `json:"statusHistory"`
	CancellationReason *string        `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	CancelledAt        *time.Time     `json:"cancelledAt,omitempty"`
	DeliveredAt        *time.Time     `json:"deliveredAt,omitempty"`
}

// OrderItem is a priced line copied from the catalog at checkout.
type OrderItem struct {
	ItemID   uuid.UUID       `json:"itemId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// FareBreakdown itemizes a ride fare.
type FareBreakdown struct {
	BaseFare        decimal.Decimal `json:"baseFare"`
	DistanceFare    decimal.Decimal `json:"distanceFare"`
	TimeFare        decimal.Decimal `json:"timeFare"`
	Total           decimal.Decimal `json:"total"`
	DistanceKM      float64         `json:"distanceKm"`
	DurationMinutes int             `json:"durationMinutes"`
}

// StatusChange records one applied transition.
type StatusChange struct {
	Status    enums.OrderStatus `json:"status"`
	ActorID   uuid.UUID         `json:"actorId"`
	ActorRole enums.Role        `json:"actorRole"`
	Note      string            `json:"note,omitempty"`
	At        time.Time         `json:"at"`
}

// SetAmounts stores the monetary breakdown and derives FinalAmount. The
// discount is clamped to the gross so FinalAmount never goes negative and
// FinalAmount = TotalAmount + DeliveryFee + Taxes - Discount always holds.
func (o *Order) SetAmounts(total, deliveryFee, taxes, discount decimal.Decimal) {
	o.TotalAmount = nonNegative(total)
	o.DeliveryFee = nonNegative(deliveryFee)
	o.Taxes = nonNegative(taxes)
	gross := o.TotalAmount.Add(o.DeliveryFee).Add(o.Taxes)
	o.Discount = decimal.Min(nonNegative(discount), gross)
	o.FinalAmount = gross.Sub(o.Discount)
}

// IsParty reports whether userID is the customer, vendor or assigned partner.
func (o Order) IsParty(userID uuid.UUID) bool {
	if o.CustomerID == userID {
		return true
	}
	if o.VendorID != nil && *o.VendorID == userID {
		return true
	}
	return o.DeliveryPartnerID != nil && *o.DeliveryPartnerID == userID
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
