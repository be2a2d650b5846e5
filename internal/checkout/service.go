package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jebdekho/jebdekho-backend/internal/cart"
	"github.com/jebdekho/jebdekho-backend/internal/notifications"
	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/promo"
	"github.com/jebdekho/jebdekho-backend/internal/wallet"
	"github.com/jebdekho/jebdekho-backend/pkg/config"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

// Service places food orders, mart checkouts and ride bookings, and
// orchestrates the wallet side of payment and cancellation.
type Service interface {
	PlaceFoodOrder(ctx context.Context, actor orders.Actor, input FoodOrderInput) (models.Order, error)
	CheckoutCart(ctx context.Context, actor orders.Actor, input CartCheckoutInput) (models.Order, error)
	BookRide(ctx context.Context, actor orders.Actor, input BookingInput) (models.Order, error)

	OrderDetails(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*OrderDetails, error)
	BookingDetails(ctx context.Context, actor orders.Actor, bookingID uuid.UUID) (*OrderDetails, error)
	TrackBooking(ctx context.Context, actor orders.Actor, bookingID uuid.UUID) (*Tracking, error)

	Cancel(ctx context.Context, input orders.CancelInput) (*CancelResult, error)
	CancelBooking(ctx context.Context, input orders.CancelInput) (*CancelResult, error)
	PayOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*PaymentOutcome, error)
}

type vendorDirectory interface {
	Vendor(ctx context.Context, id uuid.UUID, businessType enums.ServiceType) (models.User, error)
	Get(ctx context.Context, id uuid.UUID) (models.User, error)
}

type menuLookup interface {
	MenuItem(ctx context.Context, id uuid.UUID) (models.MenuItem, error)
}

type cartStore interface {
	Get(ctx context.Context, userID uuid.UUID) (cart.View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type promoEvaluator interface {
	Validate(ctx context.Context, input promo.ValidateInput) (promo.Validation, error)
	Apply(ctx context.Context, userID, promoID uuid.UUID) error
}

type ledger interface {
	ProcessPayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID) (wallet.PaymentResult, error)
	Refund(ctx context.Context, input wallet.RefundInput) (wallet.Result, error)
}

type notificationSender interface {
	Send(ctx context.Context, input notifications.SendInput) (models.Notification, error)
}

// Publisher pushes live events to relay channels.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, data any) error
}

// Deps groups the collaborators checkout orchestrates.
type Deps struct {
	Orders        orders.Service
	Matcher       orders.DriverMatcher
	Users         vendorDirectory
	Menu          menuLookup
	Carts         cartStore
	Promos        promoEvaluator
	Wallet        ledger
	Notifications notificationSender
	Publisher     Publisher
}

type service struct {
	Deps
	pricing config.MarketplaceConfig
	logg    *logger.Logger
	now     func() time.Time

	// per customer and promo code, held from validation until usage is recorded
	promoLocks sync.Map
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(deps Deps, pricing config.MarketplaceConfig, logg *logger.Logger, opts ...Option) (Service, error) {
	switch {
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders service required")
	case deps.Matcher == nil:
		return nil, fmt.Errorf("driver matcher required")
	case deps.Users == nil:
		return nil, fmt.Errorf("user directory required")
	case deps.Menu == nil:
		return nil, fmt.Errorf("menu lookup required")
	case deps.Carts == nil:
		return nil, fmt.Errorf("cart service required")
	case deps.Promos == nil:
		return nil, fmt.Errorf("promo service required")
	case deps.Wallet == nil:
		return nil, fmt.Errorf("wallet service required")
	case deps.Notifications == nil:
		return nil, fmt.Errorf("notification service required")
	case deps.Publisher == nil:
		return nil, fmt.Errorf("relay publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &service{Deps: deps, pricing: pricing, logg: logg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
