package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jebdekho/jebdekho-backend/internal/cart"
	"github.com/jebdekho/jebdekho-backend/internal/catalog"
	"github.com/jebdekho/jebdekho-backend/internal/dispatch"
	"github.com/jebdekho/jebdekho-backend/internal/notifications"
	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/promo"
	"github.com/jebdekho/jebdekho-backend/internal/relay"
	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/internal/wallet"
	"github.com/jebdekho/jebdekho-backend/pkg/config"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type harness struct {
	svc           Service
	orders        orders.Service
	users         users.Service
	userRepo      users.Repository
	catalog       catalog.Service
	carts         cart.Service
	promos        promo.Service
	wallet        wallet.Service
	notifications notifications.Service
	hub           *relay.Hub

	customer   models.User
	restaurant models.User
	rival      models.User
	store      models.User
}

func account(role enums.Role, phone string) models.User {
	id := uuid.New()
	u := models.User{
		ID:        id,
		Email:     id.String() + "@jebdekho.test",
		Phone:     phone,
		FirstName: "Test",
		Role:      role,
		Status:    enums.UserStatusActive,
		CreatedAt: testNow,
	}
	return u
}

func vendorAccount(name string, kind enums.ServiceType, phone string) models.User {
	u := account(enums.RoleVendor, phone)
	u.Vendor = &models.VendorProfile{BusinessName: name, BusinessType: kind, IsOpen: true}
	return u
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{
		customer:   account(enums.RoleCustomer, "9000000001"),
		restaurant: vendorAccount("Spice Hub", enums.ServiceTypeFood, "9000000002"),
		rival:      vendorAccount("Dosa Corner", enums.ServiceTypeFood, "9000000003"),
		store:      vendorAccount("Daily Mart", enums.ServiceTypeMart, "9000000004"),
		hub:        relay.NewHub("test", 16, nil),
	}
	h.userRepo = users.NewMemoryRepository(nil)
	for _, u := range []models.User{h.customer, h.restaurant, h.rival, h.store} {
		require.NoError(t, h.userRepo.Create(ctx, u))
	}

	var err error
	h.users, err = users.NewService(h.userRepo, clock)
	require.NoError(t, err)
	h.catalog, err = catalog.NewService(catalog.NewMemoryRepository(nil, nil), h.users, h.hub, nil, clock)
	require.NoError(t, err)
	h.carts, err = cart.NewService(cart.NewMemoryRepository(nil), h.catalog, clock)
	require.NoError(t, err)
	h.notifications, err = notifications.NewService(notifications.NewMemoryRepository(nil), h.hub, nil, clock)
	require.NoError(t, err)
	matcher, err := dispatch.NewFirstMatch(h.users)
	require.NoError(t, err)
	h.orders, err = orders.NewService(orders.NewMemoryRepository(nil), matcher, notifications.NewOrderNotifier(h.notifications, h.hub), nil, orders.WithClock(clock))
	require.NoError(t, err)
	h.promos, err = promo.NewService(promo.NewMemoryRepository(nil), h.orders, clock)
	require.NoError(t, err)
	_, err = promo.SeedDefaults(ctx, h.promos, testNow)
	require.NoError(t, err)
	h.wallet, err = wallet.NewService(wallet.NewMemoryRepository(nil), nil, wallet.WithClock(clock))
	require.NoError(t, err)

	h.svc, err = NewService(Deps{
		Orders:        h.orders,
		Matcher:       matcher,
		Users:         h.users,
		Menu:          h.catalog,
		Carts:         h.carts,
		Promos:        h.promos,
		Wallet:        h.wallet,
		Notifications: h.notifications,
		Publisher:     h.hub,
	}, config.DefaultMarketplace(), nil, WithClock(clock))
	require.NoError(t, err)
	return h
}

func (h *harness) dish(t *testing.T, vendorID uuid.UUID, price int64) models.MenuItem {
	t.Helper()
	item, err := h.catalog.AddMenuItem(context.Background(), vendorID, catalog.MenuItemInput{
		Name: "Thali", Category: "Mains", Price: decimal.NewFromInt(price), IsAvailable: true,
	})
	require.NoError(t, err)
	return item
}

func (h *harness) topUp(t *testing.T, amount int64) {
	t.Helper()
	_, err := h.wallet.Credit(context.Background(), wallet.CreditInput{UserID: h.customer.ID, Amount: decimal.NewFromInt(amount), Method: "UPI"})
	require.NoError(t, err)
}

func (h *harness) actor() orders.Actor {
	return orders.Actor{ID: h.customer.ID, Role: enums.RoleCustomer}
}

func (h *harness) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	w, err := h.wallet.Wallet(context.Background(), h.customer.ID)
	require.NoError(t, err)
	return w.Balance
}

func address() *models.Address {
	return &models.Address{Line1: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001", Type: enums.AddressTypeHome}
}

func rupees(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestFoodOrderWithPromoAndWallet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.dish(t, h.restaurant.ID, 150)
	h.topUp(t, 500)

	order, err := h.svc.PlaceFoodOrder(ctx, h.actor(), FoodOrderInput{
		VendorID:        h.restaurant.ID,
		Items:           []LineInput{{ID: item.ID, Quantity: 2}},
		DeliveryAddress: address(),
		PaymentMethod:   enums.PaymentMethodWallet,
		PromoCode:       "welcome50",
	})
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(rupees(300)))
	assert.True(t, order.DeliveryFee.Equal(rupees(40)))
	assert.True(t, order.Taxes.Equal(rupees(15)))
	assert.True(t, order.Discount.Equal(rupees(150)))
	assert.True(t, order.FinalAmount.Equal(rupees(205)), "final %s", order.FinalAmount)
	assert.Equal(t, enums.PaymentStatusSuccess, order.PaymentStatus)
	require.NotNil(t, order.PromoCode)
	assert.Equal(t, "WELCOME50", *order.PromoCode)
	assert.Regexp(t, `^FOOD\d{6}$`, order.OrderNumber)
	assert.True(t, h.balance(t).Equal(rupees(295)))

	_, err = h.promos.Validate(ctx, promo.ValidateInput{Code: "WELCOME50", UserID: h.customer.ID, OrderValue: rupees(300), ServiceType: enums.ServiceTypeFood})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePromoUsageExceeded))

	inbox, err := h.notifications.List(ctx, notifications.ListParams{UserID: h.restaurant.ID})
	require.NoError(t, err)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, "New Order Received", inbox.Items[0].Title)
	assert.Equal(t, "You have a new order #"+order.OrderNumber, inbox.Items[0].Message)
}

func TestDeclinedWalletStoresNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.dish(t, h.restaurant.ID, 200)
	h.topUp(t, 100)

	_, err := h.svc.PlaceFoodOrder(ctx, h.actor(), FoodOrderInput{
		VendorID:        h.restaurant.ID,
		Items:           []LineInput{{ID: item.ID, Quantity: 1}},
		DeliveryAddress: address(),
		PaymentMethod:   enums.PaymentMethodWallet,
		PromoCode:       "WELCOME50",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePaymentDeclined))

	all, err := h.orders.All(ctx, orders.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.True(t, h.balance(t).Equal(rupees(100)))

	_, err = h.promos.Validate(ctx, promo.ValidateInput{Code: "WELCOME50", UserID: h.customer.ID, OrderValue: rupees(200), ServiceType: enums.ServiceTypeFood})
	assert.NoError(t, err, "a declined order does not consume the promo")
}

func TestFoodOrderValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cheap := h.dish(t, h.restaurant.ID, 60)
	foreign := h.dish(t, h.rival.ID, 200)

	_, err := h.svc.PlaceFoodOrder(ctx, h.actor(), FoodOrderInput{
		VendorID: h.restaurant.ID, Items: []LineInput{{ID: cheap.ID, Quantity: 2}},
		DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "Minimum order value is ₹150", pkgerrors.As(err).Message())

	_, err = h.svc.PlaceFoodOrder(ctx, h.actor(), FoodOrderInput{
		VendorID: h.restaurant.ID, Items: []LineInput{{ID: foreign.ID, Quantity: 1}},
		DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.Equal(t, "Invalid menu item: "+foreign.ID.String(), pkgerrors.As(err).Message())

	_, err = h.svc.PlaceFoodOrder(ctx, h.actor(), FoodOrderInput{
		VendorID: h.store.ID, Items: []LineInput{{ID: cheap.ID, Quantity: 3}},
		DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodCash,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestFreeDeliveryAndCashStatus(t *testing.T) {
	h := newHarness(t)
	item := h.dish(t, h.restaurant.ID, 100)

	order, err := h.svc.PlaceFoodOrder(context.Background(), h.actor(), FoodOrderInput{
		VendorID: h.restaurant.ID, Items: []LineInput{{ID: item.ID, Quantity: 3}},
		DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodCash, PromoCode: "FREEDEL",
	})
	require.NoError(t, err)
	assert.True(t, order.DeliveryFee.IsZero())
	assert.True(t, order.Discount.IsZero())
	assert.True(t, order.FinalAmount.Equal(rupees(315)))
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)

	card, err := h.svc.PlaceFoodOrder(context.Background(), h.actor(), FoodOrderInput{
		VendorID: h.restaurant.ID, Items: []LineInput{{ID: item.ID, Quantity: 2}},
		DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodCard,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusProcessing, card.PaymentStatus)
}

func TestCartCheckout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CheckoutCart(ctx, h.actor(), CartCheckoutInput{DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodCash})
	require.Error(t, err)
	assert.Equal(t, "Cart is empty", pkgerrors.As(err).Message())

	rice, err := h.catalog.AddProduct(ctx, h.store.ID, catalog.ProductInput{Name: "Rice", Category: "Staples", Price: rupees(125), Stock: 10, IsAvailable: true})
	require.NoError(t, err)
	_, err = h.carts.Add(ctx, h.customer.ID, rice.ID, 1)
	require.NoError(t, err)

	_, err = h.svc.CheckoutCart(ctx, h.actor(), CartCheckoutInput{DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodCash})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "125 is under the mart minimum")

	_, err = h.carts.Add(ctx, h.customer.ID, rice.ID, 1)
	require.NoError(t, err)
	order, err := h.svc.CheckoutCart(ctx, h.actor(), CartCheckoutInput{DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodUPI})
	require.NoError(t, err)
	assert.Equal(t, enums.ServiceTypeMart, order.ServiceType)
	require.NotNil(t, order.VendorID)
	assert.Equal(t, h.store.ID, *order.VendorID)
	assert.Regexp(t, `^MART\d{6}$`, order.OrderNumber)
	assert.True(t, order.FinalAmount.Equal(rupees(250+40+13)), "final %s", order.FinalAmount)

	view, err := h.carts.Get(ctx, h.customer.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestBookRide(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	input := BookingInput{
		Pickup:        models.Location{Latitude: 12.9716, Longitude: 77.5946},
		Drop:          models.Location{Latitude: 12.9352, Longitude: 77.6245},
		VehicleType:   enums.VehicleTypeBike,
		PaymentMethod: enums.PaymentMethodCash,
	}

	_, err := h.svc.BookRide(ctx, h.actor(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, "No drivers available", pkgerrors.As(err).Message())

	driver := account(enums.RoleDeliveryPartner, "9000000005")
	driver.Driver = &models.DriverProfile{VehicleType: enums.VehicleTypeBike, IsOnline: true}
	require.NoError(t, h.userRepo.Create(ctx, driver))

	booking, err := h.svc.BookRide(ctx, h.actor(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, booking.Status)
	require.NotNil(t, booking.DeliveryPartnerID)
	assert.Equal(t, driver.ID, *booking.DeliveryPartnerID)
	assert.Nil(t, booking.VendorID)
	require.NotNil(t, booking.Fare)
	assert.True(t, booking.TotalAmount.Equal(booking.Fare.Total))
	assert.True(t, booking.Taxes.Equal(booking.Fare.Total.Mul(decimal.NewFromInt(5)).Div(decimal.NewFromInt(100)).Round(0)))
	assert.Regexp(t, `^TRN\d{6}$`, booking.OrderNumber)

	inbox, err := h.notifications.List(ctx, notifications.ListParams{UserID: driver.ID})
	require.NoError(t, err)
	assert.Len(t, inbox.Items, 1)

	tracking, err := h.svc.TrackBooking(ctx, orders.Actor{ID: driver.ID, Role: enums.RoleDeliveryPartner}, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, tracking.CurrentStatus)
	assert.NotNil(t, tracking.EstimatedArrival)

	_, err = h.svc.CancelBooking(ctx, orders.CancelInput{OrderID: booking.ID, Actor: orders.Actor{ID: driver.ID, Role: enums.RoleDeliveryPartner}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.BookingDetails(ctx, orders.Actor{ID: uuid.New(), Role: enums.RoleCustomer}, booking.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestCancelRefundsWalletPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.dish(t, h.restaurant.ID, 200)
	h.topUp(t, 500)

	order, err := h.svc.PlaceFoodOrder(ctx, h.actor(), FoodOrderInput{
		VendorID: h.restaurant.ID, Items: []LineInput{{ID: item.ID, Quantity: 1}},
		DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodWallet,
	})
	require.NoError(t, err)
	assert.True(t, h.balance(t).Equal(rupees(500-250)))

	result, err := h.svc.Cancel(ctx, orders.CancelInput{OrderID: order.ID, Actor: h.actor(), Reason: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, result.Order.Status)
	require.NotNil(t, result.Refund)
	assert.True(t, result.Refund.Transaction.Amount.Equal(rupees(250)))
	assert.True(t, h.balance(t).Equal(rupees(500)))

	_, err = h.svc.Cancel(ctx, orders.CancelInput{OrderID: order.ID, Actor: h.actor()})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
	assert.True(t, h.balance(t).Equal(rupees(500)), "a second cancel never refunds twice")
}

func TestCancelUnpaidOrderSkipsRefund(t *testing.T) {
	h := newHarness(t)
	item := h.dish(t, h.restaurant.ID, 200)
	order, err := h.svc.PlaceFoodOrder(context.Background(), h.actor(), FoodOrderInput{
		VendorID: h.restaurant.ID, Items: []LineInput{{ID: item.ID, Quantity: 1}},
		DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodCash,
	})
	require.NoError(t, err)

	result, err := h.svc.Cancel(context.Background(), orders.CancelInput{OrderID: order.ID, Actor: h.actor()})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, result.Order.Status)
	assert.Nil(t, result.Refund)
}

func TestPayOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.dish(t, h.restaurant.ID, 200)
	order, err := h.svc.PlaceFoodOrder(ctx, h.actor(), FoodOrderInput{
		VendorID: h.restaurant.ID, Items: []LineInput{{ID: item.ID, Quantity: 1}},
		DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodUPI,
	})
	require.NoError(t, err)

	_, err = h.svc.PayOrder(ctx, h.actor(), order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePaymentDeclined))

	_, err = h.svc.PayOrder(ctx, orders.Actor{ID: h.restaurant.ID, Role: enums.RoleVendor}, order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	h.topUp(t, 300)
	outcome, err := h.svc.PayOrder(ctx, h.actor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccess, outcome.Order.PaymentStatus)
	assert.True(t, outcome.Payment.Success)
	assert.True(t, h.balance(t).Equal(rupees(50)))

	_, err = h.svc.PayOrder(ctx, h.actor(), order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestOrderDetailsAccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.dish(t, h.restaurant.ID, 200)
	order, err := h.svc.PlaceFoodOrder(ctx, h.actor(), FoodOrderInput{
		VendorID: h.restaurant.ID, Items: []LineInput{{ID: item.ID, Quantity: 1}},
		DeliveryAddress: address(), PaymentMethod: enums.PaymentMethodCash,
	})
	require.NoError(t, err)

	details, err := h.svc.OrderDetails(ctx, orders.Actor{ID: h.restaurant.ID, Role: enums.RoleVendor}, order.ID)
	require.NoError(t, err)
	require.NotNil(t, details.Restaurant)
	assert.Equal(t, "Spice Hub", details.Restaurant.Name)
	require.NotNil(t, details.Customer)
	assert.Nil(t, details.Driver)

	_, err = h.svc.OrderDetails(ctx, orders.Actor{ID: h.rival.ID, Role: enums.RoleVendor}, order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.OrderDetails(ctx, orders.Actor{ID: uuid.New(), Role: enums.RoleAdmin}, order.ID)
	assert.NoError(t, err)
}

func TestConcurrentCheckoutsConsumePromoOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.dish(t, h.restaurant.ID, 150)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.PlaceFoodOrder(ctx, h.actor(), FoodOrderInput{
				VendorID:        h.restaurant.ID,
				Items:           []LineInput{{ID: item.ID, Quantity: 2}},
				DeliveryAddress: address(),
				PaymentMethod:   enums.PaymentMethodCash,
				PromoCode:       "WELCOME50",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	placed := 0
	for err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePromoUsageExceeded), "unexpected error %v", err)
	}
	assert.Equal(t, 1, placed)
}
