package reviews

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/pagination"
)

type fakeOrders map[uuid.UUID]models.Order

func (f fakeOrders) Get(_ context.Context, id uuid.UUID) (models.Order, error) {
	o, ok := f[id]
	if !ok {
		return models.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
	}
	return o, nil
}

type fixture struct {
	svc      Service
	users    users.Service
	orders   fakeOrders
	vendor   models.User
	customer models.User
	other    models.User
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{orders: fakeOrders{}, clock: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)}

	repo := users.NewMemoryRepository(nil)
	mk := func(role enums.Role, phone, first string) models.User {
		u := models.User{ID: uuid.New(), Email: phone + "@jebdekho.test", Phone: phone, FirstName: first, LastName: "K", Role: role, Status: enums.UserStatusActive}
		if role == enums.RoleVendor {
			u.Vendor = &models.VendorProfile{BusinessName: "Biryani House", BusinessType: enums.ServiceTypeFood}
		}
		require.NoError(t, repo.Create(ctx, u))
		return u
	}
	f.vendor = mk(enums.RoleVendor, "9100000001", "Vendor")
	f.customer = mk(enums.RoleCustomer, "9100000002", "Meera")
	f.other = mk(enums.RoleCustomer, "9100000003", "Ravi")

	userSvc, err := users.NewService(repo, nil)
	require.NoError(t, err)
	f.users = userSvc

	svc, err := NewService(NewMemoryRepository(nil), f.orders, userSvc, nil, func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) order(customer uuid.UUID) uuid.UUID {
	vendor := f.vendor.ID
	o := models.Order{ID: uuid.New(), CustomerID: customer, VendorID: &vendor, ServiceType: enums.ServiceTypeFood, Status: enums.OrderStatusDelivered}
	f.orders[o.ID] = o
	return o.ID
}

func (f *fixture) vendorRating(t *testing.T) (float64, int) {
	t.Helper()
	v, err := f.users.Get(context.Background(), f.vendor.ID)
	require.NoError(t, err)
	return v.Vendor.Rating, v.Vendor.TotalRatings
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestCreateRecomputesVendorRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.customer.ID, CreateInput{OrderID: f.order(f.customer.ID), Rating: 5, Comment: " great "})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.other.ID, CreateInput{OrderID: f.order(f.other.ID), Rating: 4})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.customer.ID, CreateInput{OrderID: f.order(f.customer.ID), Rating: 4})
	require.NoError(t, err)

	avg, count := f.vendorRating(t)
	assert.Equal(t, 4.3, avg)
	assert.Equal(t, 3, count)

	page, err := f.svc.ForVendor(ctx, f.vendor.ID, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Pagination.TotalItems)
	assert.True(t, page.Pagination.HasNextPage)
	require.NotNil(t, page.Items[0].Customer)
	assert.Equal(t, "Meera K", page.Items[0].Customer.Name)
	assert.Equal(t, "Ravi K", page.Items[1].Customer.Name)
}

func TestCreateGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own := f.order(f.customer.ID)

	_, err := f.svc.Create(ctx, f.other.ID, CreateInput{OrderID: own, Rating: 3})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Create(ctx, f.customer.ID, CreateInput{OrderID: own, Rating: 6})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, f.customer.ID, CreateInput{OrderID: uuid.New(), Rating: 3})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.Create(ctx, f.customer.ID, CreateInput{OrderID: own, Rating: 3})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.customer.ID, CreateInput{OrderID: own, Rating: 2})
	requireCode(t, err, pkgerrors.CodeConflict)

	ride := models.Order{ID: uuid.New(), CustomerID: f.customer.ID, ServiceType: enums.ServiceTypeTransport}
	f.orders[ride.ID] = ride
	_, err = f.svc.Create(ctx, f.customer.ID, CreateInput{OrderID: ride.ID, Rating: 3})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateAndDeleteAreAuthorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	review, err := f.svc.Create(ctx, f.customer.ID, CreateInput{OrderID: f.order(f.customer.ID), Rating: 2, Comment: "cold"})
	require.NoError(t, err)

	five := 5
	_, err = f.svc.Update(ctx, f.other.ID, review.ID, UpdateInput{Rating: &five})
	requireCode(t, err, pkgerrors.CodeForbidden)

	updated, err := f.svc.Update(ctx, f.customer.ID, review.ID, UpdateInput{Rating: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "cold", updated.Comment)
	avg, count := f.vendorRating(t)
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 1, count)

	requireCode(t, f.svc.Delete(ctx, f.other.ID, review.ID), pkgerrors.CodeForbidden)
	require.NoError(t, f.svc.Delete(ctx, f.customer.ID, review.ID))
	avg, count = f.vendorRating(t)
	assert.Zero(t, avg)
	assert.Zero(t, count)

	requireCode(t, f.svc.Delete(ctx, f.customer.ID, review.ID), pkgerrors.CodeNotFound)
}

func TestForVendorUnknownVendor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ForVendor(context.Background(), f.customer.ID, pagination.Params{})
	requireCode(t, err, pkgerrors.CodeNotFound)
}
