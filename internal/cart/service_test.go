package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

type fakeProducts struct {
	rows map[uuid.UUID]models.Product
}

func (f fakeProducts) Product(_ context.Context, id uuid.UUID) (models.Product, error) {
	p, ok := f.rows[id]
	if !ok {
		return models.Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	return p, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func product(name string, price int64, stock int) models.Product {
	return models.Product{ID: uuid.New(), VendorID: uuid.New(), Name: name, Price: decimal.NewFromInt(price), Stock: stock, IsAvailable: true}
}

func newTestService(t *testing.T, c *clock, products ...models.Product) Service {
	t.Helper()
	rows := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		rows[p.ID] = p
	}
	svc, err := NewService(NewMemoryRepository(nil), fakeProducts{rows: rows}, c.now)
	require.NoError(t, err)
	return svc
}

func TestAddMergesLines(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	milk, bread := product("Milk", 30, 10), product("Bread", 45, 2)
	svc := newTestService(t, c, milk, bread)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Add(ctx, user, milk.ID, 2)
	require.NoError(t, err)
	_, err = svc.Add(ctx, user, bread.ID, 1)
	require.NoError(t, err)
	view, err := svc.Add(ctx, user, milk.ID, 3)
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, 6, view.ItemCount)
	assert.True(t, view.Total.Equal(decimal.NewFromInt(5*30+45)), "total %s", view.Total)
}

func TestAddValidation(t *testing.T) {
	c := &clock{t: time.Now()}
	bread := product("Bread", 45, 2)
	closed := product("Paneer", 90, 5)
	closed.IsAvailable = false
	svc := newTestService(t, c, bread, closed)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Add(ctx, user, bread.ID, 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = svc.Add(ctx, user, uuid.New(), 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Add(ctx, user, closed.ID, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Add(ctx, user, bread.ID, 2)
	require.NoError(t, err)
	_, err = svc.Add(ctx, user, bread.ID, 1)
	require.Error(t, err)
	assert.Equal(t, "Only 2 left in stock", pkgerrors.As(err).Message())
}

func TestUpdateAndRemove(t *testing.T) {
	c := &clock{t: time.Now()}
	milk, bread := product("Milk", 30, 10), product("Bread", 45, 5)
	svc := newTestService(t, c, milk, bread)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Add(ctx, user, milk.ID, 1)
	require.NoError(t, err)
	_, err = svc.Update(ctx, user, bread.ID, 2)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	view, err := svc.Update(ctx, user, milk.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Items[0].Quantity)

	view, err = svc.Update(ctx, user, milk.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Total.IsZero())

	_, err = svc.Remove(ctx, user, milk.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestClearAndExpireIdle(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	milk := product("Milk", 30, 10)
	svc := newTestService(t, c, milk)
	ctx := context.Background()
	stale, fresh, cleared := uuid.New(), uuid.New(), uuid.New()

	for _, u := range []uuid.UUID{stale, cleared} {
		_, err := svc.Add(ctx, u, milk.ID, 1)
		require.NoError(t, err)
	}
	require.NoError(t, svc.Clear(ctx, cleared))

	c.t = c.t.Add(20 * time.Hour)
	_, err := svc.Add(ctx, fresh, milk.ID, 1)
	require.NoError(t, err)

	c.t = c.t.Add(5 * time.Hour)
	expired, err := svc.ExpireIdle(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	view, err := svc.Get(ctx, stale)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	view, err = svc.Get(ctx, fresh)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}
