package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

type fakeCarts struct {
	idleFor time.Duration
	dropped int
	err     error
}

func (f *fakeCarts) ExpireIdle(_ context.Context, idleFor time.Duration) (int, error) {
	f.idleFor = idleFor
	return f.dropped, f.err
}

func TestCartExpiryJob(t *testing.T) {
	carts := &fakeCarts{dropped: 3}
	job, err := NewCartExpiryJob(CartExpiryJobParams{Logger: logger.Nop(), Carts: carts})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "cart-expiry", job.Name())
	assert.Equal(t, 24*time.Hour, carts.idleFor)

	carts.err = errors.New("store down")
	assert.Error(t, job.Run(context.Background()))
}

func TestCartExpiryJobCustomTTL(t *testing.T) {
	carts := &fakeCarts{}
	job, err := NewCartExpiryJob(CartExpiryJobParams{Logger: logger.Nop(), Carts: carts, TTL: 90 * time.Minute})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 90*time.Minute, carts.idleFor)

	_, err = NewCartExpiryJob(CartExpiryJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
	_, err = NewCartExpiryJob(CartExpiryJobParams{Carts: carts})
	assert.Error(t, err)
}
