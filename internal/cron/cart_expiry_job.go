package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

const defaultCartTTL = 24 * time.Hour

type CartExpiryJobParams struct {
	Logger *logger.Logger
	Carts  cartExpirer
	TTL    time.Duration
}

type cartExpirer interface {
	ExpireIdle(ctx context.Context, idleFor time.Duration) (int, error)
}

// NewCartExpiryJob drops carts that have not been touched within TTL.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &cartExpiryJob{logg: params.Logger, carts: params.Carts, ttl: ttl}, nil
}

type cartExpiryJob struct {
	logg  *logger.Logger
	carts cartExpirer
	ttl   time.Duration
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

func (j *cartExpiryJob) Run(ctx context.Context) error {
	dropped, err := j.carts.ExpireIdle(ctx, j.ttl)
	if err != nil {
		return fmt.Errorf("cart expiry: %w", err)
	}
	if dropped > 0 {
		j.logg.Info(j.logg.WithField(ctx, "carts_dropped", dropped), "cron.cart_expiry")
	}
	return nil
}
