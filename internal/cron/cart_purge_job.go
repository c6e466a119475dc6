package cron

import (
	"context"
	"fmt"

	"github.com/lavish-fashion/lavish-backend/pkg/logger"
)

type cartPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// NewCartPurgeJob deletes carts whose expiry passed.
func NewCartPurgeJob(logg *logger.Logger, carts cartPurger) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &cartPurgeJob{logg: logg, carts: carts}, nil
}

type cartPurgeJob struct {
	logg  *logger.Logger
	carts cartPurger
}

func (j *cartPurgeJob) Name() string { return "cart-purge" }

func (j *cartPurgeJob) Run(ctx context.Context) error {
	n, err := j.carts.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired carts: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "carts_deleted", n), "expired carts purged")
	return nil
}
