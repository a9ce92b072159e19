package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

// expirer transitions due payments. Satisfied by payments.Service.
type expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// ExpiryJobParams configure the pending-payment expiry sweep.
type ExpiryJobParams struct {
	Logger   *logger.Logger
	Payments expirer
	Interval time.Duration
}

type expiryJob struct {
	logg     *logger.Logger
	payments expirer
	interval time.Duration
	now      func() time.Time
}

// NewExpiryJob builds the sweep that expires payments whose checkout window
// has passed.
func NewExpiryJob(params ExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return &expiryJob{
		logg:     params.Logger,
		payments: params.Payments,
		interval: interval,
		now:      time.Now,
	}, nil
}

func (j *expiryJob) Name() string { return "payment-expiry" }

func (j *expiryJob) Interval() time.Duration { return j.interval }

func (j *expiryJob) Run(ctx context.Context) error {
	count, err := j.payments.ExpireDue(ctx, j.now().UTC())
	logCtx := j.logg.WithField(ctx, "count", count)
	if err != nil {
		// Partial progress still counts; the error carries the rows that
		// could not transition.
		j.logg.Error(logCtx, "expiry sweep finished with errors", err)
		return fmt.Errorf("expire due payments: %w", err)
	}
	j.logg.Info(logCtx, "expiry sweep complete")
	return nil
}
