package reconciler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

const retrySweepBatch = 100

// retryableReader lists paid payments whose webhook still needs delivering.
// Satisfied by the payments repository.
type retryableReader interface {
	FindRetryableWebhooks(ctx context.Context, maxAttempts, limit int) ([]models.Payment, error)
}

// deliverer performs one delivery attempt. Satisfied by *webhooks.Engine.
type deliverer interface {
	Deliver(ctx context.Context, payment *models.Payment) bool
}

// WebhookRetryJobParams configure the webhook retry sweep.
type WebhookRetryJobParams struct {
	Logger      *logger.Logger
	Repo        retryableReader
	Deliverer   deliverer
	Interval    time.Duration
	MaxAttempts int
	BackoffBase float64
}

type webhookRetryJob struct {
	logg        *logger.Logger
	repo        retryableReader
	deliverer   deliverer
	interval    time.Duration
	maxAttempts int
	backoffBase float64
	sleep       func(ctx context.Context, d time.Duration)
}

// NewWebhookRetryJob builds the sweep that redelivers failed webhooks with
// exponential backoff per payment.
func NewWebhookRetryJob(params WebhookRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Deliverer == nil {
		return nil, fmt.Errorf("webhook deliverer required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	base := params.BackoffBase
	if base <= 1 {
		base = 2
	}
	return &webhookRetryJob{
		logg:        params.Logger,
		repo:        params.Repo,
		deliverer:   params.Deliverer,
		interval:    interval,
		maxAttempts: maxAttempts,
		backoffBase: base,
		sleep:       sleepCtx,
	}, nil
}

func (j *webhookRetryJob) Name() string { return "webhook-retry" }

func (j *webhookRetryJob) Interval() time.Duration { return j.interval }

func (j *webhookRetryJob) Run(ctx context.Context) error {
	due, err := j.repo.FindRetryableWebhooks(ctx, j.maxAttempts, retrySweepBatch)
	if err != nil {
		return fmt.Errorf("query retryable webhooks: %w", err)
	}

	redelivered := 0
	for i := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		payment := due[i]
		j.sleep(ctx, j.backoffFor(payment.WebhookAttempts))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if j.deliverer.Deliver(ctx, &payment) {
			redelivered++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":         len(due),
		"redelivered": redelivered,
	})
	j.logg.Info(logCtx, "webhook retry sweep complete")
	return nil
}

// backoffFor waits base^attempts seconds before the next try.
func (j *webhookRetryJob) backoffFor(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	seconds := math.Pow(j.backoffBase, float64(attempts))
	return time.Duration(seconds * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
