package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/acquiremock/acquiremock-backend/pkg/config"
	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
	"github.com/acquiremock/acquiremock-backend/pkg/enums"
	pkgerrors "github.com/acquiremock/acquiremock-backend/pkg/errors"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
	"github.com/acquiremock/acquiremock-backend/pkg/metrics"
	"github.com/acquiremock/acquiremock-backend/pkg/signature"
)

const (
	headerSignature = "X-Signature"
	headerPaymentID = "X-Payment-ID"

	// Merchant response bodies are stored for debugging only.
	maxStoredResponseBody = 1000
)

// httpDoer is the slice of *http.Client the engine needs.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// attemptRecorder updates the payment's delivery counters after each attempt.
// Satisfied by the payments repository.
type attemptRecorder interface {
	RecordWebhookAttempt(ctx context.Context, id uuid.UUID, attempts int, at time.Time, status enums.WebhookStatus) error
}

// Engine performs single webhook delivery attempts. Retry scheduling lives in
// the reconciler; the engine itself never loops.
type Engine struct {
	codec    *signature.Codec
	client   httpDoer
	logs     LogRepository
	payments attemptRecorder
	logg     *logger.Logger
	metrics  *metrics.WebhookMetrics
	timeout  time.Duration
	now      func() time.Time
}

// EngineParams lists the delivery engine dependencies.
type EngineParams struct {
	Codec    *signature.Codec
	Client   httpDoer
	Logs     LogRepository
	Payments attemptRecorder
	Logger   *logger.Logger
	Metrics  *metrics.WebhookMetrics
	Config   config.WebhookConfig
}

// NewEngine validates dependencies and builds the delivery engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Codec == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "signature codec required")
	}
	if params.Logs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook log repository required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "attempt recorder required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	client := params.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := params.Config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{
		codec:    params.Codec,
		client:   client,
		logs:     params.Logs,
		payments: params.Payments,
		logg:     params.Logger,
		metrics:  params.Metrics,
		timeout:  timeout,
		now:      time.Now,
	}, nil
}

// payloadFor builds the merchant notification. A map keeps the signed bytes
// and the request body identical: both go through the same canonical
// serialization.
func (e *Engine) payloadFor(payment *models.Payment) map[string]any {
	cardMask := ""
	if payment.CardMask != nil {
		cardMask = *payment.CardMask
	}
	return map[string]any{
		"payment_id": payment.ID.String(),
		"reference":  payment.Reference,
		"amount":     payment.Amount.InexactFloat64(),
		"status":     payment.Status.String(),
		"timestamp":  e.now().UTC().Format(time.RFC3339),
		"card_mask":  cardMask,
	}
}

// Deliver makes exactly one attempt against the payment's webhook URL and
// reports whether the merchant acknowledged it. Every attempt is logged and
// reflected in the payment's counters, successful or not.
func (e *Engine) Deliver(ctx context.Context, payment *models.Payment) bool {
	ctx = e.logg.WithPaymentID(ctx, payment.ID.String())
	attempt := payment.WebhookAttempts + 1

	payload := e.payloadFor(payment)
	body, err := json.Marshal(payload)
	if err != nil {
		e.logg.Error(ctx, "marshaling webhook payload failed", err)
		return false
	}
	sig := e.codec.Sign(payload)

	entry := &models.WebhookLog{
		PaymentID:     payment.ID,
		WebhookURL:    payment.WebhookURL,
		Payload:       string(body),
		Signature:     sig,
		AttemptNumber: attempt,
		CreatedAt:     e.now().UTC(),
	}

	status, respBody, sendErr := e.send(ctx, payment, body, sig)
	success := sendErr == nil && acknowledged(status)
	entry.Success = success
	if sendErr != nil {
		msg := sendErr.Error()
		entry.ErrorMessage = &msg
	} else {
		entry.ResponseStatus = &status
		truncated := truncate(respBody, maxStoredResponseBody)
		entry.ResponseBody = &truncated
	}

	if err := e.logs.Append(ctx, entry); err != nil {
		e.logg.Error(ctx, "appending webhook log failed", err)
	}

	deliveryStatus := enums.WebhookStatusFailed
	if success {
		deliveryStatus = enums.WebhookStatusSuccess
	}
	if err := e.payments.RecordWebhookAttempt(ctx, payment.ID, attempt, e.now().UTC(), deliveryStatus); err != nil {
		e.logg.Error(ctx, "recording webhook attempt failed", err)
	}
	payment.WebhookAttempts = attempt
	payment.WebhookStatus = deliveryStatus

	ctx = e.logg.WithField(ctx, "attempt", attempt)
	if success {
		e.metrics.IncAttempt("success")
		e.logg.Info(e.logg.WithField(ctx, "response_status", status), "webhook delivered")
	} else {
		e.metrics.IncAttempt("failure")
		if sendErr != nil {
			e.logg.Warn(e.logg.WithField(ctx, "error", sendErr.Error()), "webhook delivery failed")
		} else {
			e.logg.Warn(e.logg.WithField(ctx, "response_status", status), "webhook delivery rejected")
		}
	}
	return success
}

// History returns the payment's delivery audit trail, oldest attempt first.
func (e *Engine) History(ctx context.Context, paymentID uuid.UUID) ([]models.WebhookLog, error) {
	entries, err := e.logs.ListByPayment(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list webhook attempts")
	}
	return entries, nil
}

func (e *Engine) send(ctx context.Context, payment *models.Payment, body []byte, sig string) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, payment.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerSignature, sig)
	req.Header.Set(headerPaymentID, payment.ID.String())

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxStoredResponseBody+1))
	return resp.StatusCode, string(raw), nil
}

func acknowledged(status int) bool {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return true
	}
	return false
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
