package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/acquiremock/acquiremock-backend/api/responses"
	"github.com/acquiremock/acquiremock-backend/api/validators"
	"github.com/acquiremock/acquiremock-backend/internal/payments"
	"github.com/acquiremock/acquiremock-backend/internal/webhooks"
	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

type verifySignatureRequest struct {
	Payload   json.RawMessage `json:"payload" validate:"required"`
	Signature string          `json:"signature" validate:"required"`
}

type verifySignatureResponse struct {
	Valid bool `json:"valid"`
}

// VerifyWebhookSignature lets merchants check a notification they received
// against the shared secret.
func VerifyWebhookSignature(verifier *webhooks.Verifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req verifySignatureRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Re-decode into a generic value so verification sees the same
		// canonical form the sender signed.
		var payload any
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			responses.WriteError(ctx, logg, w, validators.InvalidField("payload", "must be a JSON object"))
			return
		}

		responses.WriteSuccess(w, verifySignatureResponse{
			Valid: verifier.Verify(payload, req.Signature),
		})
	}
}

// deliveryHistory is the slice of the webhook engine the audit endpoint reads.
type deliveryHistory interface {
	History(ctx context.Context, paymentID uuid.UUID) ([]models.WebhookLog, error)
}

type webhookAttemptView struct {
	AttemptNumber  int    `json:"attempt_number"`
	Success        bool   `json:"success"`
	ResponseStatus *int   `json:"response_status,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	WebhookURL     string `json:"webhook_url"`
	CreatedAt      string `json:"created_at"`
}

type webhookHistoryResponse struct {
	PaymentID string               `json:"payment_id"`
	Attempts  []webhookAttemptView `json:"attempts"`
}

// WebhookHistory lists a payment's delivery attempts, oldest first. Merchants
// use it to audit what was sent and how their endpoint answered.
func WebhookHistory(svc payments.Service, history deliveryHistory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := validators.UUIDParam(r, paymentIDRouteParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if _, err := svc.Get(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		entries, err := history.History(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := webhookHistoryResponse{
			PaymentID: id.String(),
			Attempts:  make([]webhookAttemptView, 0, len(entries)),
		}
		for _, entry := range entries {
			view := webhookAttemptView{
				AttemptNumber:  entry.AttemptNumber,
				Success:        entry.Success,
				ResponseStatus: entry.ResponseStatus,
				WebhookURL:     entry.WebhookURL,
				CreatedAt:      entry.CreatedAt.UTC().Format(time.RFC3339),
			}
			if entry.ErrorMessage != nil {
				view.ErrorMessage = *entry.ErrorMessage
			}
			resp.Attempts = append(resp.Attempts, view)
		}

		responses.WriteSuccess(w, resp)
	}
}
