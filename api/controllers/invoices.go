package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/acquiremock/acquiremock-backend/api/responses"
	"github.com/acquiremock/acquiremock-backend/api/validators"
	"github.com/acquiremock/acquiremock-backend/internal/payments"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

type createInvoiceRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Reference   string          `json:"reference" validate:"required,max=64"`
	WebhookURL  string          `json:"webhook_url" validate:"required,url"`
	RedirectURL string          `json:"redirect_url" validate:"required,url"`
}

type createInvoiceResponse struct {
	PaymentID string `json:"payment_id"`
	PageURL   string `json:"page_url"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

// CreateInvoice opens a payment for a merchant order and returns the hosted
// page URL.
func CreateInvoice(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createInvoiceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.CreateInvoice(ctx, payments.CreateInvoiceInput{
			Amount:      req.Amount,
			Reference:   req.Reference,
			WebhookURL:  req.WebhookURL,
			RedirectURL: req.RedirectURL,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createInvoiceResponse{
			PaymentID: result.Payment.ID.String(),
			PageURL:   result.PageURL,
			Status:    result.Payment.Status.String(),
			ExpiresAt: result.Payment.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}
