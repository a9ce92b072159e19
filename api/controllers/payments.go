package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acquiremock/acquiremock-backend/api/responses"
	"github.com/acquiremock/acquiremock-backend/api/validators"
	"github.com/acquiremock/acquiremock-backend/internal/payments"
	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

const (
	deviceCookieName       = "am_device"
	idempotencyKeyHeader   = "Idempotency-Key"
	paymentIDRouteParam    = "paymentID"
	defaultDeviceCookieCap = 30 * 24 * time.Hour
)

type cardRequest struct {
	Number string `json:"number" validate:"required,min=12,max=23"`
	Expiry string `json:"expiry" validate:"required"`
	CVV    string `json:"cvv" validate:"required,min=3,max=4"`
}

type submitPaymentRequest struct {
	Email       string       `json:"email" validate:"required,email"`
	Card        *cardRequest `json:"card,omitempty"`
	SavedCardID string       `json:"saved_card_id,omitempty"`
	CVV         string       `json:"cvv,omitempty" validate:"omitempty,min=3,max=4"`
	SaveCard    bool         `json:"save_card,omitempty"`
	CSRFToken   string       `json:"csrf_token" validate:"required"`
}

type submitPaymentResponse struct {
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
	Step        string `json:"step"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Replayed    bool   `json:"replayed,omitempty"`
}

type verifyOTPRequest struct {
	Code string `json:"code" validate:"required,numeric"`
}

type verifyOTPResponse struct {
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url"`
}

type paymentView struct {
	PaymentID string `json:"payment_id"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	CardMask  string `json:"card_mask,omitempty"`
	ExpiresAt string `json:"expires_at"`
	PaidAt    string `json:"paid_at,omitempty"`
	CSRFToken string `json:"csrf_token,omitempty"`
}

// GetPayment renders the checkout page view: payment state plus a fresh CSRF
// token while the payment is still actionable.
func GetPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := validators.UUIDParam(r, paymentIDRouteParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.CheckoutPage(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentView(view.Payment, view.CSRFToken))
	}
}

// SubmitPayment processes the payer's card submission.
func SubmitPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := validators.UUIDParam(r, paymentIDRouteParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req submitPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := payments.SubmitInput{
			PaymentID:      id,
			Email:          req.Email,
			SavedCardCVV:   req.CVV,
			SaveCard:       req.SaveCard,
			CSRFToken:      req.CSRFToken,
			DeviceToken:    deviceTokenFromRequest(r),
			IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)),
		}
		if req.Card != nil {
			input.Card = &payments.CardInput{
				Number: req.Card.Number,
				Expiry: req.Card.Expiry,
				CVV:    req.Card.CVV,
			}
		}
		if req.SavedCardID != "" {
			savedID, parseErr := uuid.Parse(req.SavedCardID)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, validators.InvalidField("saved_card_id", "must be a valid UUID"))
				return
			}
			input.SavedCardID = &savedID
		}

		result, err := svc.Submit(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, submitPaymentResponse{
			PaymentID:   result.Payment.ID.String(),
			Status:      result.Payment.Status.String(),
			Step:        string(result.Step),
			RedirectURL: result.RedirectURL,
			Replayed:    result.Replayed,
		})
	}
}

// VerifyOTP answers the challenge and, on success, marks the payer's device
// as trusted via a cookie.
func VerifyOTP(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := validators.UUIDParam(r, paymentIDRouteParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req verifyOTPRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.VerifyOTP(ctx, payments.VerifyOTPInput{
			PaymentID: id,
			Code:      req.Code,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if result.DeviceToken != "" {
			http.SetCookie(w, &http.Cookie{
				Name:     deviceCookieName,
				Value:    result.DeviceToken,
				Path:     "/",
				MaxAge:   int(defaultDeviceCookieCap.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		responses.WriteSuccess(w, verifyOTPResponse{
			PaymentID:   result.Payment.ID.String(),
			Status:      result.Payment.Status.String(),
			RedirectURL: result.RedirectURL,
		})
	}
}

func deviceTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(deviceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func toPaymentView(payment *models.Payment, csrfToken string) paymentView {
	view := paymentView{
		PaymentID: payment.ID.String(),
		Reference: payment.Reference,
		Amount:    payment.Amount.StringFixed(2),
		Status:    payment.Status.String(),
		ExpiresAt: payment.ExpiresAt.UTC().Format(time.RFC3339),
		CSRFToken: csrfToken,
	}
	if payment.CardMask != nil {
		view.CardMask = *payment.CardMask
	}
	if payment.PaidAt != nil {
		view.PaidAt = payment.PaidAt.UTC().Format(time.RFC3339)
	}
	return view
}
