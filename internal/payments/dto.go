package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
	"github.com/acquiremock/acquiremock-backend/pkg/enums"
)

// CreateInvoiceInput is the merchant-facing request to open a payment.
type CreateInvoiceInput struct {
	Amount      decimal.Decimal
	Reference   string
	WebhookURL  string
	RedirectURL string
}

// CreateInvoiceResult returns the opened payment and the hosted page URL the
// merchant redirects the payer to.
type CreateInvoiceResult struct {
	Payment *models.Payment
	PageURL string
}

// CheckoutView is what the hosted payment page needs to render: the payment
// plus a fresh CSRF token bound to it.
type CheckoutView struct {
	Payment   *models.Payment
	CSRFToken string
}

// CardInput carries raw card details from the payment form. Values are used
// in memory only; persistence sees hashes and masks.
type CardInput struct {
	Number string
	Expiry string
	CVV    string
}

// SubmitInput is the payer's attempt to pay an open invoice. SavedCardCVV is
// re-entered on every saved-card submission and checked against the stored
// hash.
type SubmitInput struct {
	PaymentID      uuid.UUID
	Email          string
	Card           *CardInput
	SavedCardID    *uuid.UUID
	SavedCardCVV   string
	SaveCard       bool
	CSRFToken      string
	DeviceToken    string
	IdempotencyKey string
}

// NextStep tells the checkout page what to show after a submit or replay.
type NextStep string

const (
	StepPending     NextStep = "pending"
	StepOTPRequired NextStep = "otp_required"
	StepPaid        NextStep = "paid"
	StepFailed      NextStep = "failed"
	StepExpired     NextStep = "expired"
)

func stepForStatus(status enums.PaymentStatus) NextStep {
	switch status {
	case enums.PaymentStatusWaitingForOTP:
		return StepOTPRequired
	case enums.PaymentStatusPaid:
		return StepPaid
	case enums.PaymentStatusFailed:
		return StepFailed
	case enums.PaymentStatusExpired:
		return StepExpired
	default:
		return StepPending
	}
}

// SubmitResult reports where the payment landed after a submit.
type SubmitResult struct {
	Payment      *models.Payment
	Step         NextStep
	RedirectURL  string
	Replayed     bool
	DeviceBypass bool
}

// VerifyOTPInput carries the payer's challenge answer.
type VerifyOTPInput struct {
	PaymentID uuid.UUID
	Code      string
}

// VerifyOTPResult returns the finalized payment plus the trusted-device token
// the transport layer should set as a cookie.
type VerifyOTPResult struct {
	Payment     *models.Payment
	DeviceToken string
	RedirectURL string
}

// UserInfoResult is what a returning payer sees about their own history:
// recent receipts plus the card references they can pay with again.
type UserInfoResult struct {
	Email      string
	Operations []models.SuccessfulOperation
	SavedCards []models.SavedCard
}
