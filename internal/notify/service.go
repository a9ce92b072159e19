package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/acquiremock/acquiremock-backend/pkg/errors"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

// Receipt carries the fields rendered into the payment confirmation email.
type Receipt struct {
	PaymentID string
	Reference string
	Amount    decimal.Decimal
	CardMask  string
	PaidAt    time.Time
}

// Service composes and sends payer-facing emails.
type Service interface {
	SendOTPEmail(ctx context.Context, email, code string) error
	SendReceiptEmail(ctx context.Context, email string, receipt Receipt) error
}

type service struct {
	mailer Mailer
	logg   *logger.Logger
}

// NewService wires the notification service.
func NewService(mailer Mailer, logg *logger.Logger) (Service, error) {
	if mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mailer required")
	}
	return &service{mailer: mailer, logg: logg}, nil
}

func (s *service) SendOTPEmail(ctx context.Context, email, code string) error {
	msg := Message{
		To:      email,
		Subject: "Your payment confirmation code",
		Body: fmt.Sprintf(
			"Your one-time confirmation code is: %s\n\nEnter it on the payment page to complete your purchase.\nIf you did not initiate this payment, ignore this email.\n",
			code,
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send otp email")
	}
	return nil
}

func (s *service) SendReceiptEmail(ctx context.Context, email string, receipt Receipt) error {
	msg := Message{
		To:      email,
		Subject: fmt.Sprintf("Payment receipt for order %s", receipt.Reference),
		Body: fmt.Sprintf(
			"Your payment was successful.\n\nOrder: %s\nAmount: %s\nCard: %s\nPaid at: %s\nPayment ID: %s\n",
			receipt.Reference,
			receipt.Amount.StringFixed(2),
			receipt.CardMask,
			receipt.PaidAt.UTC().Format(time.RFC3339),
			receipt.PaymentID,
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send receipt email")
	}
	return nil
}
