package payments

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/acquiremock/acquiremock-backend/internal/notify"
	"github.com/acquiremock/acquiremock-backend/pkg/config"
	"github.com/acquiremock/acquiremock-backend/pkg/db"
	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
	"github.com/acquiremock/acquiremock-backend/pkg/enums"
	pkgerrors "github.com/acquiremock/acquiremock-backend/pkg/errors"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
	"github.com/acquiremock/acquiremock-backend/pkg/otp"
)

const (
	expiredSweepBatch     = 500
	sideEffectTimeout     = 30 * time.Second
	recentOperationsLimit = 10
	declineErrorMessage   = "insufficient funds or invalid card"
)

// sessionManager is the checkout-session surface the state machine needs.
// Satisfied by *checkout.Manager.
type sessionManager interface {
	IssueCSRF(ctx context.Context, paymentID uuid.UUID) (string, error)
	VerifyCSRF(ctx context.Context, paymentID uuid.UUID, token string) error
	TrustDevice(ctx context.Context, email string) (string, error)
	TrustedEmail(ctx context.Context, token string) (string, bool)
}

// cardVault is the saved-card surface. Satisfied by cards.Service.
type cardVault interface {
	Get(ctx context.Context, id uuid.UUID) (*models.SavedCard, error)
	MatchesPAN(card *models.SavedCard, pan string) bool
	MatchesCVV(card *models.SavedCard, cvv string) bool
	ListByEmail(ctx context.Context, email string) ([]models.SavedCard, error)
	SaveIfAbsent(ctx context.Context, email, pan, cvv, expiry, mask string) (*models.SavedCard, error)
}

// notifier sends payer emails. Satisfied by notify.Service.
type notifier interface {
	SendOTPEmail(ctx context.Context, email, code string) error
	SendReceiptEmail(ctx context.Context, email string, receipt notify.Receipt) error
}

// webhookDeliverer performs a single delivery attempt. Satisfied by
// *webhooks.Engine.
type webhookDeliverer interface {
	Deliver(ctx context.Context, payment *models.Payment) bool
}

// Service drives the payment lifecycle.
type Service interface {
	CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*CreateInvoiceResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	CheckoutPage(ctx context.Context, id uuid.UUID) (*CheckoutView, error)
	Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error)
	VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyOTPResult, error)
	UserInfo(ctx context.Context, deviceToken string) (*UserInfoResult, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// ServiceParams lists the dependencies of the payment service.
type ServiceParams struct {
	Repo     Repository
	Cards    cardVault
	Sessions sessionManager
	Notify   notifier
	Webhooks webhookDeliverer
	Logger   *logger.Logger
	Config   config.PaymentsConfig
	BaseURL  string
}

type service struct {
	repo     Repository
	cards    cardVault
	sessions sessionManager
	notify   notifier
	webhooks webhookDeliverer
	logg     *logger.Logger
	cfg      config.PaymentsConfig
	baseURL  string

	now   func() time.Time
	spawn func(fn func())
}

// NewService validates dependencies and builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment repository required")
	}
	if params.Cards == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card vault required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session manager required")
	}
	if params.Notify == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if params.Webhooks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook deliverer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     params.Repo,
		cards:    params.Cards,
		sessions: params.Sessions,
		notify:   params.Notify,
		webhooks: params.Webhooks,
		logg:     params.Logger,
		cfg:      params.Config,
		baseURL:  strings.TrimRight(params.BaseURL, "/"),
		now:      time.Now,
		spawn:    func(fn func()) { go fn() },
	}, nil
}

func (s *service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*CreateInvoiceResult, error) {
	if !in.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	ref := strings.TrimSpace(in.Reference)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	if s.cfg.MaxReference > 0 && len(ref) > s.cfg.MaxReference {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("reference exceeds %d characters", s.cfg.MaxReference))
	}
	if err := validateCallbackURL(in.WebhookURL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook_url")
	}
	if err := validateCallbackURL(in.RedirectURL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid redirect_url")
	}

	nowT := s.now().UTC()
	payment := &models.Payment{
		ID:            uuid.New(),
		Amount:        in.Amount,
		Reference:     ref,
		WebhookURL:    in.WebhookURL,
		RedirectURL:   in.RedirectURL,
		Status:        enums.PaymentStatusPending,
		WebhookStatus: enums.WebhookStatusPending,
		CreatedAt:     nowT,
		UpdatedAt:     nowT,
		ExpiresAt:     nowT.Add(s.cfg.InvoiceTTL),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment")
	}

	ctx = s.logg.WithPaymentID(ctx, payment.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "reference", ref), "invoice created")

	return &CreateInvoiceResult{
		Payment: payment,
		PageURL: fmt.Sprintf("%s/payment/%s", s.baseURL, payment.ID),
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotFound, "payment not found").
			WithPaymentID(id.String())
	}
	return payment, nil
}

// CheckoutPage loads the payment for rendering and mints the CSRF token the
// page embeds into its form. Expiry is applied lazily here so a stale link
// never renders a payable page.
func (s *service) CheckoutPage(ctx context.Context, id uuid.UUID) (*CheckoutView, error) {
	payment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status == enums.PaymentStatusPending && payment.IsExpiredAt(s.now().UTC()) {
		if expired, lerr := s.lazyExpire(ctx, payment); lerr == nil && expired {
			payment.Status = enums.PaymentStatusExpired
		}
	}

	view := &CheckoutView{Payment: payment}
	if payment.Status == enums.PaymentStatusPending || payment.Status == enums.PaymentStatusWaitingForOTP {
		token, err := s.sessions.IssueCSRF(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
		view.CSRFToken = token
	}
	return view, nil
}

func (s *service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	ctx = s.logg.WithPaymentID(ctx, in.PaymentID.String())

	payment, err := s.Get(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}

	// The CSRF check comes first: even an idempotent replay only answers a
	// request that originated from the checkout page.
	if err := s.sessions.VerifyCSRF(ctx, payment.ID, in.CSRFToken); err != nil {
		return nil, err
	}

	// A key already bound to a payment replays that payment's outcome
	// instead of processing anything twice.
	if in.IdempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup idempotency key")
		}
		if existing != nil && (existing.ID != payment.ID || existing.Status != enums.PaymentStatusPending) {
			s.logg.Info(s.logg.WithField(ctx, "replayed_payment_id", existing.ID.String()),
				"idempotency key replay, returning prior outcome")
			return replayResult(existing), nil
		}
	}

	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "payment has already been processed").
			WithPaymentID(payment.ID.String())
	}

	if payment.IsExpiredAt(s.now().UTC()) {
		if _, lerr := s.lazyExpire(ctx, payment); lerr != nil {
			s.logg.Error(ctx, "lazy expiry failed", lerr)
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentExpired, "payment session has expired").
			WithPaymentID(payment.ID.String())
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer email is required")
	}

	card, err := s.resolveCard(ctx, email, in)
	if err != nil {
		return nil, err
	}

	if !card.valid {
		return s.decline(ctx, payment, email, card.mask, in.IdempotencyKey)
	}

	if in.SaveCard && card.rawPAN != "" {
		if _, err := s.cards.SaveIfAbsent(ctx, email, card.rawPAN, card.rawCVV, card.expiry, card.mask); err != nil {
			// Payment proceeds; the card just won't be reusable.
			s.logg.Error(ctx, "saving card failed", err)
		}
	}

	if trusted, ok := s.sessions.TrustedEmail(ctx, in.DeviceToken); ok && trusted == email {
		finalized, err := s.finalizeFrom(ctx, payment, enums.PaymentStatusPending,
			submitUpdates(email, card.mask, in.IdempotencyKey))
		if err != nil {
			return nil, err
		}
		s.logg.Info(ctx, "otp bypassed for trusted device")
		return &SubmitResult{
			Payment:      finalized,
			Step:         StepPaid,
			RedirectURL:  finalized.RedirectURL,
			DeviceBypass: true,
		}, nil
	}

	code, err := otp.Generate(s.cfg.OTPLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}

	updates := submitUpdates(email, card.mask, in.IdempotencyKey)
	updates["status"] = enums.PaymentStatusWaitingForOTP
	updates["otp_code"] = code

	changed, err := s.repo.UpdateStatusFrom(ctx, payment.ID, enums.PaymentStatusPending, updates)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_payments_idempotency_key") {
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used").
				WithPaymentID(payment.ID.String())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance payment to otp challenge")
	}
	if !changed {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "payment has already been processed").
			WithPaymentID(payment.ID.String())
	}

	payment.Status = enums.PaymentStatusWaitingForOTP
	payment.PayerEmail = &email
	payment.CardMask = &card.mask
	payment.OTPCode = &code
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		payment.IdempotencyKey = &key
	}

	s.spawn(func() {
		sideCtx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		sideCtx = s.logg.WithPaymentID(sideCtx, payment.ID.String())
		if err := s.notify.SendOTPEmail(sideCtx, email, code); err != nil {
			s.logg.Error(sideCtx, "sending otp email failed", err)
		}
	})

	s.logg.Info(ctx, "otp challenge issued")
	return &SubmitResult{Payment: payment, Step: StepOTPRequired}, nil
}

func (s *service) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyOTPResult, error) {
	ctx = s.logg.WithPaymentID(ctx, in.PaymentID.String())

	payment, err := s.Get(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case enums.PaymentStatusWaitingForOTP:
		// proceed with the challenge
	case enums.PaymentStatusExpired:
		return nil, pkgerrors.New(pkgerrors.CodePaymentExpired, "payment session has expired").
			WithPaymentID(payment.ID.String())
	case enums.PaymentStatusPaid, enums.PaymentStatusFailed:
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "payment has already been processed").
			WithPaymentID(payment.ID.String())
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOTP, "no active otp challenge").
			WithPaymentID(payment.ID.String())
	}

	if payment.OTPCode == nil ||
		subtle.ConstantTimeCompare([]byte(*payment.OTPCode), []byte(strings.TrimSpace(in.Code))) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOTP, "invalid or expired OTP code").
			WithPaymentID(payment.ID.String())
	}

	finalized, err := s.finalizeFrom(ctx, payment, enums.PaymentStatusWaitingForOTP, nil)
	if err != nil {
		return nil, err
	}

	var deviceToken string
	if finalized.PayerEmail != nil {
		token, terr := s.sessions.TrustDevice(ctx, *finalized.PayerEmail)
		if terr != nil {
			// The payment stands either way.
			s.logg.Error(ctx, "marking device trusted failed", terr)
		} else {
			deviceToken = token
		}
	}

	s.logg.Info(ctx, "otp verified, payment finalized")
	return &VerifyOTPResult{
		Payment:     finalized,
		DeviceToken: deviceToken,
		RedirectURL: finalized.RedirectURL,
	}, nil
}

// UserInfo returns a returning payer's recent receipts and saved-card
// references. The device token gates access: only a payer who completed an
// OTP challenge on this device can read their own history.
func (s *service) UserInfo(ctx context.Context, deviceToken string) (*UserInfoResult, error) {
	email, ok := s.sessions.TrustedEmail(ctx, deviceToken)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeCSRFMismatch, "trusted device required")
	}

	ops, err := s.repo.ListRecentOperationsByEmail(ctx, email, recentOperationsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent operations")
	}
	saved, err := s.cards.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return &UserInfoResult{Email: email, Operations: ops, SavedCards: saved}, nil
}

// ExpireDue transitions pending payments whose window has passed. Per-payment
// failures are collected so one bad row never stalls the sweep.
func (s *service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.FindExpiredPending(ctx, now, expiredSweepBatch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired payments")
	}

	var errs error
	count := 0
	for i := range due {
		changed, uerr := s.repo.UpdateStatusFrom(ctx, due[i].ID, enums.PaymentStatusPending,
			map[string]any{"status": enums.PaymentStatusExpired})
		if uerr != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", due[i].ID, uerr))
			continue
		}
		if changed {
			count++
		}
	}
	return count, errs
}

// finalizeFrom moves the payment to paid with a conditional update, records
// the receipt row, and kicks off the receipt email and webhook delivery.
func (s *service) finalizeFrom(ctx context.Context, payment *models.Payment, from enums.PaymentStatus, extra map[string]any) (*models.Payment, error) {
	nowT := s.now().UTC()
	pspTxID := "psp_" + uuid.NewString()

	updates := map[string]any{
		"status":    enums.PaymentStatusPaid,
		"paid_at":   nowT,
		"otp_code":  nil,
		"psp_tx_id": pspTxID,
	}
	for k, v := range extra {
		updates[k] = v
	}

	changed, err := s.repo.UpdateStatusFrom(ctx, payment.ID, from, updates)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_payments_idempotency_key") {
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used").
				WithPaymentID(payment.ID.String())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize payment")
	}
	if !changed {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "payment has already been processed").
			WithPaymentID(payment.ID.String())
	}

	payment.Status = enums.PaymentStatusPaid
	payment.PaidAt = &nowT
	payment.OTPCode = nil
	payment.PSPTxID = &pspTxID
	if v, ok := extra["payer_email"].(string); ok {
		payment.PayerEmail = &v
	}
	if v, ok := extra["card_mask"].(string); ok {
		payment.CardMask = &v
	}
	if v, ok := extra["idempotency_key"].(string); ok {
		payment.IdempotencyKey = &v
	}

	op := &models.SuccessfulOperation{
		PaymentID:   payment.ID,
		Email:       deref(payment.PayerEmail),
		Amount:      payment.Amount,
		Reference:   payment.Reference,
		CardMask:    deref(payment.CardMask),
		RedirectURL: payment.RedirectURL,
		CreatedAt:   nowT,
	}
	if err := s.repo.CreateSuccessfulOperation(ctx, op); err != nil {
		if !db.IsUniqueViolation(err, "successful_operations_payment_id") {
			// The payment is paid; the receipt row is best effort.
			s.logg.Error(ctx, "recording successful operation failed", err)
		}
	}

	snapshot := *payment
	s.spawn(func() {
		sideCtx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		sideCtx = s.logg.WithPaymentID(sideCtx, snapshot.ID.String())
		s.webhooks.Deliver(sideCtx, &snapshot)
	})

	if payment.PayerEmail != nil {
		email := *payment.PayerEmail
		receipt := notify.Receipt{
			PaymentID: payment.ID.String(),
			Reference: payment.Reference,
			Amount:    payment.Amount,
			CardMask:  deref(payment.CardMask),
			PaidAt:    nowT,
		}
		s.spawn(func() {
			sideCtx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			sideCtx = s.logg.WithPaymentID(sideCtx, receipt.PaymentID)
			if err := s.notify.SendReceiptEmail(sideCtx, email, receipt); err != nil {
				s.logg.Error(sideCtx, "sending receipt email failed", err)
			}
		})
	}

	return payment, nil
}

func (s *service) decline(ctx context.Context, payment *models.Payment, email, mask, idempotencyKey string) (*SubmitResult, error) {
	updates := submitUpdates(email, mask, idempotencyKey)
	updates["status"] = enums.PaymentStatusFailed
	updates["error_code"] = string(pkgerrors.CodeInsufficientFunds)
	updates["error_message"] = declineErrorMessage

	changed, err := s.repo.UpdateStatusFrom(ctx, payment.ID, enums.PaymentStatusPending, updates)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_payments_idempotency_key") {
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used").
				WithPaymentID(payment.ID.String())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decline payment")
	}
	if !changed {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "payment has already been processed").
			WithPaymentID(payment.ID.String())
	}

	s.logg.Info(ctx, "payment declined, card not accepted")
	return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, declineErrorMessage).
		WithPaymentID(payment.ID.String())
}

type resolvedCard struct {
	valid  bool
	mask   string
	rawPAN string
	rawCVV string
	expiry string
}

func (s *service) resolveCard(ctx context.Context, email string, in SubmitInput) (*resolvedCard, error) {
	if in.SavedCardID != nil {
		card, err := s.cards.Get(ctx, *in.SavedCardID)
		if err != nil {
			return nil, err
		}
		// A saved card only works for the payer who stored it.
		if !strings.EqualFold(card.Email, email) {
			return nil, pkgerrors.New(pkgerrors.CodeSavedCardNotFound, "saved card not found")
		}
		// The payer re-enters the CVV; the stored hash proves possession.
		cvv := strings.TrimSpace(in.SavedCardCVV)
		if cvv == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cvv is required when paying with a saved card")
		}
		if !s.cards.MatchesCVV(card, cvv) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidCard, "invalid card details")
		}
		return &resolvedCard{
			valid: s.cards.MatchesPAN(card, s.cfg.MockValidPAN),
			mask:  card.CardMask,
		}, nil
	}

	if in.Card == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card details or saved card reference required")
	}

	pan := strings.ReplaceAll(strings.TrimSpace(in.Card.Number), " ", "")
	if !isDigits(pan) || len(pan) < 12 || len(pan) > 19 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCard, "invalid card details")
	}

	return &resolvedCard{
		valid:  pan == s.cfg.MockValidPAN,
		mask:   maskPAN(pan),
		rawPAN: pan,
		rawCVV: in.Card.CVV,
		expiry: in.Card.Expiry,
	}, nil
}

func (s *service) lazyExpire(ctx context.Context, payment *models.Payment) (bool, error) {
	changed, err := s.repo.UpdateStatusFrom(ctx, payment.ID, enums.PaymentStatusPending,
		map[string]any{"status": enums.PaymentStatusExpired})
	if err != nil {
		return false, err
	}
	if changed {
		payment.Status = enums.PaymentStatusExpired
		s.logg.Info(ctx, "payment lazily expired")
	}
	return changed, nil
}

func replayResult(payment *models.Payment) *SubmitResult {
	res := &SubmitResult{
		Payment:  payment,
		Step:     stepForStatus(payment.Status),
		Replayed: true,
	}
	if payment.Status == enums.PaymentStatusPaid {
		res.RedirectURL = payment.RedirectURL
	}
	return res
}

func submitUpdates(email, mask, idempotencyKey string) map[string]any {
	updates := map[string]any{
		"payer_email": email,
		"card_mask":   mask,
	}
	if idempotencyKey != "" {
		updates["idempotency_key"] = idempotencyKey
	}
	return updates
}

func validateCallbackURL(raw string) error {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func maskPAN(pan string) string {
	return "**** **** **** " + pan[len(pan)-4:]
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
