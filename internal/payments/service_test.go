package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acquiremock/acquiremock-backend/internal/notify"
	"github.com/acquiremock/acquiremock-backend/pkg/config"
	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
	"github.com/acquiremock/acquiremock-backend/pkg/enums"
	pkgerrors "github.com/acquiremock/acquiremock-backend/pkg/errors"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

const (
	validPAN   = "4444444444444444"
	csrfToken  = "csrf-ok"
	payerEmail = "payer@example.com"
)

type fakePaymentRepo struct {
	payments map[uuid.UUID]*models.Payment
	ops      []*models.SuccessfulOperation
	opErr    error
	err      error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[uuid.UUID]*models.Payment{}}
}

func (f *fakePaymentRepo) Create(_ context.Context, payment *models.Payment) error {
	if f.err != nil {
		return f.err
	}
	copied := *payment
	f.payments[payment.ID] = &copied
	return nil
}

func (f *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	payment, ok := f.payments[id]
	if !ok {
		return nil, nil
	}
	copied := *payment
	return &copied, nil
}

func (f *fakePaymentRepo) FindByIdempotencyKey(_ context.Context, key string) (*models.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, payment := range f.payments {
		if payment.IdempotencyKey != nil && *payment.IdempotencyKey == key {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentRepo) UpdateStatusFrom(_ context.Context, id uuid.UUID, from enums.PaymentStatus, updates map[string]any) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	payment, ok := f.payments[id]
	if !ok || payment.Status != from {
		return false, nil
	}
	if key, ok := updates["idempotency_key"].(string); ok {
		for otherID, other := range f.payments {
			if otherID != id && other.IdempotencyKey != nil && *other.IdempotencyKey == key {
				return false, fmt.Errorf(`duplicate key value violates unique constraint "idx_payments_idempotency_key"`)
			}
		}
	}
	applyUpdates(payment, updates)
	return true, nil
}

func applyUpdates(payment *models.Payment, updates map[string]any) {
	for column, value := range updates {
		switch column {
		case "status":
			payment.Status = value.(enums.PaymentStatus)
		case "otp_code":
			if value == nil {
				payment.OTPCode = nil
			} else {
				code := value.(string)
				payment.OTPCode = &code
			}
		case "payer_email":
			email := value.(string)
			payment.PayerEmail = &email
		case "card_mask":
			mask := value.(string)
			payment.CardMask = &mask
		case "idempotency_key":
			key := value.(string)
			payment.IdempotencyKey = &key
		case "psp_tx_id":
			tx := value.(string)
			payment.PSPTxID = &tx
		case "paid_at":
			at := value.(time.Time)
			payment.PaidAt = &at
		case "error_code":
			code := value.(string)
			payment.ErrorCode = &code
		case "error_message":
			msg := value.(string)
			payment.ErrorMessage = &msg
		}
	}
}

func (f *fakePaymentRepo) FindExpiredPending(_ context.Context, cutoff time.Time, _ int) ([]models.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var due []models.Payment
	for _, payment := range f.payments {
		if payment.Status == enums.PaymentStatusPending && cutoff.After(payment.ExpiresAt) {
			due = append(due, *payment)
		}
	}
	return due, nil
}

func (f *fakePaymentRepo) FindRetryableWebhooks(_ context.Context, maxAttempts, _ int) ([]models.Payment, error) {
	var due []models.Payment
	for _, payment := range f.payments {
		if payment.Status == enums.PaymentStatusPaid &&
			payment.WebhookStatus == enums.WebhookStatusFailed &&
			payment.WebhookAttempts < maxAttempts {
			due = append(due, *payment)
		}
	}
	return due, nil
}

func (f *fakePaymentRepo) RecordWebhookAttempt(_ context.Context, id uuid.UUID, attempts int, at time.Time, status enums.WebhookStatus) error {
	payment, ok := f.payments[id]
	if !ok {
		return nil
	}
	payment.WebhookAttempts = attempts
	payment.WebhookLastAttempt = &at
	payment.WebhookStatus = status
	return nil
}

func (f *fakePaymentRepo) CreateSuccessfulOperation(_ context.Context, op *models.SuccessfulOperation) error {
	if f.opErr != nil {
		return f.opErr
	}
	for _, existing := range f.ops {
		if existing.PaymentID == op.PaymentID {
			return fmt.Errorf("UNIQUE constraint failed: successful_operations.payment_id")
		}
	}
	f.ops = append(f.ops, op)
	return nil
}

func (f *fakePaymentRepo) ListRecentOperationsByEmail(_ context.Context, email string, limit int) ([]models.SuccessfulOperation, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.SuccessfulOperation
	for _, op := range f.ops {
		if op.Email == email {
			out = append(out, *op)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSessions struct {
	trusted     map[string]string
	issueErr    error
	issuedCSRF  int
	trustCalled int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{trusted: map[string]string{}}
}

func (f *fakeSessions) IssueCSRF(_ context.Context, _ uuid.UUID) (string, error) {
	if f.issueErr != nil {
		return "", f.issueErr
	}
	f.issuedCSRF++
	return csrfToken, nil
}

func (f *fakeSessions) VerifyCSRF(_ context.Context, paymentID uuid.UUID, token string) error {
	if token != csrfToken {
		return pkgerrors.New(pkgerrors.CodeCSRFMismatch, "CSRF token mismatch").
			WithPaymentID(paymentID.String())
	}
	return nil
}

func (f *fakeSessions) TrustDevice(_ context.Context, email string) (string, error) {
	f.trustCalled++
	token := "device-" + email
	f.trusted[token] = email
	return token, nil
}

func (f *fakeSessions) TrustedEmail(_ context.Context, token string) (string, bool) {
	email, ok := f.trusted[token]
	return email, ok
}

type fakeVault struct {
	cards     map[uuid.UUID]*models.SavedCard
	pans      map[uuid.UUID]string
	cvvs      map[uuid.UUID]string
	saved     []string
	saveErr   error
	getCalled int
}

func newFakeVault() *fakeVault {
	return &fakeVault{
		cards: map[uuid.UUID]*models.SavedCard{},
		pans:  map[uuid.UUID]string{},
		cvvs:  map[uuid.UUID]string{},
	}
}

func (f *fakeVault) Get(_ context.Context, id uuid.UUID) (*models.SavedCard, error) {
	f.getCalled++
	card, ok := f.cards[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeSavedCardNotFound, "saved card not found")
	}
	return card, nil
}

func (f *fakeVault) MatchesPAN(card *models.SavedCard, pan string) bool {
	if card == nil {
		return false
	}
	return f.pans[card.ID] == pan
}

func (f *fakeVault) MatchesCVV(card *models.SavedCard, cvv string) bool {
	if card == nil {
		return false
	}
	return f.cvvs[card.ID] == cvv
}

func (f *fakeVault) ListByEmail(_ context.Context, email string) ([]models.SavedCard, error) {
	var out []models.SavedCard
	for _, card := range f.cards {
		if card.Email == email {
			out = append(out, *card)
		}
	}
	return out, nil
}

func (f *fakeVault) SaveIfAbsent(_ context.Context, email, pan, cvv, _, mask string) (*models.SavedCard, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, email+"|"+pan)
	card := &models.SavedCard{ID: uuid.New(), Email: email, CardMask: mask}
	f.cards[card.ID] = card
	f.pans[card.ID] = pan
	f.cvvs[card.ID] = cvv
	return card, nil
}

type fakeNotifier struct {
	otpCodes []string
	receipts []notify.Receipt
}

func (f *fakeNotifier) SendOTPEmail(_ context.Context, _ string, code string) error {
	f.otpCodes = append(f.otpCodes, code)
	return nil
}

func (f *fakeNotifier) SendReceiptEmail(_ context.Context, _ string, receipt notify.Receipt) error {
	f.receipts = append(f.receipts, receipt)
	return nil
}

type fakeDeliverer struct {
	delivered []*models.Payment
	result    bool
}

func (f *fakeDeliverer) Deliver(_ context.Context, payment *models.Payment) bool {
	f.delivered = append(f.delivered, payment)
	return f.result
}

type serviceFixture struct {
	svc       *service
	repo      *fakePaymentRepo
	sessions  *fakeSessions
	vault     *fakeVault
	notifier  *fakeNotifier
	deliverer *fakeDeliverer
	now       time.Time
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	repo := newFakePaymentRepo()
	sessions := newFakeSessions()
	vault := newFakeVault()
	notifier := &fakeNotifier{}
	deliverer := &fakeDeliverer{result: true}

	iface, err := NewService(ServiceParams{
		Repo:     repo,
		Cards:    vault,
		Sessions: sessions,
		Notify:   notifier,
		Webhooks: deliverer,
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Config: config.PaymentsConfig{
			InvoiceTTL:   15 * time.Minute,
			MockValidPAN: validPAN,
			OTPLength:    4,
			CSRFTTL:      30 * time.Minute,
			MaxReference: 64,
		},
		BaseURL: "http://localhost:8000",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc, ok := iface.(*service)
	if !ok {
		t.Fatalf("expected *service, got %T", iface)
	}

	fix := &serviceFixture{
		svc:       svc,
		repo:      repo,
		sessions:  sessions,
		vault:     vault,
		notifier:  notifier,
		deliverer: deliverer,
		now:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return fix.now }
	// side effects run inline so assertions see them
	svc.spawn = func(fn func()) { fn() }
	return fix
}

func (fix *serviceFixture) openInvoice(t *testing.T) *models.Payment {
	t.Helper()
	result, err := fix.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		Amount:      decimal.NewFromInt(500),
		Reference:   "ORD-1",
		WebhookURL:  "https://merchant.example.com/webhook",
		RedirectURL: "https://merchant.example.com/thanks",
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return result.Payment
}

func (fix *serviceFixture) stored(t *testing.T, id uuid.UUID) *models.Payment {
	t.Helper()
	payment, ok := fix.repo.payments[id]
	if !ok {
		t.Fatalf("payment %s not stored", id)
	}
	return payment
}

func cardInput() *CardInput {
	return &CardInput{Number: "4444 4444 4444 4444", Expiry: "12/30", CVV: "123"}
}

func submitInput(id uuid.UUID) SubmitInput {
	return SubmitInput{
		PaymentID: id,
		Email:     payerEmail,
		Card:      cardInput(),
		CSRFToken: csrfToken,
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
	return typed
}

func TestCreateInvoice(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	if payment.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", payment.Status)
	}
	wantExpiry := fix.now.Add(15 * time.Minute)
	if !payment.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %s, got %s", wantExpiry, payment.ExpiresAt)
	}

	result, err := fix.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		Amount:      decimal.NewFromInt(10),
		Reference:   "ORD-2",
		WebhookURL:  "https://merchant.example.com/webhook",
		RedirectURL: "https://merchant.example.com/thanks",
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	wantURL := "http://localhost:8000/payment/" + result.Payment.ID.String()
	if result.PageURL != wantURL {
		t.Fatalf("expected page url %q, got %q", wantURL, result.PageURL)
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	fix := newFixture(t)
	base := CreateInvoiceInput{
		Amount:      decimal.NewFromInt(500),
		Reference:   "ORD-1",
		WebhookURL:  "https://merchant.example.com/webhook",
		RedirectURL: "https://merchant.example.com/thanks",
	}

	tests := []struct {
		name   string
		mutate func(in *CreateInvoiceInput)
	}{
		{"zero amount", func(in *CreateInvoiceInput) { in.Amount = decimal.Zero }},
		{"negative amount", func(in *CreateInvoiceInput) { in.Amount = decimal.NewFromInt(-5) }},
		{"empty reference", func(in *CreateInvoiceInput) { in.Reference = "  " }},
		{"long reference", func(in *CreateInvoiceInput) { in.Reference = strings.Repeat("x", 65) }},
		{"bad webhook url", func(in *CreateInvoiceInput) { in.WebhookURL = "not a url" }},
		{"ftp redirect url", func(in *CreateInvoiceInput) { in.RedirectURL = "ftp://example.com/x" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := fix.svc.CreateInvoice(context.Background(), in)
			assertCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestSubmitIssuesOTPChallenge(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	result, err := fix.svc.Submit(context.Background(), submitInput(payment.ID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Step != StepOTPRequired {
		t.Fatalf("expected otp step, got %s", result.Step)
	}

	stored := fix.stored(t, payment.ID)
	if stored.Status != enums.PaymentStatusWaitingForOTP {
		t.Fatalf("expected waiting_for_otp, got %s", stored.Status)
	}
	if stored.OTPCode == nil || len(*stored.OTPCode) != 4 {
		t.Fatalf("expected 4-digit otp, got %v", stored.OTPCode)
	}
	if stored.CardMask == nil || *stored.CardMask != "**** **** **** 4444" {
		t.Fatalf("unexpected mask %v", stored.CardMask)
	}
	if len(fix.notifier.otpCodes) != 1 || fix.notifier.otpCodes[0] != *stored.OTPCode {
		t.Fatalf("expected otp email with stored code, got %v", fix.notifier.otpCodes)
	}
	if len(fix.deliverer.delivered) != 0 {
		t.Fatal("no webhook should fire before finalization")
	}
}

func TestSubmitDeclinesInvalidCard(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	in := submitInput(payment.ID)
	in.Card.Number = "1111 1111 1111 1111"

	_, err := fix.svc.Submit(context.Background(), in)
	typed := assertCode(t, err, pkgerrors.CodeInsufficientFunds)
	if typed.PaymentID() != payment.ID.String() {
		t.Fatalf("expected payment id on error, got %q", typed.PaymentID())
	}

	stored := fix.stored(t, payment.ID)
	if stored.Status != enums.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
	if stored.ErrorCode == nil || *stored.ErrorCode != string(pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected INSUFFICIENT_FUNDS error code, got %v", stored.ErrorCode)
	}
	if len(fix.deliverer.delivered) != 0 {
		t.Fatal("declined payments do not fire webhooks")
	}
}

func TestSubmitRejectsMalformedCardNumber(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	in := submitInput(payment.ID)
	in.Card.Number = "4444-4444"

	_, err := fix.svc.Submit(context.Background(), in)
	assertCode(t, err, pkgerrors.CodeInvalidCard)

	if fix.stored(t, payment.ID).Status != enums.PaymentStatusPending {
		t.Fatal("malformed input must not consume the payment")
	}
}

func TestSubmitRejectsBadCSRF(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	in := submitInput(payment.ID)
	in.CSRFToken = "forged"

	_, err := fix.svc.Submit(context.Background(), in)
	assertCode(t, err, pkgerrors.CodeCSRFMismatch)

	if fix.stored(t, payment.ID).Status != enums.PaymentStatusPending {
		t.Fatal("csrf failure must not mutate the payment")
	}
}

func TestSubmitLazilyExpiresStalePayment(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	fix.now = fix.now.Add(16 * time.Minute)

	_, err := fix.svc.Submit(context.Background(), submitInput(payment.ID))
	assertCode(t, err, pkgerrors.CodePaymentExpired)

	if fix.stored(t, payment.ID).Status != enums.PaymentStatusExpired {
		t.Fatal("expected lazy transition to expired")
	}
}

func TestSubmitNotFound(t *testing.T) {
	fix := newFixture(t)
	_, err := fix.svc.Submit(context.Background(), submitInput(uuid.New()))
	assertCode(t, err, pkgerrors.CodePaymentNotFound)
}

func TestSubmitAlreadyProcessed(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)
	fix.repo.payments[payment.ID].Status = enums.PaymentStatusPaid

	_, err := fix.svc.Submit(context.Background(), submitInput(payment.ID))
	assertCode(t, err, pkgerrors.CodeAlreadyProcessed)
}

func TestSubmitReplaysIdempotencyKey(t *testing.T) {
	fix := newFixture(t)
	first := fix.openInvoice(t)
	second := fix.openInvoice(t)

	in := submitInput(first.ID)
	in.IdempotencyKey = "merchant-key-1"
	if _, err := fix.svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	replay := submitInput(second.ID)
	replay.IdempotencyKey = "merchant-key-1"
	result, err := fix.svc.Submit(context.Background(), replay)
	if err != nil {
		t.Fatalf("Submit replay: %v", err)
	}
	if !result.Replayed {
		t.Fatal("expected replayed result")
	}
	if result.Payment.ID != first.ID {
		t.Fatalf("expected replay of %s, got %s", first.ID, result.Payment.ID)
	}
	if result.Step != StepOTPRequired {
		t.Fatalf("expected replay step otp_required, got %s", result.Step)
	}
	if fix.stored(t, second.ID).Status != enums.PaymentStatusPending {
		t.Fatal("second payment must remain untouched")
	}
}

func TestSubmitReplayStillRequiresCSRF(t *testing.T) {
	fix := newFixture(t)
	first := fix.openInvoice(t)
	second := fix.openInvoice(t)

	in := submitInput(first.ID)
	in.IdempotencyKey = "merchant-key-1"
	if _, err := fix.svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// A known key must not leak the prior outcome to a forged request.
	replay := submitInput(second.ID)
	replay.IdempotencyKey = "merchant-key-1"
	replay.CSRFToken = "forged"

	_, err := fix.svc.Submit(context.Background(), replay)
	assertCode(t, err, pkgerrors.CodeCSRFMismatch)
}

func TestSubmitSavesCardOnRequest(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	in := submitInput(payment.ID)
	in.SaveCard = true
	if _, err := fix.svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(fix.vault.saved) != 1 || fix.vault.saved[0] != payerEmail+"|"+validPAN {
		t.Fatalf("expected card saved for payer, got %v", fix.vault.saved)
	}
}

func TestSubmitWithSavedCard(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	card, err := fix.vault.SaveIfAbsent(context.Background(), payerEmail, validPAN, "123", "12/30", "**** **** **** 4444")
	if err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}

	in := submitInput(payment.ID)
	in.Card = nil
	in.SavedCardID = &card.ID
	in.SavedCardCVV = "123"

	result, err := fix.svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Step != StepOTPRequired {
		t.Fatalf("expected otp step, got %s", result.Step)
	}
}

func TestSubmitSavedCardRequiresCVV(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	card, err := fix.vault.SaveIfAbsent(context.Background(), payerEmail, validPAN, "123", "12/30", "**** **** **** 4444")
	if err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}

	in := submitInput(payment.ID)
	in.Card = nil
	in.SavedCardID = &card.ID

	_, err = fix.svc.Submit(context.Background(), in)
	assertCode(t, err, pkgerrors.CodeValidation)

	if fix.stored(t, payment.ID).Status != enums.PaymentStatusPending {
		t.Fatal("missing cvv must not consume the payment")
	}
}

func TestSubmitRejectsSavedCardCVVMismatch(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	card, err := fix.vault.SaveIfAbsent(context.Background(), payerEmail, validPAN, "123", "12/30", "**** **** **** 4444")
	if err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}

	in := submitInput(payment.ID)
	in.Card = nil
	in.SavedCardID = &card.ID
	in.SavedCardCVV = "999"

	_, err = fix.svc.Submit(context.Background(), in)
	assertCode(t, err, pkgerrors.CodeInvalidCard)

	if fix.stored(t, payment.ID).Status != enums.PaymentStatusPending {
		t.Fatal("wrong cvv must not consume the payment")
	}
}

func TestSubmitRejectsForeignSavedCard(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	card, err := fix.vault.SaveIfAbsent(context.Background(), "other@example.com", validPAN, "123", "12/30", "**** **** **** 4444")
	if err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}

	in := submitInput(payment.ID)
	in.Card = nil
	in.SavedCardID = &card.ID

	_, err = fix.svc.Submit(context.Background(), in)
	assertCode(t, err, pkgerrors.CodeSavedCardNotFound)
}

func TestSubmitTrustedDeviceBypassesOTP(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)
	fix.sessions.trusted["trusted-token"] = payerEmail

	in := submitInput(payment.ID)
	in.DeviceToken = "trusted-token"

	result, err := fix.svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Step != StepPaid || !result.DeviceBypass {
		t.Fatalf("expected paid via device bypass, got %+v", result)
	}

	stored := fix.stored(t, payment.ID)
	if stored.Status != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", stored.Status)
	}
	if len(fix.deliverer.delivered) != 1 {
		t.Fatalf("expected one webhook delivery, got %d", len(fix.deliverer.delivered))
	}
	if len(fix.repo.ops) != 1 {
		t.Fatalf("expected one successful operation, got %d", len(fix.repo.ops))
	}
	if len(fix.notifier.otpCodes) != 0 {
		t.Fatal("bypass must not send an otp email")
	}
}

func TestSubmitIgnoresTrustedDeviceForOtherEmail(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)
	fix.sessions.trusted["trusted-token"] = "someone-else@example.com"

	in := submitInput(payment.ID)
	in.DeviceToken = "trusted-token"

	result, err := fix.svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Step != StepOTPRequired {
		t.Fatalf("expected otp challenge, got %s", result.Step)
	}
}

func TestVerifyOTPFinalizes(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)
	if _, err := fix.svc.Submit(context.Background(), submitInput(payment.ID)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	code := *fix.stored(t, payment.ID).OTPCode

	result, err := fix.svc.VerifyOTP(context.Background(), VerifyOTPInput{PaymentID: payment.ID, Code: code})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if result.Payment.Status != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", result.Payment.Status)
	}
	if result.DeviceToken == "" {
		t.Fatal("expected device token after otp success")
	}
	if result.RedirectURL != "https://merchant.example.com/thanks" {
		t.Fatalf("unexpected redirect %q", result.RedirectURL)
	}

	stored := fix.stored(t, payment.ID)
	if stored.OTPCode != nil {
		t.Fatal("otp code must be cleared on success")
	}
	if stored.PaidAt == nil || stored.PSPTxID == nil {
		t.Fatal("expected paid_at and psp_tx_id set")
	}
	if len(fix.repo.ops) != 1 {
		t.Fatalf("expected one successful operation, got %d", len(fix.repo.ops))
	}
	if len(fix.deliverer.delivered) != 1 {
		t.Fatalf("expected one webhook delivery, got %d", len(fix.deliverer.delivered))
	}
	if len(fix.notifier.receipts) != 1 {
		t.Fatalf("expected one receipt email, got %d", len(fix.notifier.receipts))
	}
}

func TestVerifyOTPRejectsWrongCode(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)
	if _, err := fix.svc.Submit(context.Background(), submitInput(payment.ID)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	code := *fix.stored(t, payment.ID).OTPCode
	wrong := "0000"
	if wrong == code {
		wrong = "9999"
	}

	_, err := fix.svc.VerifyOTP(context.Background(), VerifyOTPInput{PaymentID: payment.ID, Code: wrong})
	assertCode(t, err, pkgerrors.CodeInvalidOTP)

	stored := fix.stored(t, payment.ID)
	if stored.Status != enums.PaymentStatusWaitingForOTP {
		t.Fatalf("payment must stay challengeable, got %s", stored.Status)
	}
	if stored.OTPCode == nil {
		t.Fatal("otp code must survive a failed attempt")
	}
}

func TestVerifyOTPStatusGuards(t *testing.T) {
	fix := newFixture(t)

	pending := fix.openInvoice(t)
	_, err := fix.svc.VerifyOTP(context.Background(), VerifyOTPInput{PaymentID: pending.ID, Code: "1234"})
	assertCode(t, err, pkgerrors.CodeInvalidOTP)

	paid := fix.openInvoice(t)
	fix.repo.payments[paid.ID].Status = enums.PaymentStatusPaid
	_, err = fix.svc.VerifyOTP(context.Background(), VerifyOTPInput{PaymentID: paid.ID, Code: "1234"})
	assertCode(t, err, pkgerrors.CodeAlreadyProcessed)

	expired := fix.openInvoice(t)
	fix.repo.payments[expired.ID].Status = enums.PaymentStatusExpired
	_, err = fix.svc.VerifyOTP(context.Background(), VerifyOTPInput{PaymentID: expired.ID, Code: "1234"})
	assertCode(t, err, pkgerrors.CodePaymentExpired)

	_, err = fix.svc.VerifyOTP(context.Background(), VerifyOTPInput{PaymentID: uuid.New(), Code: "1234"})
	assertCode(t, err, pkgerrors.CodePaymentNotFound)
}

func TestFinalizeSwallowsDuplicateReceiptRow(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)
	if _, err := fix.svc.Submit(context.Background(), submitInput(payment.ID)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	code := *fix.stored(t, payment.ID).OTPCode

	// Pre-seed the receipt row so the insert hits the unique constraint.
	fix.repo.ops = append(fix.repo.ops, &models.SuccessfulOperation{PaymentID: payment.ID})

	if _, err := fix.svc.VerifyOTP(context.Background(), VerifyOTPInput{PaymentID: payment.ID, Code: code}); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if fix.stored(t, payment.ID).Status != enums.PaymentStatusPaid {
		t.Fatal("duplicate receipt row must not block finalization")
	}
}

func TestFinalizeLosingRaceReturnsAlreadyProcessed(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)
	if _, err := fix.svc.Submit(context.Background(), submitInput(payment.ID)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	code := *fix.stored(t, payment.ID).OTPCode

	// Another actor wins the conditional update first.
	fix.repo.payments[payment.ID].Status = enums.PaymentStatusPaid

	_, err := fix.svc.VerifyOTP(context.Background(), VerifyOTPInput{PaymentID: payment.ID, Code: code})
	assertCode(t, err, pkgerrors.CodeAlreadyProcessed)
}

func TestExpireDue(t *testing.T) {
	fix := newFixture(t)
	first := fix.openInvoice(t)
	second := fix.openInvoice(t)
	fresh := fix.openInvoice(t)
	fix.repo.payments[fresh.ID].ExpiresAt = fix.now.Add(time.Hour)

	count, err := fix.svc.ExpireDue(context.Background(), fix.now.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("ExpireDue: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 expired, got %d", count)
	}
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		if fix.stored(t, id).Status != enums.PaymentStatusExpired {
			t.Fatalf("expected %s expired", id)
		}
	}
	if fix.stored(t, fresh.ID).Status != enums.PaymentStatusPending {
		t.Fatal("fresh payment must stay pending")
	}
}

func TestCheckoutPageIssuesCSRF(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)

	view, err := fix.svc.CheckoutPage(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("CheckoutPage: %v", err)
	}
	if view.CSRFToken == "" {
		t.Fatal("expected csrf token for pending payment")
	}

	fix.now = fix.now.Add(16 * time.Minute)
	view, err = fix.svc.CheckoutPage(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("CheckoutPage after expiry: %v", err)
	}
	if view.Payment.Status != enums.PaymentStatusExpired {
		t.Fatalf("expected lazy expiry, got %s", view.Payment.Status)
	}
	if view.CSRFToken != "" {
		t.Fatal("expired payment must not receive a csrf token")
	}
}

func TestUserInfo(t *testing.T) {
	fix := newFixture(t)
	fix.sessions.trusted["trusted-token"] = payerEmail

	fix.repo.ops = append(fix.repo.ops,
		&models.SuccessfulOperation{PaymentID: uuid.New(), Email: payerEmail, Reference: "ORD-1"},
		&models.SuccessfulOperation{PaymentID: uuid.New(), Email: payerEmail, Reference: "ORD-2"},
		&models.SuccessfulOperation{PaymentID: uuid.New(), Email: "someone-else@example.com", Reference: "ORD-3"},
	)
	if _, err := fix.vault.SaveIfAbsent(context.Background(), payerEmail, validPAN, "123", "12/30", "**** **** **** 4444"); err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}

	result, err := fix.svc.UserInfo(context.Background(), "trusted-token")
	if err != nil {
		t.Fatalf("UserInfo: %v", err)
	}
	if result.Email != payerEmail {
		t.Fatalf("expected %s, got %s", payerEmail, result.Email)
	}
	if len(result.Operations) != 2 {
		t.Fatalf("expected 2 operations for payer, got %d", len(result.Operations))
	}
	for _, op := range result.Operations {
		if op.Email != payerEmail {
			t.Fatalf("operation for wrong payer leaked: %+v", op)
		}
	}
	if len(result.SavedCards) != 1 {
		t.Fatalf("expected 1 saved card, got %d", len(result.SavedCards))
	}
}

func TestUserInfoRejectsUntrustedDevice(t *testing.T) {
	fix := newFixture(t)

	_, err := fix.svc.UserInfo(context.Background(), "unknown-token")
	assertCode(t, err, pkgerrors.CodeCSRFMismatch)

	_, err = fix.svc.UserInfo(context.Background(), "")
	assertCode(t, err, pkgerrors.CodeCSRFMismatch)
}

func TestMaskPAN(t *testing.T) {
	if got := maskPAN("4444444444444444"); got != "**** **** **** 4444" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := maskPAN("411111111111"); got != "**** **** **** 1111" {
		t.Fatalf("unexpected mask for short pan %q", got)
	}
}

func TestSubmitDependencyFailure(t *testing.T) {
	fix := newFixture(t)
	payment := fix.openInvoice(t)
	fix.repo.err = errors.New("db down")

	_, err := fix.svc.Submit(context.Background(), submitInput(payment.ID))
	assertCode(t, err, pkgerrors.CodeDependency)
}
