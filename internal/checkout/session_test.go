package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acquiremock/acquiremock-backend/pkg/config"
	pkgerrors "github.com/acquiremock/acquiremock-backend/pkg/errors"
)

type fakeTokenStore struct {
	data map[string]string
	err  error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{data: map[string]string{}}
}

func (f *fakeTokenStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeTokenStore) Lookup(_ context.Context, key string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeTokenStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeTokenStore) CSRFKey(paymentID string) string { return "csrf:" + paymentID }

func (f *fakeTokenStore) DeviceKey(email string) string {
	return "device:" + strings.ToLower(email)
}

func jwtConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test_jwt_secret", Issuer: "acquiremock", DeviceTTLDays: 30}
}

func newTestManager(t *testing.T, store tokenStore) *Manager {
	t.Helper()
	m, err := NewManager(store, jwtConfig(), 30*time.Minute)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestCSRFIssueAndVerify(t *testing.T) {
	store := newFakeTokenStore()
	m := newTestManager(t, store)
	paymentID := uuid.New()

	token, err := m.IssueCSRF(context.Background(), paymentID)
	if err != nil {
		t.Fatalf("IssueCSRF: %v", err)
	}
	if token == "" {
		t.Fatal("expected token")
	}
	if err := m.VerifyCSRF(context.Background(), paymentID, token); err != nil {
		t.Fatalf("VerifyCSRF: %v", err)
	}
}

func TestCSRFVerifyRejectsMismatch(t *testing.T) {
	store := newFakeTokenStore()
	m := newTestManager(t, store)
	paymentID := uuid.New()

	if _, err := m.IssueCSRF(context.Background(), paymentID); err != nil {
		t.Fatalf("IssueCSRF: %v", err)
	}

	err := m.VerifyCSRF(context.Background(), paymentID, "wrong-token")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCSRFMismatch {
		t.Fatalf("expected CSRF_TOKEN_MISMATCH, got %v", err)
	}
	if typed.PaymentID() != paymentID.String() {
		t.Fatalf("expected payment id %s on error, got %q", paymentID, typed.PaymentID())
	}
}

func TestCSRFVerifyRejectsMissingToken(t *testing.T) {
	m := newTestManager(t, newFakeTokenStore())
	paymentID := uuid.New()

	err := m.VerifyCSRF(context.Background(), paymentID, "anything")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCSRFMismatch {
		t.Fatalf("expected CSRF_TOKEN_MISMATCH, got %v", err)
	}
}

func TestTrustDeviceRoundTrip(t *testing.T) {
	store := newFakeTokenStore()
	m := newTestManager(t, store)

	token, err := m.TrustDevice(context.Background(), "Payer@Example.com")
	if err != nil {
		t.Fatalf("TrustDevice: %v", err)
	}

	email, ok := m.TrustedEmail(context.Background(), token)
	if !ok {
		t.Fatal("expected token to be trusted")
	}
	if email != "payer@example.com" {
		t.Fatalf("expected normalized email, got %q", email)
	}
}

func TestTrustedEmailRejectsGarbage(t *testing.T) {
	m := newTestManager(t, newFakeTokenStore())

	if _, ok := m.TrustedEmail(context.Background(), ""); ok {
		t.Fatal("expected empty token to be untrusted")
	}
	if _, ok := m.TrustedEmail(context.Background(), "not-a-jwt"); ok {
		t.Fatal("expected malformed token to be untrusted")
	}
}

func TestTrustedEmailRequiresServerSideGrant(t *testing.T) {
	store := newFakeTokenStore()
	m := newTestManager(t, store)

	token, err := m.TrustDevice(context.Background(), "payer@example.com")
	if err != nil {
		t.Fatalf("TrustDevice: %v", err)
	}
	if err := m.RevokeDevice(context.Background(), "payer@example.com"); err != nil {
		t.Fatalf("RevokeDevice: %v", err)
	}

	if _, ok := m.TrustedEmail(context.Background(), token); ok {
		t.Fatal("expected revoked device to be untrusted even with a valid token")
	}
}

func TestTrustedEmailRejectsForeignSignature(t *testing.T) {
	store := newFakeTokenStore()
	m := newTestManager(t, store)

	other, err := NewManager(store, config.JWTConfig{
		Secret: "different_secret", Issuer: "acquiremock", DeviceTTLDays: 30,
	}, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	token, err := other.TrustDevice(context.Background(), "payer@example.com")
	if err != nil {
		t.Fatalf("TrustDevice: %v", err)
	}

	if _, ok := m.TrustedEmail(context.Background(), token); ok {
		t.Fatal("expected token signed with a different secret to be untrusted")
	}
}

func TestTrustedEmailRejectsExpiredToken(t *testing.T) {
	store := newFakeTokenStore()
	m := newTestManager(t, store)

	issuedAt := time.Now().Add(-90 * 24 * time.Hour)
	m.now = func() time.Time { return issuedAt }
	token, err := m.TrustDevice(context.Background(), "payer@example.com")
	if err != nil {
		t.Fatalf("TrustDevice: %v", err)
	}

	m.now = time.Now
	if _, ok := m.TrustedEmail(context.Background(), token); ok {
		t.Fatal("expected expired token to be untrusted")
	}
}
