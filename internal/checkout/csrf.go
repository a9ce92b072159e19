package checkout

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/acquiremock/acquiremock-backend/pkg/errors"
)

// tokenStore is the slice of the redis client the checkout session layer
// depends on. Satisfied by *redis.Client.
type tokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Lookup(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, keys ...string) error
	CSRFKey(paymentID string) string
	DeviceKey(email string) string
}

// IssueCSRF mints a single-use token bound to the payment's checkout page and
// stores it with the configured TTL.
func (m *Manager) IssueCSRF(ctx context.Context, paymentID uuid.UUID) (string, error) {
	token := uuid.NewString()
	key := m.store.CSRFKey(paymentID.String())
	if err := m.store.Set(ctx, key, token, m.csrfTTL); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store csrf token")
	}
	return token, nil
}

// VerifyCSRF checks the presented token against the stored one. A missing or
// mismatched token is rejected before any payment state changes.
func (m *Manager) VerifyCSRF(ctx context.Context, paymentID uuid.UUID, token string) error {
	key := m.store.CSRFKey(paymentID.String())
	stored, ok, err := m.store.Lookup(ctx, key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load csrf token")
	}
	if !ok || token == "" {
		return pkgerrors.New(pkgerrors.CodeCSRFMismatch, "CSRF token mismatch").
			WithPaymentID(paymentID.String())
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return pkgerrors.New(pkgerrors.CodeCSRFMismatch, "CSRF token mismatch").
			WithPaymentID(paymentID.String())
	}
	return nil
}
