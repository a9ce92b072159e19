package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/acquiremock/acquiremock-backend/pkg/config"
	pkgerrors "github.com/acquiremock/acquiremock-backend/pkg/errors"
)

// Manager owns checkout-session state: CSRF tokens guarding the payment page
// and trusted-device grants that let a returning payer skip the OTP challenge.
type Manager struct {
	store   tokenStore
	jwtCfg  config.JWTConfig
	csrfTTL time.Duration
	now     func() time.Time
}

// NewManager wires the session manager.
func NewManager(store tokenStore, jwtCfg config.JWTConfig, csrfTTL time.Duration) (*Manager, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session token store required")
	}
	if jwtCfg.Secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "jwt secret required")
	}
	return &Manager{
		store:   store,
		jwtCfg:  jwtCfg,
		csrfTTL: csrfTTL,
		now:     time.Now,
	}, nil
}

type deviceClaims struct {
	jwt.RegisteredClaims
}

// TrustDevice marks the payer's device as trusted after a successful OTP and
// returns the signed token the caller should set as a cookie. The grant is
// recorded server-side so it can be revoked by deleting the redis key.
func (m *Manager) TrustDevice(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	nowT := m.now().UTC()
	claims := deviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    m.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(nowT),
			ExpiresAt: jwt.NewNumericDate(nowT.Add(m.jwtCfg.DeviceTTL())),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(m.jwtCfg.Secret))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign device token")
	}
	key := m.store.DeviceKey(email)
	if err := m.store.Set(ctx, key, "1", m.jwtCfg.DeviceTTL()); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record trusted device")
	}
	return token, nil
}

// TrustedEmail validates a device token and reports the email it vouches for.
// Any parse failure, expiry, or missing server-side grant means not trusted.
func (m *Manager) TrustedEmail(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	var claims deviceClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unexpected signing method")
		}
		return []byte(m.jwtCfg.Secret), nil
	}, jwt.WithIssuer(m.jwtCfg.Issuer), jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", false
	}

	email := normalizeEmail(claims.Subject)
	_, ok, err := m.store.Lookup(ctx, m.store.DeviceKey(email))
	if err != nil || !ok {
		return "", false
	}
	return email, true
}

// RevokeDevice drops the server-side trusted-device grant for an email.
func (m *Manager) RevokeDevice(ctx context.Context, email string) error {
	return m.store.Del(ctx, m.store.DeviceKey(normalizeEmail(email)))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
