package webhooks

import (
	"github.com/acquiremock/acquiremock-backend/pkg/signature"
)

// Verifier lets merchants check a received notification against the shared
// secret without reimplementing the canonicalization rules.
type Verifier struct {
	codec *signature.Codec
}

// NewVerifier builds a verifier around the shared codec.
func NewVerifier(codec *signature.Codec) *Verifier {
	return &Verifier{codec: codec}
}

// Verify reports whether the signature matches the payload.
func (v *Verifier) Verify(payload any, sig string) bool {
	if v == nil || v.codec == nil {
		return false
	}
	return v.codec.Verify(payload, sig)
}
