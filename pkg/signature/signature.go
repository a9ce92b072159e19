package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Codec signs and verifies webhook payloads with HMAC-SHA256 over a canonical
// JSON serialization. encoding/json emits map keys in lexicographic order, so
// the byte representation is independent of insertion order at every nesting
// level.
type Codec struct {
	secret []byte
}

// NewCodec builds a codec keyed with the shared webhook secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Sign returns the hex-encoded HMAC-SHA256 of the canonical payload bytes.
// A payload that cannot marshal signs as the empty message; it can never
// verify against a real signature, which is the desired failure mode.
func (c *Codec) Sign(payload any) string {
	mac := hmac.New(sha256.New, c.secret)
	if raw, err := json.Marshal(payload); err == nil {
		mac.Write(raw)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the expected signature and compares in constant time.
// It returns false on any mismatch and never errors on malformed input.
func (c *Codec) Verify(payload any, sig string) bool {
	expected := c.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(sig))
}
