package enums

import "fmt"

// WebhookStatus tracks the merchant notification delivery state of a payment.
type WebhookStatus string

const (
	WebhookStatusPending WebhookStatus = "pending"
	WebhookStatusSuccess WebhookStatus = "success"
	WebhookStatusFailed  WebhookStatus = "failed"
)

var validWebhookStatuses = []WebhookStatus{
	WebhookStatusPending,
	WebhookStatusSuccess,
	WebhookStatusFailed,
}

// String implements fmt.Stringer.
func (w WebhookStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is known.
func (w WebhookStatus) IsValid() bool {
	for _, candidate := range validWebhookStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookStatus converts raw input into a WebhookStatus.
func ParseWebhookStatus(value string) (WebhookStatus, error) {
	for _, candidate := range validWebhookStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook status %q", value)
}
