package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/acquiremock/acquiremock-backend/pkg/config"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

// Message is a plain-text email ready for transport.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a message. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP-backed mailer when credentials are configured and
// a log-only fallback otherwise, matching the gateway's degrade-to-logging
// behavior for local runs.
func NewMailer(cfg config.SMTPConfig, logg *logger.Logger) Mailer {
	if cfg.Enabled() {
		return &smtpMailer{cfg: cfg}
	}
	return &logMailer{logg: logg}
}

type smtpMailer struct {
	cfg config.SMTPConfig
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.User)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(addr, auth, m.cfg.User, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

type logMailer struct {
	logg *logger.Logger
}

func (m *logMailer) Send(ctx context.Context, msg Message) error {
	if m.logg == nil {
		return nil
	}
	ctx = m.logg.WithFields(ctx, map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	m.logg.Info(ctx, "smtp not configured, logging email instead of sending")
	return nil
}
