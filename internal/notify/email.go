package notify

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// MailerConfig holds SMTP configuration
type MailerConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// mailSender is satisfied by *gomail.Dialer
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends plain-text email over SMTP. A disabled mailer logs and
// drops every message.
type Mailer struct {
	enabled bool
	from    string
	sender  mailSender
}

// NewMailer creates a mailer from cfg
func NewMailer(cfg MailerConfig) *Mailer {
	return &Mailer{
		enabled: cfg.Enabled,
		from:    cfg.From,
		sender:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendEmail delivers one message. It stops waiting when ctx is done; the
// SMTP exchange itself cannot be interrupted.
func (m *Mailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if !m.enabled {
		slog.Info("email disabled, skipping", "to", to, "subject", subject)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() {
		done <- m.sender.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		slog.Info("email sent", "to", to, "subject", subject)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email to %s: %w", to, ctx.Err())
	}
}
