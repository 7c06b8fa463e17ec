// Package notify delivers deadline reminders to users over the browser
// (WebSocket push) and email channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/terra-clan/dsa-tracker/internal/metrics"
	"github.com/terra-clan/dsa-tracker/internal/models"
)

// Delivery errors
var (
	ErrNoSubscribers = errors.New("no open browser connections")
	ErrNoRecipient   = errors.New("no email recipient")
)

// Notification is one message to deliver to a user
type Notification struct {
	UserID         string
	Title          string
	Message        string
	Channel        models.NotificationChannel
	RecipientEmail string

	// Optional context for the browser payload
	TaskID   string
	Deadline *time.Time
}

// Dispatcher delivers notifications
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// BrowserSender pushes a notification to the user's open browser sessions
type BrowserSender interface {
	Send(ctx context.Context, n Notification) error
}

// EmailSender emails a notification
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// MultiDispatcher routes a notification to every channel it asks for
type MultiDispatcher struct {
	browser BrowserSender
	email   EmailSender
	metrics *metrics.Manager
}

// NewMultiDispatcher creates a dispatcher; either sender may be nil to
// disable that channel.
func NewMultiDispatcher(browser BrowserSender, email EmailSender, m *metrics.Manager) *MultiDispatcher {
	return &MultiDispatcher{
		browser: browser,
		email:   email,
		metrics: m,
	}
}

// Dispatch sends n on each requested channel. Channel failures are joined;
// a failure on one channel does not stop the other.
func (d *MultiDispatcher) Dispatch(ctx context.Context, n Notification) error {
	var errs []error

	if n.Channel.Browser() && d.browser != nil {
		err := d.browser.Send(ctx, n)
		d.metrics.NotificationSent(string(models.ChannelBrowser), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("browser: %w", err))
		}
	}

	if n.Channel.Email() && d.email != nil {
		var err error
		if n.RecipientEmail == "" {
			err = ErrNoRecipient
		} else {
			err = d.email.SendEmail(ctx, n.RecipientEmail, n.Title, n.Message)
		}
		d.metrics.NotificationSent(string(models.ChannelEmail), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	if len(errs) == 0 {
		slog.Debug("notification dispatched", "user_id", n.UserID, "channel", n.Channel, "task_id", n.TaskID)
	}
	return errors.Join(errs...)
}
