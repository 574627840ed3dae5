package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/clinicops/internal/confirmation"
	"github.com/wolfman30/clinicops/pkg/logging"
)

// ErrNoChannel is returned when a recipient has neither an email address nor
// a phone number.
var ErrNoChannel = errors.New("notify: recipient has no reachable channel")

// SMSSender abstracts the messaging provider (WhatsApp or SMS) that lives
// outside this service.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// ReminderChannel delivers confirmation reminders by email and, when a phone
// number is known and an SMS sender is configured, by text message.
type ReminderChannel struct {
	email  EmailSender
	sms    SMSSender
	logger *logging.Logger
}

// NewReminderChannel creates a reminder channel. Either sender may be nil.
func NewReminderChannel(email EmailSender, sms SMSSender, logger *logging.Logger) *ReminderChannel {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReminderChannel{email: email, sms: sms, logger: logger}
}

// Send implements confirmation.Sender. It succeeds if at least one channel
// accepted the message.
func (c *ReminderChannel) Send(ctx context.Context, to confirmation.Recipient, subject, body string) error {
	var errs []error
	delivered := 0

	if c.email != nil && strings.TrimSpace(to.Email) != "" {
		err := c.email.Send(ctx, EmailMessage{
			To:      to.Email,
			ToName:  to.PatientName,
			Subject: subject,
			Body:    body,
			HTML:    "<p>" + html.EscapeString(body) + "</p>",
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			delivered++
		}
	}

	if c.sms != nil && strings.TrimSpace(to.Phone) != "" {
		if err := c.sms.SendSMS(ctx, to.Phone, body); err != nil {
			errs = append(errs, fmt.Errorf("notify: sms: %w", err))
		} else {
			delivered++
		}
	}

	if delivered > 0 {
		if len(errs) > 0 {
			c.logger.Warn("reminder partially delivered", "to", to.Email, "error", errors.Join(errs...))
		}
		return nil
	}
	if len(errs) == 0 {
		return ErrNoChannel
	}
	return errors.Join(errs...)
}

var _ confirmation.Sender = (*ReminderChannel)(nil)

// StubSMSSender logs outbound texts without sending them.
type StubSMSSender struct {
	logger *logging.Logger
}

// NewStubSMSSender creates a stub SMS sender.
func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSMSSender{logger: logger}
}

// SendSMS logs the message.
func (s *StubSMSSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.Info("stub sms sender: would send sms", "to", to, "body", truncate(body, 40))
	return nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
