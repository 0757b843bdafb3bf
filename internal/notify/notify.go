package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"alumni/internal/errtrack"
	"alumni/internal/metrics"
	"alumni/internal/queue"
)

// Template names a transactional email.
type Template string

const (
	Registration            Template = "registration"
	ManualPayment           Template = "manual_payment"
	PaymentConfirmed        Template = "payment_confirmed"
	TestimonialVerification Template = "testimonial_verification"
	RenewalReminder         Template = "renewal_reminder"
	MembershipExpired       Template = "membership_expired"
	RenewalConfirmed        Template = "renewal_confirmed"
	Birthday                Template = "birthday"
)

// MessageType tags notification messages on the queue.
const MessageType = "email"

// ErrUnknownTemplate is returned when a sender has no template configured for an email.
var ErrUnknownTemplate = errors.New("unknown email template")

// Email is one outbound transactional message.
type Email struct {
	Template Template       `json:"template"`
	To       string         `json:"to"`
	Name     string         `json:"name"`
	Vars     map[string]any `json:"vars,omitempty"`
}

// Sender delivers an email through a provider.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// Enqueuer accepts emails for asynchronous delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, email Email) error
}

// Dispatcher moves emails through a queue and sends each one exactly once.
type Dispatcher struct {
	q      queue.Queue
	sender Sender
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher over q. sender may be nil for publish-only use.
func NewDispatcher(q queue.Queue, sender Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{q: q, sender: sender, logger: logger.With().Str("component", "notify").Logger()}
}

// Enqueue publishes email for background delivery.
func (d *Dispatcher) Enqueue(ctx context.Context, email Email) error {
	body, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	if err := d.q.Publish(ctx, queue.Message{Type: MessageType, Body: body}); err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	return nil
}

// Run consumes the queue until ctx is cancelled. Failed sends are logged and
// reported but never retried.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.sender == nil {
		return errors.New("dispatcher has no sender")
	}
	msgs, err := d.q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume queue: %w", err)
	}
	d.logger.Info().Msg("dispatcher started")
	for msg := range msgs {
		if msg.Type != MessageType {
			d.logger.Warn().Str("type", msg.Type).Msg("skipping unknown message type")
			continue
		}
		var email Email
		if err := json.Unmarshal(msg.Body, &email); err != nil {
			d.logger.Error().Err(err).Msg("dropping malformed email message")
			continue
		}
		d.Deliver(ctx, email)
	}
	d.logger.Info().Msg("dispatcher stopped")
	return nil
}

// Deliver sends email once and records the outcome.
func (d *Dispatcher) Deliver(ctx context.Context, email Email) bool {
	if err := d.sender.Send(ctx, email); err != nil {
		metrics.Emails.WithLabelValues(string(email.Template), "error").Inc()
		d.logger.Error().Err(err).Str("template", string(email.Template)).Str("to", email.To).Msg("email send failed")
		errtrack.Capture(ctx, fmt.Errorf("send %s email: %w", email.Template, err))
		return false
	}
	metrics.Emails.WithLabelValues(string(email.Template), "sent").Inc()
	d.logger.Info().Str("template", string(email.Template)).Str("to", email.To).Msg("email sent")
	return true
}

// Discard is an Enqueuer that drops every email; used when email is not configured.
type Discard struct{}

// Enqueue implements Enqueuer.
func (Discard) Enqueue(context.Context, Email) error { return nil }

func templateVars(email Email) map[string]any {
	vars := make(map[string]any, len(email.Vars)+1)
	vars["name"] = email.Name
	for k, v := range email.Vars {
		vars[k] = v
	}
	return vars
}
