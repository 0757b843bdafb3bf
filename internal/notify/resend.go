package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"
)

//go:embed templates/*.html
var templatesFS embed.FS

var subjects = map[Template]string{
	Registration:            "Welcome to the MES Alumni Association",
	ManualPayment:           "Completing your membership payment",
	PaymentConfirmed:        "Your membership is confirmed",
	TestimonialVerification: "New testimonial awaiting approval",
	RenewalReminder:         "Your membership is about to expire",
	MembershipExpired:       "Your membership has expired",
	RenewalConfirmed:        "Your membership has been renewed",
	Birthday:                "Happy birthday from the MES Alumni Association",
}

// ResendSender renders the embedded HTML templates and sends them through Resend.
type ResendSender struct {
	client *resend.Client
	from   string
	tmpl   *template.Template
}

// NewResendSender creates a sender with the given API client.
func NewResendSender(client *resend.Client, from, fromName string) (*ResendSender, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, from)
	}
	return &ResendSender{client: client, from: from, tmpl: tmpl}, nil
}

// Send implements Sender.
func (s *ResendSender) Send(ctx context.Context, email Email) error {
	subject, body, err := s.render(email)
	if err != nil {
		return err
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{email.To},
		Subject: subject,
		Html:    body,
	})
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			return fmt.Errorf("email rate limit exceeded (resets in %s seconds): %w", rateLimitErr.Reset, err)
		}
		return fmt.Errorf("resend API error: %w", err)
	}
	if sent == nil || sent.Id == "" {
		return errors.New("resend API returned no message id")
	}
	return nil
}

func (s *ResendSender) render(email Email) (string, string, error) {
	subject, ok := subjects[email.Template]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, email.Template)
	}
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, string(email.Template)+".html", templateVars(email)); err != nil {
		return "", "", fmt.Errorf("render %s: %w", email.Template, err)
	}
	return subject, buf.String(), nil
}
