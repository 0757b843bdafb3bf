package notify

import (
	"context"
	"fmt"

	"github.com/mailjet/mailjet-apiv3-go"
)

// MailjetSender renders emails from templates stored in the Mailjet account.
type MailjetSender struct {
	client    *mailjet.Client
	from      string
	fromName  string
	templates map[string]int
}

// NewMailjetSender creates a sender; templates maps template names to Mailjet template ids.
func NewMailjetSender(publicKey, privateKey, from, fromName string, templates map[string]int) *MailjetSender {
	return &MailjetSender{
		client:    mailjet.NewMailjetClient(publicKey, privateKey),
		from:      from,
		fromName:  fromName,
		templates: templates,
	}
}

// Send implements Sender.
func (s *MailjetSender) Send(_ context.Context, email Email) error {
	info, err := s.buildMessage(email)
	if err != nil {
		return err
	}
	msgs := mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{info}}
	if _, err := s.client.SendMailV31(&msgs); err != nil {
		return fmt.Errorf("could not send mail: %w", err)
	}
	return nil
}

func (s *MailjetSender) buildMessage(email Email) (mailjet.InfoMessagesV31, error) {
	id, ok := s.templates[string(email.Template)]
	if !ok || id == 0 {
		return mailjet.InfoMessagesV31{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, email.Template)
	}
	return mailjet.InfoMessagesV31{
		From:             &mailjet.RecipientV31{Email: s.from, Name: s.fromName},
		To:               &mailjet.RecipientsV31{mailjet.RecipientV31{Email: email.To, Name: email.Name}},
		TemplateID:       id,
		TemplateLanguage: true,
		Variables:        templateVars(email),
	}, nil
}
