package notify

import (
	"fmt"

	"github.com/resend/resend-go/v2"

	"alumni/internal/config"
)

// NewSender builds the provider configured by EMAIL_PROVIDER. It returns a nil
// Sender when the provider has no credentials.
func NewSender(cfg config.Email) (Sender, error) {
	switch cfg.Provider {
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, nil
		}
		return NewResendSender(resend.NewClient(cfg.ResendAPIKey), cfg.From, cfg.FromName)
	case "mailjet", "":
		if cfg.MailjetPublicKey == "" || cfg.MailjetPrivateKey == "" {
			return nil, nil
		}
		return NewMailjetSender(cfg.MailjetPublicKey, cfg.MailjetPrivateKey, cfg.From, cfg.FromName, cfg.Templates), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}
