// Package email renders and delivers the engine's outbound mail: the formal
// complaint to the company and the status notifications to the customer.
package email

import (
	"context"

	"github.com/DataCleaninghash/CustomerAII/platform/config"
)

type Sender interface {
	// SendComplaintEmail delivers the formal complaint to the company's
	// customer service address.
	SendComplaintEmail(ctx context.Context, toEmail, companyName, customerName, customerEmail, category, complaintText string, details map[string]string) error
	// SendCustomEmail delivers an already composed message. The notification
	// outbox stores composed subject and body and sends through this.
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

type NoopSender struct{}

func (NoopSender) SendComplaintEmail(ctx context.Context, toEmail, companyName, customerName, customerEmail, category, complaintText string, details map[string]string) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
