package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const smtpDialTimeout = 15 * time.Second

// SMTPSender delivers mail over a direct SMTP connection via go-mail. A
// fresh client is dialed per message so concurrent outbox deliveries never
// share connection state.
type SMTPSender struct {
	host       string
	fromName   string
	fromEmail  string
	clientOpts []gomail.Option
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		fromName:  fromName,
		fromEmail: fromEmail,
		clientOpts: []gomail.Option{
			gomail.WithPort(port),
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(username),
			gomail.WithPassword(password),
			gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
			gomail.WithTimeout(smtpDialTimeout),
			// Some SMTP hosts publish AAAA records but refuse IPv6 connects.
			gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
			}),
		},
	}
}

// SendComplaintEmail composes and delivers the formal complaint to the
// company. Reply-To is set to the customer so the company's answer lands in
// the customer's own inbox rather than ours.
func (s *SMTPSender) SendComplaintEmail(ctx context.Context, toEmail, companyName, customerName, customerEmail, category, complaintText string, details map[string]string) error {
	subject, content, err := ComposeComplaintEmail(companyName, customerName, customerEmail, category, complaintText, details)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, customerEmail, subject, content)
}

// SendCustomEmail delivers an already composed message as-is.
func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, "", subject, htmlContent)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, replyTo, subject, htmlContent string) error {
	msg, err := s.compose(toEmail, replyTo, subject, htmlContent)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.host, s.clientOpts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) compose(toEmail, replyTo, subject, htmlContent string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	if replyTo != "" {
		if err := msg.ReplyTo(replyTo); err != nil {
			return nil, fmt.Errorf("smtp reply-to: %w", err)
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)
	return msg, nil
}
