package email

import (
	"fmt"

	"github.com/YellowFlash2012/hoaxgate/internal/config"

	gomail "gopkg.in/gomail.v2"
)

// Sender delivers account lifecycle mail. Handlers depend on this
// interface so tests can swap in a recording fake.
type Sender interface {
	SendAccountActivation(to, token string) error
	SendPasswordReset(to, token string) error
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender returns a Sender speaking SMTP with the configured host.
func NewSMTPSender(cfg config.MailConfig) Sender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpSender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func (s *smtpSender) SendAccountActivation(to, token string) error {
	return s.send(to, "Account Activation",
		fmt.Sprintf("Token is %s", token))
}

func (s *smtpSender) SendPasswordReset(to, token string) error {
	return s.send(to, "Password Reset",
		fmt.Sprintf("Password reset token is %s", token))
}
