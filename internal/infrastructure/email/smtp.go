package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"seatpool/internal/domain/allocation"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// SMTPNotifier implements allocation.NotifierPort over SMTP. Messages carry a
// plain text body only; expiry notices and seat invitations do not need
// templating.
type SMTPNotifier struct {
	config SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPNotifier(config SMTPConfig) allocation.NotifierPort {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)

	return &SMTPNotifier{
		config: config,
		dialer: dialer,
	}
}

func (s *SMTPNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	from := s.config.FromAddress
	if s.config.FromName != "" {
		from = m.FormatAddress(s.config.FromAddress, s.config.FromName)
	}
	m.SetHeader("From", from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
