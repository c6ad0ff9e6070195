package notify

import (
	"context"

	"food-delivery/client/config"

	"gopkg.in/gomail.v2"
)

// EmailSink mails email notices over SMTP and ignores other channels.
type EmailSink struct {
	from   string
	dialer *gomail.Dialer
	sender gomail.Sender
}

func NewEmailSink(cfg config.SMTPConfig) *EmailSink {
	return &EmailSink{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// NewEmailSinkWithSender sends through s instead of dialing SMTP per message.
func NewEmailSinkWithSender(from string, s gomail.Sender) *EmailSink {
	return &EmailSink{from: from, sender: s}
}

func (s *EmailSink) Send(_ context.Context, n Notice) error {
	if n.Channel != ChannelEmail || n.To == "" {
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", n.Body)

	if s.sender != nil {
		return gomail.Send(s.sender, m)
	}
	return s.dialer.DialAndSend(m)
}
