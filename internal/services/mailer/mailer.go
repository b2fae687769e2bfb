package mailer

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/config"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when SMTP is configured, otherwise a mailer
// that only logs.
func New(cfg config.SMTPConfig) Mailer {
	if !cfg.Enabled() {
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	return m.dialer.DialAndSend(gm)
}

type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	logutils.Log.WithFields(logutils.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("smtp disabled, email not sent")
	return nil
}
