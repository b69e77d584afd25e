// Package mail delivers account mails over SMTP.
package mail

import (
	"context"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"campus/config"
	"campus/internal/domain/service"
	"campus/internal/errors"
	"campus/internal/util"
)

// sender is satisfied by *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpMailer struct {
	from    string
	sender  sender
	timeout time.Duration
	logger  *slog.Logger
}

// NewSMTPMailer creates a Mailer backed by the configured SMTP relay.
func NewSMTPMailer(cfg *config.Config, logger *slog.Logger) service.Mailer {
	mailCfg := cfg.Mail
	if mailCfg == nil {
		mailCfg = &config.MailConfig{}
	}

	dialer := gomail.NewDialer(mailCfg.Host, mailCfg.Port, mailCfg.Username, mailCfg.Password)

	return newSMTPMailer(mailCfg.From, dialer, mailCfg.SendTimeout, logger)
}

func newSMTPMailer(from string, s sender, timeout time.Duration, logger *slog.Logger) *smtpMailer {
	return &smtpMailer{from: from, sender: s, timeout: timeout, logger: logger}
}

// SendVerificationEmail sends the link that confirms the account's email address.
func (m *smtpMailer) SendVerificationEmail(ctx context.Context, msg service.MailMessage) error {
	body, err := render(verificationTemplate, verificationPath, msg)
	if err != nil {
		return err
	}

	return m.send(ctx, msg.Email, verificationSubject, body)
}

// SendPasswordResetEmail sends the password reset link.
func (m *smtpMailer) SendPasswordResetEmail(ctx context.Context, msg service.MailMessage) error {
	body, err := render(passwordResetTemplate, passwordResetPath, msg)
	if err != nil {
		return err
	}

	return m.send(ctx, msg.Email, passwordResetSubject, body)
}

func (m *smtpMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "mail cancelled")
	}

	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", body)

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	// gomail cannot interrupt a relay conversation, so a send still running at the deadline is
	// abandoned and finishes on its own.
	done := make(chan error, 1)
	go func() {
		done <- m.sender.DialAndSend(message)
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrapf(err, "failed to send %q mail", subject)
		}
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "gave up sending %q mail", subject)
	}

	m.logger.DebugContext(ctx, "Mail sent",
		slog.String("to", util.MaskEmail(to)),
		slog.String("subject", subject),
	)

	return nil
}
