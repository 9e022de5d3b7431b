// Package mailer delivers invitation passcodes. The invite flow treats a
// delivery failure as a reportable outcome, so implementations must return
// the transport error rather than swallow it.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"atelier/internal/config"
)

// PasscodeMailer sends a one-time passcode to an invitee.
type PasscodeMailer interface {
	SendPasscode(ctx context.Context, to, spaceName, passcode, callbackURL string) error
}

// SMTPMailer sends invitation mail over plain SMTP.
type SMTPMailer struct {
	addr     string
	from     string
	auth     smtp.Auth
	callback string
}

// NewSMTPMailer builds a mailer from config. Auth is only attached when a
// username is configured.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		host := cfg.SMTPAddr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, host)
	}
	return &SMTPMailer{
		addr:     cfg.SMTPAddr,
		from:     cfg.MailFrom,
		auth:     auth,
		callback: cfg.InviteCallback,
	}
}

func (m *SMTPMailer) SendPasscode(ctx context.Context, to, spaceName, passcode, callbackURL string) error {
	if callbackURL == "" {
		callbackURL = m.callback
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: You've been invited to %s\r\n", spaceName)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "You have been invited to join %s.\r\n\r\n", spaceName)
	fmt.Fprintf(&b, "Your sign-in code: %s\r\n\r\n", passcode)
	fmt.Fprintf(&b, "Open %s and enter the code to accept the invitation.\r\n", callbackURL)
	b.WriteString("The code expires in 15 minutes.\r\n")

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(b.String()))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogMailer writes the passcode to the structured log instead of sending
// mail. Used in development and test where no SMTP endpoint exists.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendPasscode(ctx context.Context, to, spaceName, passcode, callbackURL string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "invitation passcode issued",
		"to", to,
		"space", spaceName,
		"passcode", passcode,
		"callback", callbackURL,
	)
	return nil
}

// FromConfig picks the SMTP mailer when an endpoint is configured and the
// log mailer otherwise.
func FromConfig(cfg *config.Config, logger *slog.Logger) PasscodeMailer {
	if cfg.SMTPAddr != "" {
		return NewSMTPMailer(cfg)
	}
	return &LogMailer{Logger: logger}
}
