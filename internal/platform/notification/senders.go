package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// SMTPConfig holds the connection settings for the SMTP email sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPEmailSender sends email via a plain SMTP relay.
type SMTPEmailSender struct {
	cfg SMTPConfig
}

// NewSMTPEmailSender creates an SMTPEmailSender from cfg.
func NewSMTPEmailSender(cfg SMTPConfig) *SMTPEmailSender {
	return &SMTPEmailSender{cfg: cfg}
}

// SendEmail sends a plain-text email to a single recipient.
func (s *SMTPEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogPushSender logs push notifications instead of sending them. It stands in
// for a real provider (FCM, APNs) in development and test environments.
type LogPushSender struct {
	logger zerolog.Logger
}

// NewLogPushSender creates a LogPushSender.
func NewLogPushSender(logger zerolog.Logger) *LogPushSender {
	return &LogPushSender{logger: logger}
}

// SendPush logs the push payload at info level.
func (s *LogPushSender) SendPush(_ context.Context, tokens []string, title, body string, data map[string]string) error {
	s.logger.Info().
		Int("tokens", len(tokens)).
		Str("title", title).
		Str("body", body).
		Interface("data", data).
		Msg("push notification (log sender)")
	return nil
}

// LogSMSSender logs SMS messages instead of sending them. It stands in for a
// real provider (Twilio) in development and test environments.
type LogSMSSender struct {
	logger zerolog.Logger
}

// NewLogSMSSender creates a LogSMSSender.
func NewLogSMSSender(logger zerolog.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

// SendSMS logs the SMS payload at info level.
func (s *LogSMSSender) SendSMS(_ context.Context, to, body string) error {
	s.logger.Info().
		Str("to", to).
		Str("body", body).
		Msg("sms notification (log sender)")
	return nil
}
