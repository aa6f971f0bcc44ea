package notify

import (
	"context"
	"log/slog"
)

// Sender delivers reminder messages. Transport mechanics (SMTP, SMS
// gateways) live behind this interface; the core never dials anything.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, body string) error
}

// SlogSender implements Sender by logging the message. Used in development
// and as the default until a real gateway is configured.
type SlogSender struct{}

// NewSlogSender creates a logging sender
func NewSlogSender() *SlogSender {
	return &SlogSender{}
}

func (s *SlogSender) SendEmail(ctx context.Context, to, subject, body string) error {
	slog.InfoContext(ctx, "notification email",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}

func (s *SlogSender) SendSMS(ctx context.Context, to, body string) error {
	slog.InfoContext(ctx, "notification sms",
		slog.String("to", to),
		slog.String("body", body),
	)
	return nil
}
