package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender logs emails instead of sending them. Used in ENV=local only.
// The body carries the one-time code and is logged at debug level, so
// LOG_LEVEL=debug is needed to read codes off the console.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "email (local dev)", "to", to, "subject", subject)
	s.logger.DebugContext(ctx, "email body (local dev)", "to", to, "body", body)
	return nil
}

// ResendSender sends emails via the Resend API in staging/production.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NewSender returns a LogSender for ENV=local, ResendSender otherwise.
func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return &LogSender{logger: logger.With("component", "email")}
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// CodeBody renders the HTML body of a verification email: the intro line,
// the one-time code and a link that submits it directly.
func CodeBody(intro, code, link string) string {
	return fmt.Sprintf(
		`<p>%s</p><p>Here's your verification code: <strong>%s</strong></p><p>Or click the link to get started:</p><p><a href="%s">%s</a></p>`,
		html.EscapeString(intro), html.EscapeString(code), html.EscapeString(link), html.EscapeString(link),
	)
}
