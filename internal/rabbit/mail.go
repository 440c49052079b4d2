package rabbit

import (
	"context"
	"log/slog"

	"storefront-api/internal/logger"
)

// Email is the body of a mail_outbox message. A mail worker outside this
// service delivers it.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type MailRelay struct {
	pub *Publisher
}

func NewMailRelay(pub *Publisher) *MailRelay {
	return &MailRelay{pub: pub}
}

func (m *MailRelay) Send(ctx context.Context, to, subject, html string) error {
	return m.pub.Publish(ctx, ExchangeMailOutbox, RoutingKeyEmail, Email{To: to, Subject: subject, HTML: html})
}

// LogMailer writes outgoing mail to the log. Development only.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	logger.FromContext(ctx, m.log).Info("email not sent, no broker configured",
		"to", to, "subject", subject, "body", html)
	return nil
}
