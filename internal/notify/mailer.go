package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// ResendMailer sends transactional email through the Resend API.
// One shot, no retries; the dispatcher logs failures and moves on.
type ResendMailer struct {
	client *resend.Client
	from   string
	logger *zerolog.Logger
}

func NewResendMailer(apiKey, from string, logger *zerolog.Logger) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
		logger: logger,
	}
}

func (m *ResendMailer) Send(ctx context.Context, to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}

	m.logger.Debug().Str("to", to).Str("subject", subject).Str("email_id", sent.Id).Msg("email sent")
	return nil
}
