package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridTransport struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendGridTransport(apiKey, from, fromName string) *SendGridTransport {
	return &SendGridTransport{client: sendgrid.NewSendClient(apiKey), from: from, fromName: fromName}
}

func (t *SendGridTransport) Name() string { return "sendgrid" }

func (t *SendGridTransport) Send(ctx context.Context, msg Message) error {
	m := sgmail.NewSingleEmail(
		sgmail.NewEmail(t.fromName, t.from),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		msg.HTML,
	)
	// Tracking rewrites the verification links; keep them verbatim.
	tracking := sgmail.NewTrackingSettings()
	click := sgmail.NewClickTrackingSetting()
	click.SetEnable(false)
	click.SetEnableText(false)
	tracking.SetClickTracking(click)
	m.SetTrackingSettings(tracking)

	resp, err := t.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
