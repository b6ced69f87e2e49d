package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Slack posts to an incoming webhook.
type Slack struct {
	WebhookURL string
}

func (s Slack) Notify(ctx context.Context, ev Event) error {
	msg := &slack.WebhookMessage{Text: ev.Summary()}
	if err := slack.PostWebhookContext(ctx, s.WebhookURL, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}
