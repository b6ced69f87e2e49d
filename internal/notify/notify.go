// Package notify tells the artist a submission finished: a local sound and
// optional chat webhooks. Every notifier is best-effort.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smedge-submit/internal/logx"
)

type Event struct {
	Scene    string
	JobName  string
	Layers   []string
	JobFiles []string
	Err      error
}

// Summary is the one-line text sent to chat targets.
func (e Event) Summary() string {
	if e.Err != nil {
		return fmt.Sprintf("Smedge submission of %s failed: %v", e.JobName, e.Err)
	}
	layers := "no layers"
	if len(e.Layers) > 0 {
		layers = strings.Join(e.Layers, ", ")
	}
	return fmt.Sprintf("Smedge submission of %s queued %d job file(s) (%s)", e.JobName, len(e.JobFiles), layers)
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to every notifier. Failures are logged and joined
// but never stop the remaining notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	logger := logx.FromContext(ctx)
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			logger.Warn("notification failed", "notifier", fmt.Sprintf("%T", n), "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config selects the notifiers to build.
type Config struct {
	SoundPath      string
	SlackWebhook   string
	DiscordWebhook string
}

// FromConfig builds a Multi with one notifier per configured target.
func FromConfig(cfg Config) (Multi, error) {
	var out Multi
	if strings.TrimSpace(cfg.SoundPath) != "" {
		out = append(out, Sound{Path: cfg.SoundPath})
	}
	if strings.TrimSpace(cfg.SlackWebhook) != "" {
		out = append(out, Slack{WebhookURL: cfg.SlackWebhook})
	}
	if strings.TrimSpace(cfg.DiscordWebhook) != "" {
		d, err := NewDiscord(cfg.DiscordWebhook)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
