// Package notify fans anomaly escalations out to chat platforms. The hub's
// ambient sweep and the anomaly decision path both publish through a
// Notifier; delivery failures are logged, never fatal.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/autohaus/cos/internal/config"
)

// Severity buckets for escalation formatting.
const (
	SeverityYellow = "YELLOW"
	SeverityRed    = "RED"
)

// Event is one escalation to push to the team.
type Event struct {
	Title    string // headline, e.g. "Aging unit flagged"
	Body     string // detail text
	Severity string // SeverityYellow or SeverityRed
	VIN      string
	Zone     string
}

// Notifier delivers an escalation to one platform.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
	Name() string
}

// Multi fans an event out to every configured notifier. Per-platform
// failures are logged and do not stop the remaining deliveries.
type Multi struct {
	notifiers []Notifier
}

// NewMulti builds a Multi from configuration, skipping channels without a
// bot token.
func NewMulti(cfg config.NotifyConfig) (*Multi, error) {
	m := &Multi{}
	if cfg.Slack.BotToken != "" {
		s, err := NewSlack(SlackOpts{BotToken: cfg.Slack.BotToken, Channel: cfg.Slack.Channel})
		if err != nil {
			return nil, fmt.Errorf("notify: slack: %w", err)
		}
		m.notifiers = append(m.notifiers, s)
	}
	if cfg.Discord.BotToken != "" {
		d, err := NewDiscord(DiscordOpts{BotToken: cfg.Discord.BotToken, Channel: cfg.Discord.Channel})
		if err != nil {
			return nil, fmt.Errorf("notify: discord: %w", err)
		}
		m.notifiers = append(m.notifiers, d)
	}
	return m, nil
}

// Add appends a notifier, used by tests and custom wiring.
func (m *Multi) Add(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Len reports how many platforms are configured.
func (m *Multi) Len() int {
	return len(m.notifiers)
}

// Notify delivers evt to every platform, logging failures.
func (m *Multi) Notify(ctx context.Context, evt Event) error {
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, evt); err != nil {
			log.Printf("notify: %s delivery failed: %v", n.Name(), err)
		}
	}
	return nil
}

// Name identifies the fan-out notifier.
func (m *Multi) Name() string { return "multi" }

// colorFor maps severity to a sidebar color.
func colorFor(severity string) string {
	if severity == SeverityRed {
		return "#d0021b"
	}
	return "#f5a623"
}
