// Package telegraph posts sprint events to chat platforms (Slack, Discord).
package telegraph

import (
	"context"
	"time"
)

// Adapter posts sprint announcements to one chat platform. Adapters are
// outbound only; nothing is read back from the channel.
type Adapter interface {
	Name() string // platform name, e.g. "slack"

	// Connect verifies credentials. Send fails until it succeeds.
	Connect(ctx context.Context) error

	Send(ctx context.Context, msg OutboundMessage) error

	// Close is idempotent. A closed adapter cannot reconnect.
	Close() error
}

// OutboundMessage is one post to a channel.
type OutboundMessage struct {
	ChannelID string           // target channel (empty for the adapter default)
	Text      string           // message text (platform-native formatting)
	Events    []FormattedEvent // structured event attachments
}

// FormattedEvent is a sprint event rendered for chat.
type FormattedEvent struct {
	Title    string  // event headline (e.g. "Sprint 3 of Webshop finished")
	Body     string  // detail text
	Severity string  // "info", "warning", "error", "success"
	Color    string  // sidebar color hint (e.g. "#36a64f" for success)
	Fields   []Field // key-value metadata pairs

	Project  string    // project title, rendered as footer
	Progress *Progress // effort burned so far, nil when not meaningful
	At       time.Time // when it happened; zero omits the timestamp
}

// Field is a labelled value shown under an event.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}
