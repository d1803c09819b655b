package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/models"
)

// Message is the lightweight copy of a stored notification pushed to
// connected clients.
type Message struct {
	ID          string                  `json:"id"`
	Verb        models.NotificationVerb `json:"verb"`
	Description string                  `json:"description"`
	Timestamp   time.Time               `json:"timestamp"`
}

func messageFor(n models.Notification) Message {
	return Message{
		ID:          n.ID,
		Verb:        n.Verb,
		Description: n.Description,
		Timestamp:   n.CreatedAt,
	}
}

// Publisher delivers a message to one user's realtime channel. Delivery is
// fire-and-forget; errors are logged by the caller and never retried.
type Publisher interface {
	Publish(ctx context.Context, userID string, msg Message) error
}

func logPublishError(logger zerolog.Logger, err error, channel, recipientID string, msg Message) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("notification_id", msg.ID).
		Str("verb", string(msg.Verb)).
		Str("recipient_id", recipientID).
		Str("channel", channel).
		Msg("failed to publish notification")
}

func publisherName(p Publisher) string {
	type named interface {
		String() string
	}
	if v, ok := p.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", p)
}
