package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/config"
	"google.golang.org/api/option"
)

type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FirebasePublisher pushes notifications to a per-user FCM topic so mobile
// clients get them without a websocket connection.
type FirebasePublisher struct {
	sender      fcmSender
	topicPrefix string
	logger      zerolog.Logger
}

func NewFirebasePublisher(ctx context.Context, cfg config.FirebaseConfig, logger zerolog.Logger) (*FirebasePublisher, error) {
	if strings.TrimSpace(cfg.CredentialsFile) == "" {
		return nil, fmt.Errorf("firebase credentials_file is required when firebase is enabled")
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firebase messaging client: %w", err)
	}
	return newFirebasePublisher(client, cfg.TopicPrefix, logger), nil
}

func newFirebasePublisher(sender fcmSender, topicPrefix string, logger zerolog.Logger) *FirebasePublisher {
	return &FirebasePublisher{
		sender:      sender,
		topicPrefix: topicPrefix,
		logger:      logger.With().Str("publisher", "firebase").Logger(),
	}
}

func (p *FirebasePublisher) Publish(ctx context.Context, userID string, msg Message) error {
	topic := p.topicPrefix + userID
	id, err := p.sender.Send(ctx, &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: "Tipboard",
			Body:  msg.Description,
		},
		Data: map[string]string{
			"id":        msg.ID,
			"verb":      string(msg.Verb),
			"timestamp": msg.Timestamp.Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("send to topic %s: %w", topic, err)
	}
	p.logger.Debug().
		Str("notification_id", msg.ID).
		Str("message_id", id).
		Str("topic", topic).
		Msg("push notification sent")
	return nil
}

func (p *FirebasePublisher) String() string {
	return fmt.Sprintf("FirebasePublisher(topic_prefix=%s)", p.topicPrefix)
}
