package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/config"
	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, message *messaging.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, message)
	return "projects/tipboard/messages/1", nil
}

func TestFirebasePublisherSendsToUserTopic(t *testing.T) {
	sender := &fakeSender{}
	p := newFirebasePublisher(sender, "user-", zerolog.Nop())
	ts := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), "alice", Message{
		ID:          "n-1",
		Verb:        models.VerbTipCreated,
		Description: `You have created the tip "Calm corner".`,
		Timestamp:   ts,
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "user-alice", msg.Topic)
	assert.Equal(t, `You have created the tip "Calm corner".`, msg.Notification.Body)
	assert.Equal(t, "n-1", msg.Data["id"])
	assert.Equal(t, "tip_created", msg.Data["verb"])
	assert.Equal(t, "2026-04-02T12:00:00Z", msg.Data["timestamp"])
}

func TestFirebasePublisherWrapsSendError(t *testing.T) {
	p := newFirebasePublisher(&fakeSender{err: errors.New("quota exceeded")}, "user-", zerolog.Nop())

	err := p.Publish(context.Background(), "alice", Message{ID: "n-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user-alice")
	assert.Contains(t, p.String(), "user-")
}

func TestNewFirebasePublisherRequiresCredentials(t *testing.T) {
	_, err := NewFirebasePublisher(context.Background(), config.FirebaseConfig{Enabled: true, TopicPrefix: "user-"}, zerolog.Nop())
	assert.Error(t, err)
}
