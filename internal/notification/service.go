package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stanstork/tipboard-api/internal/repository"
	"go.uber.org/multierr"
)

type Service interface {
	// Dispatch stores one notification per recipient of every intent and
	// publishes each stored row. A failure for one recipient never stops
	// the others; the returned error combines the persistence failures.
	Dispatch(ctx context.Context, intents []Intent) error
	ListRecent(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error)
}

type service struct {
	repo       repository.NotificationRepository
	logger     zerolog.Logger
	publishers []Publisher
	now        func() time.Time
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger, publishers ...Publisher) Service {
	active := make([]Publisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			active = append(active, p)
		}
	}
	return &service{
		repo:       repo,
		logger:     logger.With().Str("component", "notification_service").Logger(),
		publishers: active,
		now:        time.Now,
	}
}

func (s *service) Dispatch(ctx context.Context, intents []Intent) error {
	var errs error
	for _, intent := range intents {
		errs = multierr.Append(errs, s.dispatchIntent(ctx, intent))
	}
	return errs
}

func (s *service) dispatchIntent(ctx context.Context, intent Intent) error {
	if intent.Verb == "" {
		return fmt.Errorf("intent has no verb")
	}
	recipients := normalizeRecipients(intent.Recipients)
	if len(recipients) == 0 {
		s.logger.Warn().Str("verb", string(intent.Verb)).Msg("dropping intent without recipients")
		return nil
	}
	level := intent.Level
	if level == "" {
		level = models.NotificationLevelSuccess
	}
	// Every row of one intent shares the same timestamp.
	createdAt := s.now().UTC()

	var errs error
	for _, recipientID := range recipients {
		notif, err := s.repo.Create(ctx, repository.CreateNotificationParams{
			ActorID:      intent.SenderID,
			RecipientID:  recipientID,
			Verb:         intent.Verb,
			Description:  intent.Description,
			ActionObject: intent.ActionObject,
			Target:       intent.Target,
			Level:        level,
			CreatedAt:    createdAt,
		})
		if err != nil {
			event := s.logger.Error().
				Err(err).
				Str("verb", string(intent.Verb)).
				Str("recipient_id", recipientID)
			if intent.ActionObject != nil {
				event = event.Stringer("action_object", intent.ActionObject)
			}
			event.Msg("failed to persist notification")
			errs = multierr.Append(errs, fmt.Errorf("persist %s for %s: %w", intent.Verb, recipientID, err))
			continue
		}

		msg := messageFor(notif)
		for _, p := range s.publishers {
			if err := p.Publish(ctx, recipientID, msg); err != nil {
				logPublishError(s.logger, err, publisherName(p), recipientID, msg)
			}
		}
	}
	return errs
}

func (s *service) ListRecent(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, recipientID, limit)
}

func (s *service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

func (s *service) MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, recipientID, notificationID)
}
