package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/models"
)

var (
	ErrUnsupportedKind       = errors.New("unsupported entity kind")
	ErrUnsupportedTransition = errors.New("unsupported transition")
)

// Audience is the recipient context a rule may broadcast to.
type Audience struct {
	Privileged []models.User
}

// Rule turns lifecycle events for one entity kind into intents. Rules are
// pure: the same event and audience always give the same intents, and a
// missing actor gives none.
type Rule interface {
	Kind() models.EntityKind
	Generate(evt Event, audience Audience) []Intent
}

// broadcaster is implemented by rules that address privileged users for some
// transitions. Broadcasts is false whenever the actor of record is unset, so
// the audience is only resolved when a broadcast can actually be produced.
type broadcaster interface {
	Broadcasts(evt Event) bool
}

type AudienceSource interface {
	PrivilegedUsers(ctx context.Context) ([]models.User, error)
}

type Generator struct {
	rules    map[models.EntityKind]Rule
	audience AudienceSource
	logger   zerolog.Logger
}

func NewGenerator(audience AudienceSource, logger zerolog.Logger) *Generator {
	g := &Generator{
		rules:    make(map[models.EntityKind]Rule),
		audience: audience,
		logger:   logger.With().Str("component", "notification_generator").Logger(),
	}
	for _, rule := range []Rule{
		tipRule{},
		exampleRule{},
		studentRule{},
		episodeRule{},
		tipRatingRule{},
		exampleRatingRule{},
		studentTipRule{},
		studentExampleRule{},
		userStudentRule{},
	} {
		g.rules[rule.Kind()] = rule
	}
	return g
}

// Generate returns the intents for evt. It fails only when the event is
// malformed. Missing actors or owners produce fewer intents, and an
// unresolvable privileged-user set drops the broadcast only.
func (g *Generator) Generate(ctx context.Context, evt Event) ([]Intent, error) {
	if evt.Entity == nil {
		return nil, fmt.Errorf("event has no entity")
	}
	if !evt.Transition.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransition, evt.Transition)
	}
	kind := evt.Entity.EntityKind()
	rule, ok := g.rules[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}

	var audience Audience
	if b, ok := rule.(broadcaster); ok && b.Broadcasts(evt) {
		privileged, err := g.audience.PrivilegedUsers(ctx)
		if err != nil {
			g.logger.Warn().
				Err(err).
				Str("entity_kind", string(kind)).
				Str("transition", string(evt.Transition)).
				Msg("privileged users unavailable, skipping broadcast")
		} else {
			audience.Privileged = privileged
		}
	}

	intents := rule.Generate(evt, audience)
	g.logger.Debug().
		Str("entity_kind", string(kind)).
		Str("transition", string(evt.Transition)).
		Int("intents", len(intents)).
		Msg("generated notification intents")
	return intents, nil
}

// ReminderIntents builds one self-addressed reminder per user with unrated
// reads. The reminder workflow calls it with the counts it loaded.
func ReminderIntents(pending []models.PendingReview) []Intent {
	intents := make([]Intent, 0, len(pending))
	for _, p := range pending {
		if p.Count <= 0 || p.UserID == "" {
			continue
		}
		noun := "tips"
		if p.Count == 1 {
			noun = "tip"
		}
		intents = append(intents, Intent{
			SenderID:    p.UserID,
			Recipients:  []string{p.UserID},
			Verb:        models.VerbTipReviewReminder,
			Description: fmt.Sprintf("You have %d %s you have read but not yet rated.", p.Count, noun),
			Level:       models.NotificationLevelInfo,
		})
	}
	return intents
}
