package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/models"
)

// Enqueuer hands intents to an out-of-band worker so delivery never blocks
// the mutation that produced them.
type Enqueuer interface {
	Enqueue(ctx context.Context, intents []Intent) error
}

// Directory resolves the users an event refers to.
type Directory interface {
	OwnerOf(ctx context.Context, kind models.EntityKind, id int64) (*models.User, error)
	UserByID(ctx context.Context, userID string) (*models.User, error)
}

// Pipeline is the write-side entry point: generate intents inline, then
// enqueue them for dispatch.
type Pipeline struct {
	generator *Generator
	users     Directory
	enqueuer  Enqueuer
	logger    zerolog.Logger
}

func NewPipeline(generator *Generator, users Directory, enqueuer Enqueuer, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		generator: generator,
		users:     users,
		enqueuer:  enqueuer,
		logger:    logger.With().Str("component", "notification_pipeline").Logger(),
	}
}

// Emit returns the number of intents queued.
func (p *Pipeline) Emit(ctx context.Context, evt Event) (int, error) {
	evt = p.hydrate(ctx, evt)

	intents, err := p.generator.Generate(ctx, evt)
	if err != nil {
		return 0, err
	}
	if len(intents) == 0 {
		return 0, nil
	}
	if err := p.enqueuer.Enqueue(ctx, intents); err != nil {
		p.logger.Error().
			Err(err).
			Str("entity_kind", string(evt.Entity.EntityKind())).
			Str("transition", string(evt.Transition)).
			Msg("failed to enqueue notification intents")
		return 0, fmt.Errorf("enqueue intents: %w", err)
	}
	return len(intents), nil
}

// hydrate fills in what callers usually leave out: the owner of the student
// or tip an assignment or edit mark is about, and the display names of users
// sent by id only. Lookup failures leave the reference as it was.
func (p *Pipeline) hydrate(ctx context.Context, evt Event) Event {
	h := &hydrator{p: p, seen: make(map[string]*models.User)}
	evt.Actor = h.named(ctx, evt.Actor)

	switch e := evt.Entity.(type) {
	case models.Tip:
		if evt.Transition == TransitionMarkedForEditing && e.CreatedBy == nil && e.ID != 0 {
			e.CreatedBy = p.lookupOwner(ctx, models.EntityKindTip, e.ID)
		}
		e.CreatedBy, e.UpdatedBy = h.named(ctx, e.CreatedBy), h.named(ctx, e.UpdatedBy)
		evt.Entity = e
	case models.Example:
		e.CreatedBy, e.UpdatedBy = h.named(ctx, e.CreatedBy), h.named(ctx, e.UpdatedBy)
		evt.Entity = e
	case models.Student:
		e.CreatedBy, e.UpdatedBy = h.named(ctx, e.CreatedBy), h.named(ctx, e.UpdatedBy)
		evt.Entity = e
	case models.Episode:
		e.CreatedBy, e.UpdatedBy = h.named(ctx, e.CreatedBy), h.named(ctx, e.UpdatedBy)
		evt.Entity = e
	case models.TipRating:
		e.RatedBy = h.named(ctx, e.RatedBy)
		evt.Entity = e
	case models.ExampleRating:
		e.RatedBy = h.named(ctx, e.RatedBy)
		evt.Entity = e
	case models.StudentTip:
		e.Student = h.studentWithOwner(ctx, e.Student)
		e.AssignedBy = h.named(ctx, e.AssignedBy)
		evt.Entity = e
	case models.StudentExample:
		e.Student = h.studentWithOwner(ctx, e.Student)
		e.AssignedBy = h.named(ctx, e.AssignedBy)
		evt.Entity = e
	case models.UserStudentMapping:
		e.Student = h.studentWithOwner(ctx, e.Student)
		e.AssignedBy, e.User = h.named(ctx, e.AssignedBy), h.named(ctx, e.User)
		evt.Entity = e
	}
	return evt
}

func (p *Pipeline) lookupOwner(ctx context.Context, kind models.EntityKind, id int64) *models.User {
	owner, err := p.users.OwnerOf(ctx, kind, id)
	if err != nil {
		p.logger.Warn().Err(err).Str("entity_kind", string(kind)).Int64("entity_id", id).Msg("owner lookup failed")
		return nil
	}
	return owner
}

// hydrator resolves each user id at most once per event.
type hydrator struct {
	p    *Pipeline
	seen map[string]*models.User
}

func (h *hydrator) studentWithOwner(ctx context.Context, s *models.Student) *models.Student {
	if s == nil {
		return nil
	}
	hydrated := *s
	if hydrated.CreatedBy == nil && hydrated.ID != 0 {
		hydrated.CreatedBy = h.p.lookupOwner(ctx, models.EntityKindStudent, s.ID)
	}
	hydrated.CreatedBy = h.named(ctx, hydrated.CreatedBy)
	return &hydrated
}

// named returns u with its stored record when u carries an id but no name.
func (h *hydrator) named(ctx context.Context, u *models.User) *models.User {
	if u == nil || u.ID == "" || u.FullName() != "" {
		return u
	}
	if known, ok := h.seen[u.ID]; ok {
		if known == nil {
			return u
		}
		return known
	}
	stored, err := h.p.users.UserByID(ctx, u.ID)
	if err != nil {
		h.p.logger.Warn().Err(err).Str("user_id", u.ID).Msg("user lookup failed")
	}
	h.seen[u.ID] = stored
	if stored == nil {
		return u
	}
	return stored
}
