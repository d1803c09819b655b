package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	batches [][]Intent
	err     error
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, intents []Intent) error {
	if e.err != nil {
		return e.err
	}
	e.batches = append(e.batches, intents)
	return nil
}

func newTestPipeline(owners *fakeOwners, enqueuer *recordingEnqueuer) *Pipeline {
	g, _ := newTestGenerator(admin)
	return NewPipeline(g, owners, enqueuer, zerolog.Nop())
}

func TestEmitEnqueuesGeneratedIntents(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	p := newTestPipeline(&fakeOwners{}, enqueuer)

	n, err := p.Emit(context.Background(), Event{
		Transition: TransitionCreated,
		Entity:     models.Tip{ID: 7, Title: "Calm corner", CreatedBy: userPtr(alice)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, enqueuer.batches, 1)
	assert.Len(t, enqueuer.batches[0], 2)
}

func TestEmitSkipsEnqueueWhenNothingGenerated(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	p := newTestPipeline(&fakeOwners{}, enqueuer)

	n, err := p.Emit(context.Background(), Event{
		Transition: TransitionCreated,
		Entity:     models.Tip{ID: 7, Title: "Orphan"},
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, enqueuer.batches)
}

func TestEmitHydratesStudentOwner(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	owners := &fakeOwners{owners: map[models.EntityRef]*models.User{
		{Kind: models.EntityKindStudent, ID: "4"}: &alice,
	}}
	p := newTestPipeline(owners, enqueuer)
	student := &models.Student{ID: 4, FirstName: "Sam", LastName: "Stone"}

	n, err := p.Emit(context.Background(), Event{
		Transition: TransitionAssigned,
		Entity: models.StudentTip{
			ID:         1,
			Student:    student,
			Tip:        &models.Tip{ID: 7, Title: "Calm corner"},
			AssignedBy: userPtr(bob),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	intent := enqueuer.batches[0][0]
	assert.Equal(t, []string{"alice"}, intent.Recipients)
	assert.Equal(t, `Teacher Bob Baker assigned the tip "Calm corner" to Sam Stone.`, intent.Description)
	assert.Nil(t, student.CreatedBy, "caller's student must not be mutated")
}

func TestEmitHydratesTipOwnerForEditMark(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	owners := &fakeOwners{owners: map[models.EntityRef]*models.User{
		{Kind: models.EntityKindTip, ID: "7"}: &alice,
	}}
	p := newTestPipeline(owners, enqueuer)

	n, err := p.Emit(context.Background(), Event{
		Transition: TransitionMarkedForEditing,
		Entity:     models.Tip{ID: 7, Title: "Calm corner", MarkedForEditing: true},
		Actor:      userPtr(bob),
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, []string{"bob"}, enqueuer.batches[0][0].Recipients)
	assert.Equal(t, []string{"alice"}, enqueuer.batches[0][1].Recipients)
}

func TestEmitOwnerLookupFailureStillNotifiesActor(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	p := newTestPipeline(&fakeOwners{err: errors.New("db down")}, enqueuer)

	n, err := p.Emit(context.Background(), Event{
		Transition: TransitionMarkedForEditing,
		Entity:     models.Tip{ID: 7, Title: "Calm corner", MarkedForEditing: true},
		Actor:      userPtr(bob),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmitEnqueueFailure(t *testing.T) {
	p := newTestPipeline(&fakeOwners{}, &recordingEnqueuer{err: errors.New("temporal unavailable")})

	n, err := p.Emit(context.Background(), Event{
		Transition: TransitionCreated,
		Entity:     models.Tip{ID: 7, Title: "Calm corner", CreatedBy: userPtr(alice)},
	})
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestEmitRejectsMalformedEvent(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	p := newTestPipeline(&fakeOwners{}, enqueuer)

	_, err := p.Emit(context.Background(), Event{Transition: "exploded", Entity: models.Tip{ID: 1}})
	assert.ErrorIs(t, err, ErrUnsupportedTransition)
	assert.Empty(t, enqueuer.batches)
}

func TestEmitNamesActorsSentByID(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	owners := &fakeOwners{users: map[string]*models.User{"bob": &bob}}
	p := newTestPipeline(owners, enqueuer)
	assigner := &models.User{ID: "bob"}
	owner := alice

	n, err := p.Emit(context.Background(), Event{
		Transition: TransitionAssigned,
		Entity: models.StudentTip{
			ID:         1,
			Student:    &models.Student{ID: 4, FirstName: "Sam", LastName: "Stone", CreatedBy: &owner},
			Tip:        &models.Tip{ID: 7, Title: "Calm corner"},
			AssignedBy: assigner,
		},
		Actor: assigner,
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	assert.Equal(t, `Teacher Bob Baker assigned the tip "Calm corner" to Sam Stone.`, enqueuer.batches[0][0].Description)
	assert.Equal(t, 1, owners.lookups, "each id is looked up once per event")
	assert.Empty(t, assigner.FirstName, "caller's user must not be mutated")
}

func TestEmitKeepsUnknownActorReference(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	owners := &fakeOwners{}
	p := newTestPipeline(owners, enqueuer)

	n, err := p.Emit(context.Background(), Event{
		Transition: TransitionCreated,
		Entity:     models.Tip{ID: 7, Title: "Calm corner", CreatedBy: &models.User{ID: "ghost", Email: "ghost@example.com"}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Zero(t, owners.lookups, "a user with an email already has a display name")
	assert.Contains(t, enqueuer.batches[0][1].Description, "ghost@example.com")
}
