package notification

import (
	"encoding/json"
	"fmt"

	"github.com/stanstork/tipboard-api/internal/models"
)

type TransitionKind string

const (
	TransitionCreated          TransitionKind = "created"
	TransitionUpdated          TransitionKind = "updated"
	TransitionRated            TransitionKind = "rated"
	TransitionAssigned         TransitionKind = "assigned"
	TransitionMarkedForEditing TransitionKind = "marked_for_editing"
	TransitionLinked           TransitionKind = "linked"
	TransitionUnlinked         TransitionKind = "unlinked"
)

func (t TransitionKind) Valid() bool {
	switch t {
	case TransitionCreated, TransitionUpdated, TransitionRated, TransitionAssigned,
		TransitionMarkedForEditing, TransitionLinked, TransitionUnlinked:
		return true
	}
	return false
}

// Event is an entity lifecycle transition. Entity holds the post-mutation
// state as a value (models.Tip, models.StudentTip, ...). Actor, Related and
// WasMarked carry the parts of the transition the entity itself does not
// record.
type Event struct {
	Transition TransitionKind
	Entity     models.Subject
	// Actor performed a mark, link or unlink.
	Actor *models.User
	// Related is the other side of a link or unlink.
	Related *models.Tip
	// WasMarked is the edit mark before the mutation.
	WasMarked bool
}

// DecodeSubject builds the entity value for kind from its JSON form.
func DecodeSubject(kind models.EntityKind, raw json.RawMessage) (models.Subject, error) {
	var (
		subject models.Subject
		err     error
	)
	switch kind {
	case models.EntityKindTip:
		var v models.Tip
		err = json.Unmarshal(raw, &v)
		subject = v
	case models.EntityKindExample:
		var v models.Example
		err = json.Unmarshal(raw, &v)
		subject = v
	case models.EntityKindStudent:
		var v models.Student
		err = json.Unmarshal(raw, &v)
		subject = v
	case models.EntityKindEpisode:
		var v models.Episode
		err = json.Unmarshal(raw, &v)
		subject = v
	case models.EntityKindTipRating:
		var v models.TipRating
		err = json.Unmarshal(raw, &v)
		subject = v
	case models.EntityKindExampleRating:
		var v models.ExampleRating
		err = json.Unmarshal(raw, &v)
		subject = v
	case models.EntityKindStudentTip:
		var v models.StudentTip
		err = json.Unmarshal(raw, &v)
		subject = v
	case models.EntityKindStudentExample:
		var v models.StudentExample
		err = json.Unmarshal(raw, &v)
		subject = v
	case models.EntityKindUserStudentMapping:
		var v models.UserStudentMapping
		err = json.Unmarshal(raw, &v)
		subject = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return subject, nil
}
