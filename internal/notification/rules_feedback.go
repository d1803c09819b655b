package notification

import (
	"fmt"

	"github.com/stanstork/tipboard-api/internal/models"
)

// ratingIntents has the creation shape: the rater gets an acknowledgement and
// the privileged users a third-person notice.
func ratingIntents(rater *models.User, subject content, rating *models.EntityRef, stars float64, verb models.NotificationVerb, audience Audience) []Intent {
	if rater == nil {
		return nil
	}
	intents := []Intent{{
		SenderID:     rater.ID,
		Recipients:   ToUser(*rater),
		Verb:         verb,
		Description:  fmt.Sprintf("You have rated the %s %q with %.1f stars.", subject.noun, subject.name, stars),
		ActionObject: subject.ref,
		Target:       rating,
	}}
	if len(audience.Privileged) > 0 {
		intents = append(intents, Intent{
			SenderID:     rater.ID,
			Recipients:   ToUsers(audience.Privileged),
			Verb:         verb,
			Description:  fmt.Sprintf("Teacher %s has rated the %s %q with %.1f stars.", rater.FullName(), subject.noun, subject.name, stars),
			ActionObject: subject.ref,
			Target:       rating,
		})
	}
	return intents
}

type tipRatingRule struct{}

func (tipRatingRule) Kind() models.EntityKind { return models.EntityKindTipRating }

func (tipRatingRule) Broadcasts(evt Event) bool {
	rating, ok := evt.Entity.(models.TipRating)
	return ok && isRating(evt.Transition) && rating.RatedBy != nil
}

func (tipRatingRule) Generate(evt Event, audience Audience) []Intent {
	rating, ok := evt.Entity.(models.TipRating)
	if !ok || !isRating(evt.Transition) || rating.Tip == nil {
		return nil
	}
	return ratingIntents(rating.RatedBy, tipContent(*rating.Tip),
		models.Ref(models.EntityKindTipRating, rating.ID), rating.Stars(), models.VerbTipRated, audience)
}

type exampleRatingRule struct{}

func (exampleRatingRule) Kind() models.EntityKind { return models.EntityKindExampleRating }

func (exampleRatingRule) Broadcasts(evt Event) bool {
	rating, ok := evt.Entity.(models.ExampleRating)
	return ok && isRating(evt.Transition) && rating.RatedBy != nil
}

func (exampleRatingRule) Generate(evt Event, audience Audience) []Intent {
	rating, ok := evt.Entity.(models.ExampleRating)
	if !ok || !isRating(evt.Transition) || rating.Example == nil {
		return nil
	}
	return ratingIntents(rating.RatedBy, exampleContent(*rating.Example),
		models.Ref(models.EntityKindExampleRating, rating.ID), rating.Stars(), models.VerbExampleRated, audience)
}

// A rating row is created by the act of rating, so both transitions count.
func isRating(t TransitionKind) bool {
	return t == TransitionRated || t == TransitionCreated
}

func isAssignment(t TransitionKind) bool {
	return t == TransitionAssigned || t == TransitionCreated
}

// studentOwner returns the teacher who registered the student, if recorded.
func studentOwner(s *models.Student) *models.User {
	if s == nil {
		return nil
	}
	return s.CreatedBy
}

type studentTipRule struct{}

func (studentTipRule) Kind() models.EntityKind { return models.EntityKindStudentTip }

func (studentTipRule) Generate(evt Event, _ Audience) []Intent {
	st, ok := evt.Entity.(models.StudentTip)
	if !ok || !isAssignment(evt.Transition) {
		return nil
	}
	owner := studentOwner(st.Student)
	if st.AssignedBy == nil || owner == nil || st.Tip == nil {
		return nil
	}
	tip := tipContent(*st.Tip)
	return []Intent{{
		SenderID:     st.AssignedBy.ID,
		Recipients:   ToUser(*owner),
		Verb:         models.VerbTipAssigned,
		Description:  fmt.Sprintf("Teacher %s assigned the tip %q to %s.", st.AssignedBy.FullName(), tip.name, st.Student.FullName()),
		ActionObject: tip.ref,
		Target:       models.Ref(models.EntityKindStudent, st.Student.ID),
	}}
}

type studentExampleRule struct{}

func (studentExampleRule) Kind() models.EntityKind { return models.EntityKindStudentExample }

func (studentExampleRule) Generate(evt Event, _ Audience) []Intent {
	se, ok := evt.Entity.(models.StudentExample)
	if !ok || !isAssignment(evt.Transition) {
		return nil
	}
	owner := studentOwner(se.Student)
	if se.AssignedBy == nil || owner == nil || se.Example == nil {
		return nil
	}
	example := exampleContent(*se.Example)
	return []Intent{{
		SenderID:     se.AssignedBy.ID,
		Recipients:   ToUser(*owner),
		Verb:         models.VerbExampleAssigned,
		Description:  fmt.Sprintf("Teacher %s assigned the example %q to %s.", se.AssignedBy.FullName(), example.name, se.Student.FullName()),
		ActionObject: example.ref,
		Target:       models.Ref(models.EntityKindStudent, se.Student.ID),
	}}
}

type userStudentRule struct{}

func (userStudentRule) Kind() models.EntityKind { return models.EntityKindUserStudentMapping }

func (userStudentRule) Generate(evt Event, _ Audience) []Intent {
	m, ok := evt.Entity.(models.UserStudentMapping)
	if !ok || !isAssignment(evt.Transition) {
		return nil
	}
	owner := studentOwner(m.Student)
	if m.AssignedBy == nil || m.User == nil || owner == nil {
		return nil
	}
	// Mapping yourself to a student is not news to anyone.
	if models.SameUser(m.AssignedBy, m.User) {
		return nil
	}
	return []Intent{{
		SenderID:     m.AssignedBy.ID,
		Recipients:   ToUser(*owner),
		Verb:         models.VerbStudentAssigned,
		Description:  fmt.Sprintf("Teacher %s assigned %s to %s.", m.AssignedBy.FullName(), m.User.FullName(), m.Student.FullName()),
		ActionObject: models.Ref(models.EntityKindStudent, m.Student.ID),
		Target:       models.UserRef(*m.User),
	}}
}
