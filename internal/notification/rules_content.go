package notification

import (
	"fmt"
	"strings"

	"github.com/stanstork/tipboard-api/internal/models"
)

// content is the part of an authored entity the lifecycle rules need.
type content struct {
	noun      string
	name      string
	ref       *models.EntityRef
	createdBy *models.User
	updatedBy *models.User
}

// creationIntents acknowledges the creator and tells the privileged users.
func creationIntents(c content, verb models.NotificationVerb, audience Audience) []Intent {
	if c.createdBy == nil {
		return nil
	}
	intents := []Intent{{
		SenderID:     c.createdBy.ID,
		Recipients:   ToUser(*c.createdBy),
		Verb:         verb,
		Description:  fmt.Sprintf("You have created the %s %q.", c.noun, c.name),
		ActionObject: c.ref,
	}}
	if len(audience.Privileged) > 0 {
		intents = append(intents, Intent{
			SenderID:     c.createdBy.ID,
			Recipients:   ToUsers(audience.Privileged),
			Verb:         verb,
			Description:  fmt.Sprintf("Teacher %s has created the %s %q.", c.createdBy.FullName(), c.noun, c.name),
			ActionObject: c.ref,
		})
	}
	return intents
}

// updateIntents acknowledges the updater and, when someone else owns the
// entity, tells the owner who changed it.
func updateIntents(c content, verb models.NotificationVerb) []Intent {
	if c.createdBy == nil || c.updatedBy == nil {
		return nil
	}
	intents := []Intent{{
		SenderID:     c.updatedBy.ID,
		Recipients:   ToUser(*c.updatedBy),
		Verb:         verb,
		Description:  fmt.Sprintf("You just updated the %s %q.", c.noun, c.name),
		ActionObject: c.ref,
	}}
	if models.SameUser(c.createdBy, c.updatedBy) {
		return intents
	}
	return append(intents, Intent{
		SenderID:     c.updatedBy.ID,
		Recipients:   ToUser(*c.createdBy),
		Verb:         verb,
		Description:  fmt.Sprintf("Your %s %q was updated by Teacher %s.", c.noun, c.name, c.updatedBy.FullName()),
		ActionObject: c.ref,
	})
}

func orFallback(name, noun string, id int64) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fmt.Sprintf("%s #%d", noun, id)
}

func tipContent(t models.Tip) content {
	return content{
		noun:      "tip",
		name:      orFallback(t.Title, "tip", t.ID),
		ref:       models.Ref(models.EntityKindTip, t.ID),
		createdBy: t.CreatedBy,
		updatedBy: t.UpdatedBy,
	}
}

func exampleContent(e models.Example) content {
	return content{
		noun:      "example",
		name:      orFallback(e.Headline, "example", e.ID),
		ref:       models.Ref(models.EntityKindExample, e.ID),
		createdBy: e.CreatedBy,
		updatedBy: e.UpdatedBy,
	}
}

type tipRule struct{}

func (tipRule) Kind() models.EntityKind { return models.EntityKindTip }

func (tipRule) Broadcasts(evt Event) bool {
	tip, ok := evt.Entity.(models.Tip)
	return ok && evt.Transition == TransitionCreated && tip.CreatedBy != nil
}

func (tipRule) Generate(evt Event, audience Audience) []Intent {
	tip, ok := evt.Entity.(models.Tip)
	if !ok {
		return nil
	}
	c := tipContent(tip)
	switch evt.Transition {
	case TransitionCreated:
		return creationIntents(c, models.VerbTipCreated, audience)
	case TransitionUpdated:
		return updateIntents(c, models.VerbTipUpdated)
	case TransitionMarkedForEditing:
		return markIntents(c, tip, evt)
	case TransitionLinked, TransitionUnlinked:
		return tipLinkIntents(c, evt)
	}
	return nil
}

// markIntents fires when the edit mark goes from unset to set. The owner is
// told only when somebody else set the mark.
func markIntents(c content, tip models.Tip, evt Event) []Intent {
	if evt.Actor == nil || evt.WasMarked || !tip.MarkedForEditing {
		return nil
	}
	intents := []Intent{{
		SenderID:     evt.Actor.ID,
		Recipients:   ToUser(*evt.Actor),
		Verb:         models.VerbTipMarkedForEditing,
		Description:  fmt.Sprintf("You have marked the tip %q for editing.", c.name),
		ActionObject: c.ref,
	}}
	if c.createdBy != nil && !models.SameUser(c.createdBy, evt.Actor) {
		intents = append(intents, Intent{
			SenderID:     evt.Actor.ID,
			Recipients:   ToUser(*c.createdBy),
			Verb:         models.VerbTipMarkedForEditing,
			Description:  fmt.Sprintf("Your tip %q was marked for editing by Teacher %s.", c.name, evt.Actor.FullName()),
			ActionObject: c.ref,
		})
	}
	return intents
}

func tipLinkIntents(c content, evt Event) []Intent {
	if evt.Actor == nil || evt.Related == nil {
		return nil
	}
	related := tipContent(*evt.Related)
	verb := models.VerbTipLinked
	description := fmt.Sprintf("You have linked the tip %q to the tip %q.", related.name, c.name)
	if evt.Transition == TransitionUnlinked {
		verb = models.VerbTipUnlinked
		description = fmt.Sprintf("You have unlinked the tip %q from the tip %q.", related.name, c.name)
	}
	return []Intent{{
		SenderID:     evt.Actor.ID,
		Recipients:   ToUser(*evt.Actor),
		Verb:         verb,
		Description:  description,
		ActionObject: c.ref,
		Target:       related.ref,
	}}
}

type exampleRule struct{}

func (exampleRule) Kind() models.EntityKind { return models.EntityKindExample }

func (exampleRule) Broadcasts(evt Event) bool {
	example, ok := evt.Entity.(models.Example)
	return ok && evt.Transition == TransitionCreated && example.CreatedBy != nil
}

func (exampleRule) Generate(evt Event, audience Audience) []Intent {
	example, ok := evt.Entity.(models.Example)
	if !ok {
		return nil
	}
	c := exampleContent(example)
	switch evt.Transition {
	case TransitionCreated:
		return creationIntents(c, models.VerbExampleCreated, audience)
	case TransitionUpdated:
		return updateIntents(c, models.VerbExampleUpdated)
	case TransitionLinked, TransitionUnlinked:
		if evt.Actor == nil || evt.Related == nil {
			return nil
		}
		tip := tipContent(*evt.Related)
		verb := models.VerbExampleTipLinked
		description := fmt.Sprintf("You have attached the tip %q to the example %q.", tip.name, c.name)
		if evt.Transition == TransitionUnlinked {
			verb = models.VerbExampleTipUnlinked
			description = fmt.Sprintf("You have detached the tip %q from the example %q.", tip.name, c.name)
		}
		return []Intent{{
			SenderID:     evt.Actor.ID,
			Recipients:   ToUser(*evt.Actor),
			Verb:         verb,
			Description:  description,
			ActionObject: tip.ref,
			Target:       c.ref,
		}}
	}
	return nil
}

type studentRule struct{}

func (studentRule) Kind() models.EntityKind { return models.EntityKindStudent }

func (studentRule) Broadcasts(evt Event) bool {
	student, ok := evt.Entity.(models.Student)
	return ok && evt.Transition == TransitionCreated && student.CreatedBy != nil
}

func (studentRule) Generate(evt Event, audience Audience) []Intent {
	student, ok := evt.Entity.(models.Student)
	if !ok {
		return nil
	}
	c := content{
		noun:      "student",
		name:      student.FullName(),
		ref:       models.Ref(models.EntityKindStudent, student.ID),
		createdBy: student.CreatedBy,
		updatedBy: student.UpdatedBy,
	}
	switch evt.Transition {
	case TransitionCreated:
		return creationIntents(c, models.VerbStudentCreated, audience)
	case TransitionUpdated:
		return updateIntents(c, models.VerbStudentUpdated)
	}
	return nil
}

type episodeRule struct{}

func (episodeRule) Kind() models.EntityKind { return models.EntityKindEpisode }

func (episodeRule) Broadcasts(evt Event) bool {
	episode, ok := evt.Entity.(models.Episode)
	return ok && evt.Transition == TransitionCreated && episode.CreatedBy != nil
}

func (episodeRule) Generate(evt Event, audience Audience) []Intent {
	episode, ok := evt.Entity.(models.Episode)
	if !ok {
		return nil
	}
	name := orFallback(episode.Title, "episode", episode.ID)
	if episode.Student != nil {
		name = fmt.Sprintf("%s (%s)", name, episode.Student.FullName())
	}
	c := content{
		noun:      "episode",
		name:      name,
		ref:       models.Ref(models.EntityKindEpisode, episode.ID),
		createdBy: episode.CreatedBy,
		updatedBy: episode.UpdatedBy,
	}
	switch evt.Transition {
	case TransitionCreated:
		return creationIntents(c, models.VerbEpisodeCreated, audience)
	case TransitionUpdated:
		return updateIntents(c, models.VerbEpisodeUpdated)
	}
	return nil
}
