package models

import (
	"time"
)

type NotificationLevel string

const (
	NotificationLevelSuccess NotificationLevel = "success"
	NotificationLevelInfo    NotificationLevel = "info"
	NotificationLevelWarning NotificationLevel = "warning"
	NotificationLevelError   NotificationLevel = "error"
)

type NotificationVerb string

const (
	VerbTipCreated          NotificationVerb = "tip_created"
	VerbTipUpdated          NotificationVerb = "tip_updated"
	VerbExampleCreated      NotificationVerb = "example_created"
	VerbExampleUpdated      NotificationVerb = "example_updated"
	VerbStudentCreated      NotificationVerb = "student_created"
	VerbStudentUpdated      NotificationVerb = "student_updated"
	VerbEpisodeCreated      NotificationVerb = "episode_created"
	VerbEpisodeUpdated      NotificationVerb = "episode_updated"
	VerbTipRated            NotificationVerb = "tip_rated"
	VerbExampleRated        NotificationVerb = "example_rated"
	VerbTipAssigned         NotificationVerb = "tip_assigned"
	VerbExampleAssigned     NotificationVerb = "example_assigned"
	VerbStudentAssigned     NotificationVerb = "student_assigned"
	VerbTipMarkedForEditing NotificationVerb = "tip_marked_for_editing"
	VerbTipLinked           NotificationVerb = "tip_linked"
	VerbTipUnlinked         NotificationVerb = "tip_unlinked"
	VerbExampleTipLinked    NotificationVerb = "example_tip_linked"
	VerbExampleTipUnlinked  NotificationVerb = "example_tip_unlinked"
	VerbTipReviewReminder   NotificationVerb = "tip_review_reminder"
)

type Notification struct {
	ID           string            `json:"id" db:"id"`
	ActorID      *string           `json:"actor_id,omitempty" db:"actor_id"`
	RecipientID  string            `json:"recipient_id" db:"recipient_id"`
	Verb         NotificationVerb  `json:"verb" db:"verb"`
	Description  string            `json:"description" db:"description"`
	ActionObject *EntityRef        `json:"action_object,omitempty"`
	Target       *EntityRef        `json:"target,omitempty"`
	Level        NotificationLevel `json:"level" db:"level"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	ReadAt       *time.Time        `json:"read_at,omitempty" db:"read_at"`
}

func (n Notification) Unread() bool {
	return n.ReadAt == nil
}
