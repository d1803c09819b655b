package notification

import (
	"strings"

	"github.com/stanstork/tipboard-api/internal/models"
)

// Intent describes a notification that has not been delivered yet. A single
// intent may address several recipients; the dispatcher expands it into one
// stored notification per recipient. Intents cross the worker boundary, so
// they carry ids rather than user records.
type Intent struct {
	SenderID     string                   `json:"sender_id,omitempty"`
	Recipients   []string                 `json:"recipients"`
	Verb         models.NotificationVerb  `json:"verb"`
	Description  string                   `json:"description"`
	ActionObject *models.EntityRef        `json:"action_object,omitempty"`
	Target       *models.EntityRef        `json:"target,omitempty"`
	Level        models.NotificationLevel `json:"level,omitempty"`
}

func ToUser(u models.User) []string {
	return []string{u.ID}
}

func ToUsers(users []models.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func senderOf(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

// normalizeRecipients trims ids, drops blanks and duplicates, and keeps the
// original order.
func normalizeRecipients(recipients []string) []string {
	seen := make(map[string]struct{}, len(recipients))
	cleaned := make([]string, 0, len(recipients))
	for _, r := range recipients {
		id := strings.TrimSpace(r)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	return cleaned
}
