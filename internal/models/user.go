package models

import "strings"

type User struct {
	ID             string     `json:"id"`
	OrganizationID *string    `json:"organization_id,omitempty"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	IsActive       bool       `json:"is_active"`
	Roles          []UserRole `json:"roles,omitempty"`
}

// FullName is the display name used in notification descriptions. It falls
// back to the email address when no name is recorded.
func (u User) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	return strings.TrimSpace(u.Email)
}

// SameUser reports whether both references are set and point at the same user.
func SameUser(a, b *User) bool {
	return a != nil && b != nil && a.ID != "" && a.ID == b.ID
}
