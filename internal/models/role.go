package models

import "strings"

type UserRole string

const (
	RoleViewer  UserRole = "viewer"
	RoleTeacher UserRole = "teacher"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

var roleRank = map[UserRole]int{
	RoleViewer:  1,
	RoleTeacher: 2,
	RoleManager: 3,
	RoleAdmin:   4,
}

// PrivilegedRoles are the roles whose holders receive broadcast notifications.
var PrivilegedRoles = []UserRole{RoleManager, RoleAdmin}

func IsValidRole(role UserRole) bool {
	_, ok := roleRank[role]
	return ok
}

func IsValidRoleList(roles []UserRole) bool {
	if len(roles) == 0 {
		return false
	}
	for _, role := range roles {
		if !IsValidRole(role) {
			return false
		}
	}
	return true
}

// NormalizeRoles lowercases, trims and deduplicates roles, preserving order.
func NormalizeRoles(roles []UserRole) []UserRole {
	seen := make(map[UserRole]struct{}, len(roles))
	normalized := make([]UserRole, 0, len(roles))
	for _, role := range roles {
		r := UserRole(strings.ToLower(strings.TrimSpace(string(role))))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		normalized = append(normalized, r)
	}
	return normalized
}

func EnsureDefaultRole(roles []UserRole) []UserRole {
	if len(roles) == 0 {
		return []UserRole{RoleViewer}
	}
	return roles
}

// HasAtLeast reports whether any of the roles ranks at or above required.
func HasAtLeast(roles []UserRole, required UserRole) bool {
	need, ok := roleRank[required]
	if !ok {
		return false
	}
	for _, role := range roles {
		if roleRank[role] >= need {
			return true
		}
	}
	return false
}
