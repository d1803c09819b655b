package authz

import (
	"context"
	"net/http"

	"github.com/stanstork/tipboard-api/internal/models"
)

type contextKey string

const (
	organizationIDKey contextKey = "organization_id"
	userIDKey         contextKey = "user_id"
	userRolesKey      contextKey = "user_roles"
)

// WithIdentity stores organization, user, and role information on the context.
func WithIdentity(ctx context.Context, organizationID, userID string, roles []models.UserRole) context.Context {
	if organizationID != "" {
		ctx = context.WithValue(ctx, organizationIDKey, organizationID)
	}
	if userID != "" {
		ctx = context.WithValue(ctx, userIDKey, userID)
	}
	normalized := models.EnsureDefaultRole(models.NormalizeRoles(roles))
	ctx = context.WithValue(ctx, userRolesKey, normalized)
	return ctx
}

func OrganizationIDFromRequest(r *http.Request) (string, bool) {
	oid, ok := r.Context().Value(organizationIDKey).(string)
	if !ok || oid == "" {
		return "", false
	}
	return oid, true
}

func UserIDFromRequest(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value(userIDKey).(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

func RolesFromRequest(r *http.Request) ([]models.UserRole, bool) {
	roles, ok := r.Context().Value(userRolesKey).([]models.UserRole)
	if !ok || !models.IsValidRoleList(roles) {
		return nil, false
	}
	return roles, true
}

// IsPrivileged reports whether the caller holds a manager-equivalent role.
func IsPrivileged(r *http.Request) bool {
	roles, ok := RolesFromRequest(r)
	return ok && models.HasAtLeast(roles, models.RoleManager)
}

// CanViewUser allows privileged callers to read anyone and everyone else to
// read only themselves.
func CanViewUser(r *http.Request, userID string) bool {
	if IsPrivileged(r) {
		return true
	}
	caller, ok := UserIDFromRequest(r)
	return ok && caller == userID
}
