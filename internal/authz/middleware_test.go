package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromRequest(r)
		oid, _ := OrganizationIDFromRequest(r)
		w.Header().Set("X-User", uid)
		w.Header().Set("X-Org", oid)
		if IsPrivileged(r) {
			w.Header().Set("X-Privileged", "yes")
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	auth := NewAuthenticator("secret")
	org := "org-1"
	token, err := auth.IssueToken(models.User{ID: "alice", OrganizationID: &org, Roles: []models.UserRole{models.RoleManager}}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	auth.Middleware(identityEcho()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice", rec.Header().Get("X-User"))
	assert.Equal(t, "org-1", rec.Header().Get("X-Org"))
	assert.Equal(t, "yes", rec.Header().Get("X-Privileged"))
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	auth := NewAuthenticator("secret")
	token, err := auth.IssueToken(models.User{ID: "bob"}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/ws?access_token="+token, nil)
	rec := httptest.NewRecorder()
	auth.Middleware(identityEcho()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "bob", rec.Header().Get("X-User"))
	assert.Empty(t, rec.Header().Get("X-Privileged"))
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	auth := NewAuthenticator("secret")
	expired, err := auth.IssueToken(models.User{ID: "bob"}, -time.Hour)
	require.NoError(t, err)
	foreign, err := NewAuthenticator("other").IssueToken(models.User{ID: "bob"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"missing":    "",
		"malformed":  "Token abc",
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + foreign,
		"no subject": "Bearer " + noSubject,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			auth.Middleware(identityEcho()).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(models.RoleAdmin)(identityEcho())

	req := httptest.NewRequest(http.MethodPost, "/api/internal/events", nil)
	req = req.WithContext(WithIdentity(req.Context(), "", "max", []models.UserRole{models.RoleManager}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(WithIdentity(req.Context(), "", "ada", []models.UserRole{models.RoleAdmin}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCanViewUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), "", "bob", []models.UserRole{models.RoleTeacher}))
	assert.True(t, CanViewUser(req, "bob"))
	assert.False(t, CanViewUser(req, "alice"))

	req = req.WithContext(WithIdentity(req.Context(), "", "max", []models.UserRole{models.RoleManager}))
	assert.True(t, CanViewUser(req, "alice"))
}
