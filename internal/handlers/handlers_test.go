package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/activity"
	"github.com/stanstork/tipboard-api/internal/authz"
	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stanstork/tipboard-api/internal/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

func asUser(r *http.Request, userID string, roles ...models.UserRole) *http.Request {
	return r.WithContext(authz.WithIdentity(r.Context(), "", userID, roles))
}

func serve(t *testing.T, route string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	router := mux.NewRouter()
	router.HandleFunc(route, handler)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type fakeNotifications struct {
	notification.Service
	listed    string
	limit     int
	unread    int
	markErr   error
	marked    string
	listedErr error
}

func (f *fakeNotifications) ListRecent(_ context.Context, recipientID string, limit int) ([]models.Notification, error) {
	f.listed, f.limit = recipientID, limit
	return []models.Notification{{ID: "n-1", RecipientID: recipientID}}, f.listedErr
}

func (f *fakeNotifications) UnreadCount(context.Context, string) (int, error) {
	return f.unread, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, recipientID, notificationID string) (models.Notification, error) {
	if f.markErr != nil {
		return models.Notification{}, f.markErr
	}
	f.marked = notificationID
	return models.Notification{ID: notificationID, RecipientID: recipientID, ReadAt: &now}, nil
}

func TestNotificationListUsesCallerAndClampsLimit(t *testing.T) {
	svc := &fakeNotifications{}
	h := NewNotificationHandler(svc, zerolog.Nop())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/notifications?limit=500", nil), "alice")
	rec := serve(t, "/api/notifications", h.List, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", svc.listed)
	assert.Equal(t, maxListLimit, svc.limit)
	assert.Contains(t, rec.Body.String(), `"n-1"`)
}

func TestNotificationListRequiresIdentity(t *testing.T) {
	h := NewNotificationHandler(&fakeNotifications{}, zerolog.Nop())
	rec := serve(t, "/api/notifications", h.List, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotificationUnreadCount(t *testing.T) {
	h := NewNotificationHandler(&fakeNotifications{unread: 3}, zerolog.Nop())
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/notifications/unread-count", nil), "alice")
	rec := serve(t, "/api/notifications/unread-count", h.UnreadCount, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread":3}`, rec.Body.String())
}

func TestNotificationMarkRead(t *testing.T) {
	svc := &fakeNotifications{}
	h := NewNotificationHandler(svc, zerolog.Nop())
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/notifications/n-7/read", nil), "alice")
	rec := serve(t, "/api/notifications/{notificationID}/read", h.MarkRead, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "n-7", svc.marked)

	svc.markErr = sql.ErrNoRows
	rec = serve(t, "/api/notifications/{notificationID}/read", h.MarkRead, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationListLimitFallsBack(t *testing.T) {
	for raw, want := range map[string]int{"": defaultListLimit, "abc": defaultListLimit, "-3": defaultListLimit, "40": 40} {
		svc := &fakeNotifications{}
		h := NewNotificationHandler(svc, zerolog.Nop())
		req := asUser(httptest.NewRequest(http.MethodGet, "/api/notifications?limit="+raw, nil), "alice")
		rec := serve(t, "/api/notifications", h.List, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, svc.limit, "limit=%q", raw)
	}
}

func TestNotificationMarkReadFailure(t *testing.T) {
	h := NewNotificationHandler(&fakeNotifications{markErr: errors.New("db down")}, zerolog.Nop())
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/notifications/n-7/read", nil), "alice")
	rec := serve(t, "/api/notifications/{notificationID}/read", h.MarkRead, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(t, "/api/notifications/{notificationID}/read", h.MarkRead,
		httptest.NewRequest(http.MethodPost, "/api/notifications/n-7/read", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeActivity struct {
	last     *time.Time
	lastAll  map[string]time.Time
	feed     activity.Feed
	feeds    activity.UsersFeed
	gotRange activity.Range
	gotUsers []string
	err      error
}

func (f *fakeActivity) LastActivity(context.Context, string) (*time.Time, error) {
	return f.last, f.err
}

func (f *fakeActivity) LastActivities(context.Context) (map[string]time.Time, error) {
	return f.lastAll, f.err
}

func (f *fakeActivity) ActivitiesForUser(_ context.Context, _ string, r activity.Range) (activity.Feed, error) {
	f.gotRange = r
	return f.feed, f.err
}

func (f *fakeActivity) ActivitiesForUsers(_ context.Context, userIDs []string, r activity.Range) (activity.UsersFeed, error) {
	f.gotUsers, f.gotRange = userIDs, r
	return f.feeds, f.err
}

func (f *fakeActivity) Refresh(context.Context, string) (*time.Time, error) { return f.last, f.err }

func TestUserFeedParsesRange(t *testing.T) {
	reader := &fakeActivity{feed: activity.Feed{models.EntityKindTip: {{EntityID: 7, Timestamp: now}}}}
	h := NewActivityHandler(reader, zerolog.Nop())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/activity/users/alice?start=2026-04-01&end=2026-04-02T18:00:00Z", nil), "alice")
	rec := serve(t, "/api/activity/users/{userID}", h.UserFeed, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tip":[{"7":"2026-04-02T12:00:00Z"}]}`, rec.Body.String())
	require.NotNil(t, reader.gotRange.Start)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *reader.gotRange.Start)
	assert.Equal(t, 18, reader.gotRange.End.Hour())
}

func TestUserFeedRejectsBadInput(t *testing.T) {
	h := NewActivityHandler(&fakeActivity{}, zerolog.Nop())

	cases := map[string]string{
		"bad date":     "/api/activity/users/alice?start=yesterday",
		"inverted":     "/api/activity/users/alice?start=2026-04-02&end=2026-04-01",
		"empty window": "/api/activity/users/alice?start=2026-04-02&end=2026-04-02",
	}
	for name, url := range cases {
		t.Run(name, func(t *testing.T) {
			req := asUser(httptest.NewRequest(http.MethodGet, url, nil), "alice")
			rec := serve(t, "/api/activity/users/{userID}", h.UserFeed, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUserFeedEnforcesSelfOrPrivileged(t *testing.T) {
	h := NewActivityHandler(&fakeActivity{feed: activity.Feed{}}, zerolog.Nop())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/activity/users/alice", nil), "bob", models.RoleTeacher)
	rec := serve(t, "/api/activity/users/{userID}", h.UserFeed, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/activity/users/alice", nil), "max", models.RoleManager)
	rec = serve(t, "/api/activity/users/{userID}", h.UserFeed, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserFeedMalformedDataIsServerError(t *testing.T) {
	h := NewActivityHandler(&fakeActivity{err: activity.ErrMalformedObjectID}, zerolog.Nop())
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/activity/users/alice", nil), "alice")
	rec := serve(t, "/api/activity/users/{userID}", h.UserFeed, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUsersFeedCollectsUserIDs(t *testing.T) {
	reader := &fakeActivity{feeds: activity.UsersFeed{"alice": {}, "bob": {}, "carol": {}}}
	h := NewActivityHandler(reader, zerolog.Nop())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/activity?user_id=alice,bob&user_id=carol", nil), "max", models.RoleManager)
	rec := serve(t, "/api/activity", h.UsersFeed, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alice", "bob", "carol"}, reader.gotUsers)

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/activity", nil), "max", models.RoleManager)
	rec = serve(t, "/api/activity", h.UsersFeed, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLastActivityEndpoints(t *testing.T) {
	reader := &fakeActivity{last: &now, lastAll: map[string]time.Time{"alice": now}}
	h := NewActivityHandler(reader, zerolog.Nop())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/activity/last", nil), "alice")
	rec := serve(t, "/api/activity/last", h.MyLastActivity, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"alice","last_activity":"2026-04-02T12:00:00Z"}`, rec.Body.String())

	req = asUser(httptest.NewRequest(http.MethodPost, "/api/activity/users/alice/refresh", nil), "alice")
	rec = serve(t, "/api/activity/users/{userID}/refresh", h.Refresh, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/activity/last-all", nil), "max", models.RoleManager)
	rec = serve(t, "/api/activity/last-all", h.LastActivities, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"alice":"2026-04-02T12:00:00Z"}`, rec.Body.String())
}

type fakeEmitter struct {
	events []notification.Event
	queued int
	err    error
}

func (f *fakeEmitter) Emit(_ context.Context, evt notification.Event) (int, error) {
	f.events = append(f.events, evt)
	return f.queued, f.err
}

type fakeInvalidator struct {
	calls int
	err   error
}

func (f *fakeInvalidator) InvalidatePrivileged(context.Context) error {
	f.calls++
	return f.err
}

func TestIngestDecodesEvent(t *testing.T) {
	emitter := &fakeEmitter{queued: 2}
	h := NewEventHandler(emitter, &fakeInvalidator{}, zerolog.Nop())

	body := `{
		"kind": "tip",
		"transition": "marked_for_editing",
		"entity": {"id": 7, "title": "Calm corner", "marked_for_editing": true},
		"actor": {"id": "bob", "first_name": "Bob"},
		"was_marked": false
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/internal/events", strings.NewReader(body))
	rec := serve(t, "/api/internal/events", h.Ingest, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"queued":2}`, rec.Body.String())
	require.Len(t, emitter.events, 1)

	evt := emitter.events[0]
	assert.Equal(t, notification.TransitionMarkedForEditing, evt.Transition)
	tip, ok := evt.Entity.(models.Tip)
	require.True(t, ok)
	assert.Equal(t, int64(7), tip.ID)
	assert.True(t, tip.MarkedForEditing)
	require.NotNil(t, evt.Actor)
	assert.Equal(t, "bob", evt.Actor.ID)
}

func TestIngestRejectsBadPayloads(t *testing.T) {
	cases := map[string]struct {
		body string
		err  error
	}{
		"not json":       {body: `{`},
		"missing entity": {body: `{"kind":"tip","transition":"created"}`},
		"unknown kind":   {body: `{"kind":"comment","transition":"created","entity":{}}`},
		"bad transition": {body: `{"kind":"tip","transition":"deleted","entity":{"id":1}}`, err: notification.ErrUnsupportedTransition},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewEventHandler(&fakeEmitter{err: tc.err}, &fakeInvalidator{}, zerolog.Nop())
			req := httptest.NewRequest(http.MethodPost, "/api/internal/events", strings.NewReader(tc.body))
			rec := serve(t, "/api/internal/events", h.Ingest, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestIngestRejectsUnknownKindBeforeEmitting(t *testing.T) {
	emitter := &fakeEmitter{}
	h := NewEventHandler(emitter, &fakeInvalidator{}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/api/internal/events",
		strings.NewReader(`{"kind":" comment ","transition":"created","entity":{"id":1}}`))
	rec := serve(t, "/api/internal/events", h.Ingest, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown entity kind")
	assert.Empty(t, emitter.events)
}

func TestIngestEnqueueFailure(t *testing.T) {
	h := NewEventHandler(&fakeEmitter{err: errors.New("temporal down")}, &fakeInvalidator{}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/api/internal/events",
		strings.NewReader(`{"kind":"tip","transition":"created","entity":{"id":1}}`))
	rec := serve(t, "/api/internal/events", h.Ingest, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInvalidateRoles(t *testing.T) {
	inv := &fakeInvalidator{}
	h := NewEventHandler(&fakeEmitter{}, inv, zerolog.Nop())

	rec := serve(t, "/api/internal/roles/invalidate", h.InvalidateRoles,
		httptest.NewRequest(http.MethodPost, "/api/internal/roles/invalidate", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, inv.calls)
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/api/notifications/unread-count", nil)
	ctx := zerolog.New(&logs).WithContext(req.Context())
	req = req.WithContext(authz.WithIdentity(ctx, "org-1", "alice", nil))

	rec := httptest.NewRecorder()
	writeJSON(brokenWriter{rec}, req, http.StatusOK, map[string]int{"unread": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "failed to write response")
	assert.Contains(t, logs.String(), `"organization_id":"org-1"`)
	assert.Contains(t, logs.String(), `"user_id":"alice"`)
	assert.Contains(t, logs.String(), "connection reset")
}

func TestWriteJSONWithoutIdentity(t *testing.T) {
	var logs bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req = req.WithContext(zerolog.New(&logs).WithContext(req.Context()))

	writeJSON(httptest.NewRecorder(), req, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	assert.Contains(t, logs.String(), "failed to write response")
	assert.NotContains(t, logs.String(), "organization_id")
}
