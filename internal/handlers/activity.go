package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/activity"
	"github.com/stanstork/tipboard-api/internal/authz"
)

type ActivityReader interface {
	LastActivity(ctx context.Context, userID string) (*time.Time, error)
	LastActivities(ctx context.Context) (map[string]time.Time, error)
	ActivitiesForUser(ctx context.Context, userID string, r activity.Range) (activity.Feed, error)
	ActivitiesForUsers(ctx context.Context, userIDs []string, r activity.Range) (activity.UsersFeed, error)
	Refresh(ctx context.Context, userID string) (*time.Time, error)
}

type ActivityHandler struct {
	activities ActivityReader
	logger     zerolog.Logger
}

func NewActivityHandler(activities ActivityReader, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activities: activities,
		logger:     logger.With().Str("handler", "activity").Logger(),
	}
}

type lastActivityResponse struct {
	UserID       string     `json:"user_id"`
	LastActivity *time.Time `json:"last_activity"`
}

// MyLastActivity returns the caller's most recent event.
func (h *ActivityHandler) MyLastActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}
	h.writeLastActivity(w, r, userID)
}

func (h *ActivityHandler) UserLastActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.targetUser(w, r)
	if !ok {
		return
	}
	h.writeLastActivity(w, r, userID)
}

func (h *ActivityHandler) writeLastActivity(w http.ResponseWriter, r *http.Request, userID string) {
	last, err := h.activities.LastActivity(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load last activity")
		http.Error(w, "Failed to load last activity", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, lastActivityResponse{UserID: userID, LastActivity: last})
}

func (h *ActivityHandler) LastActivities(w http.ResponseWriter, r *http.Request) {
	all, err := h.activities.LastActivities(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load last activities")
		http.Error(w, "Failed to load last activities", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, all)
}

func (h *ActivityHandler) UserFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.targetUser(w, r)
	if !ok {
		return
	}
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}

	feed, err := h.activities.ActivitiesForUser(r.Context(), userID, rng)
	if err != nil {
		h.writeFeedError(w, err, userID)
		return
	}
	writeJSON(w, r, http.StatusOK, feed)
}

func (h *ActivityHandler) UsersFeed(w http.ResponseWriter, r *http.Request) {
	var userIDs []string
	for _, raw := range r.URL.Query()["user_id"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				userIDs = append(userIDs, id)
			}
		}
	}
	if len(userIDs) == 0 {
		http.Error(w, "At least one user_id is required", http.StatusBadRequest)
		return
	}
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}

	feeds, err := h.activities.ActivitiesForUsers(r.Context(), userIDs, rng)
	if err != nil {
		h.writeFeedError(w, err, strings.Join(userIDs, ","))
		return
	}
	writeJSON(w, r, http.StatusOK, feeds)
}

func (h *ActivityHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.targetUser(w, r)
	if !ok {
		return
	}
	last, err := h.activities.Refresh(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to refresh last activity")
		http.Error(w, "Failed to refresh activity", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, lastActivityResponse{UserID: userID, LastActivity: last})
}

// targetUser reads {userID} and checks the caller may see it.
func (h *ActivityHandler) targetUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(mux.Vars(r)["userID"])
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return "", false
	}
	if !authz.CanViewUser(r, userID) {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return "", false
	}
	return userID, true
}

func (h *ActivityHandler) writeFeedError(w http.ResponseWriter, err error, userIDs string) {
	switch {
	case errors.Is(err, activity.ErrInvalidRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error().Err(err).Str("user_ids", userIDs).Msg("failed to build activity feed")
		http.Error(w, "Failed to build activity feed", http.StatusInternalServerError)
	}
}

func parseRange(w http.ResponseWriter, r *http.Request) (activity.Range, bool) {
	q := r.URL.Query()
	start, err := parseDate(q.Get("start"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return activity.Range{}, false
	}
	end, err := parseDate(q.Get("end"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return activity.Range{}, false
	}
	rng := activity.Range{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return activity.Range{}, false
	}
	return rng, true
}
