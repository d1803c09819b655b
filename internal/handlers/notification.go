package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/authz"
	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stanstork/tipboard-api/internal/notification"
)

const (
	defaultListLimit = 25
	maxListLimit     = 100
)

// NotificationHandler serves the caller's own inbox. Every route is scoped to
// the authenticated user; nobody reads or acknowledges another user's rows.
type NotificationHandler struct {
	service notification.Service
	logger  zerolog.Logger
}

func NewNotificationHandler(service notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("handler", "inbox").Logger(),
	}
}

type inboxPage struct {
	Notifications []models.Notification `json:"notifications"`
}

// List returns the newest notifications first. limit defaults to 25 and is
// capped at maxListLimit; unparseable values fall back to the default.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := inboxOwner(w, r)
	if !ok {
		return
	}

	page, err := h.service.ListRecent(r.Context(), recipientID, listLimit(r))
	if err != nil {
		h.logger.Error().Err(err).Str("recipient_id", recipientID).Msg("inbox listing failed")
		http.Error(w, "Could not load notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, inboxPage{Notifications: page})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := inboxOwner(w, r)
	if !ok {
		return
	}

	unread, err := h.service.UnreadCount(r.Context(), recipientID)
	if err != nil {
		h.logger.Error().Err(err).Str("recipient_id", recipientID).Msg("unread count failed")
		http.Error(w, "Could not count unread notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"unread": unread})
}

// MarkRead acknowledges one notification. A notification addressed to someone
// else is reported as missing.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := inboxOwner(w, r)
	if !ok {
		return
	}
	notificationID := strings.TrimSpace(mux.Vars(r)["notificationID"])
	if notificationID == "" {
		http.Error(w, "notification id missing from path", http.StatusBadRequest)
		return
	}

	acked, err := h.service.MarkRead(r.Context(), recipientID, notificationID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		http.Error(w, "No such notification in your inbox", http.StatusNotFound)
	case err != nil:
		h.logger.Error().
			Err(err).
			Str("recipient_id", recipientID).
			Str("notification_id", notificationID).
			Msg("acknowledge failed")
		http.Error(w, "Could not acknowledge notification", http.StatusInternalServerError)
	default:
		writeJSON(w, r, http.StatusOK, acked)
	}
}

func inboxOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	recipientID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Unauthenticated request", http.StatusUnauthorized)
	}
	return recipientID, ok
}

func listLimit(r *http.Request) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	switch {
	case err != nil || n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	}
	return n
}
