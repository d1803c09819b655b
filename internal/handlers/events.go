package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stanstork/tipboard-api/internal/notification"
)

type EventEmitter interface {
	Emit(ctx context.Context, evt notification.Event) (int, error)
}

type PrivilegedInvalidator interface {
	InvalidatePrivileged(ctx context.Context) error
}

// EventHandler ingests entity lifecycle events from the content service and
// accepts role-change signals.
type EventHandler struct {
	emitter     EventEmitter
	invalidator PrivilegedInvalidator
	logger      zerolog.Logger
}

func NewEventHandler(emitter EventEmitter, invalidator PrivilegedInvalidator, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		emitter:     emitter,
		invalidator: invalidator,
		logger:      logger.With().Str("handler", "events").Logger(),
	}
}

type eventPayload struct {
	Kind       models.EntityKind           `json:"kind"`
	Transition notification.TransitionKind `json:"transition"`
	Entity     json.RawMessage             `json:"entity"`
	Actor      *models.User                `json:"actor,omitempty"`
	Related    *models.Tip                 `json:"related,omitempty"`
	WasMarked  bool                        `json:"was_marked"`
}

func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var payload eventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	payload.Kind = models.EntityKind(strings.TrimSpace(string(payload.Kind)))
	if !payload.Kind.Valid() {
		http.Error(w, "Unknown entity kind", http.StatusBadRequest)
		return
	}
	if len(payload.Entity) == 0 {
		http.Error(w, "Entity is required", http.StatusBadRequest)
		return
	}

	subject, err := notification.DecodeSubject(payload.Kind, payload.Entity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	queued, err := h.emitter.Emit(r.Context(), notification.Event{
		Transition: payload.Transition,
		Entity:     subject,
		Actor:      payload.Actor,
		Related:    payload.Related,
		WasMarked:  payload.WasMarked,
	})
	if err != nil {
		if errors.Is(err, notification.ErrUnsupportedTransition) || errors.Is(err, notification.ErrUnsupportedKind) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error().
			Err(err).
			Str("entity_kind", string(payload.Kind)).
			Str("transition", string(payload.Transition)).
			Msg("failed to emit notifications")
		http.Error(w, "Failed to queue notifications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusAccepted, map[string]int{"queued": queued})
}

func (h *EventHandler) InvalidateRoles(w http.ResponseWriter, r *http.Request) {
	if err := h.invalidator.InvalidatePrivileged(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to invalidate privileged users")
		http.Error(w, "Failed to invalidate cache", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
