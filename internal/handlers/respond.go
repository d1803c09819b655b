package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/authz"
)

// writeJSON sends payload with status. The header is already out when
// encoding fails, so the failure only reaches the request logger.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		event := zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path)
		if userID, ok := authz.UserIDFromRequest(r); ok {
			event = event.Str("user_id", userID)
		}
		if orgID, ok := authz.OrganizationIDFromRequest(r); ok {
			event = event.Str("organization_id", orgID)
		}
		event.Msg("failed to write response")
	}
}

// parseDate accepts RFC3339 or YYYY-MM-DD (midnight UTC). Blank input is an
// open bound.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: use RFC3339 or YYYY-MM-DD", raw)
	}
	return &t, nil
}
