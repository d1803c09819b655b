package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stanstork/tipboard-api/internal/authz"
	"github.com/stanstork/tipboard-api/internal/handlers"
	"github.com/stanstork/tipboard-api/internal/models"
)

type Handlers struct {
	Auth          *authz.Authenticator
	Notifications *handlers.NotificationHandler
	Activity      *handlers.ActivityHandler
	Events        *handlers.EventHandler
	Realtime      http.HandlerFunc
}

// NewRouter sets up the API routes
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.Auth.Middleware)

	api.HandleFunc("/notifications", h.Notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/unread-count", h.Notifications.UnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", h.Notifications.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/ws", h.Realtime).Methods(http.MethodGet)

	api.HandleFunc("/activity/last", h.Activity.MyLastActivity).Methods(http.MethodGet)
	api.Handle("/activity/last-all",
		authz.RequireRoleHandler(models.RoleManager, http.HandlerFunc(h.Activity.LastActivities))).Methods(http.MethodGet)
	api.HandleFunc("/activity/users/{userID}/last", h.Activity.UserLastActivity).Methods(http.MethodGet)
	api.HandleFunc("/activity/users/{userID}/refresh", h.Activity.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/activity/users/{userID}", h.Activity.UserFeed).Methods(http.MethodGet)
	api.Handle("/activity",
		authz.RequireRoleHandler(models.RoleManager, http.HandlerFunc(h.Activity.UsersFeed))).Methods(http.MethodGet)

	internal := api.PathPrefix("/internal").Subrouter()
	internal.Use(authz.RequireRole(models.RoleAdmin))
	internal.HandleFunc("/events", h.Events.Ingest).Methods(http.MethodPost)
	internal.HandleFunc("/roles/invalidate", h.Events.InvalidateRoles).Methods(http.MethodPost)

	return router
}
