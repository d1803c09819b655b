package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/cache"
	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stanstork/tipboard-api/internal/repository"
)

const privilegedUsersKey = "privileged_users"

// Resolver answers who should hear about an event. The privileged-user set is
// cached without expiry; whoever changes role assignments calls
// InvalidatePrivileged.
type Resolver struct {
	users  repository.UserRepository
	owners repository.OwnershipRepository
	cache  cache.Store
	logger zerolog.Logger
}

func NewResolver(users repository.UserRepository, owners repository.OwnershipRepository, store cache.Store, logger zerolog.Logger) *Resolver {
	return &Resolver{
		users:  users,
		owners: owners,
		cache:  store,
		logger: logger.With().Str("component", "recipient_resolver").Logger(),
	}
}

func (r *Resolver) PrivilegedUsers(ctx context.Context) ([]models.User, error) {
	var cached []models.User
	found, err := r.cache.Get(ctx, privilegedUsersKey, &cached)
	if err != nil {
		r.logger.Warn().Err(err).Msg("privileged users cache unavailable, reading through")
	}
	// An empty cached set is treated as a miss.
	if found && len(cached) > 0 {
		return cached, nil
	}

	users, err := r.users.ListUsersByRoles(ctx, models.PrivilegedRoles)
	if err != nil {
		return nil, fmt.Errorf("list privileged users: %w", err)
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := r.cache.Set(ctx, privilegedUsersKey, users, 0); err != nil {
		r.logger.Warn().Err(err).Msg("failed to cache privileged users")
	}
	return users, nil
}

func (r *Resolver) InvalidatePrivileged(ctx context.Context) error {
	return r.cache.Delete(ctx, privilegedUsersKey)
}

func (r *Resolver) OwnerOf(ctx context.Context, kind models.EntityKind, id int64) (*models.User, error) {
	return r.owners.OwnerOf(ctx, kind, id)
}

// UserByID returns the stored user, or nil when no such user exists.
func (r *Resolver) UserByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := r.users.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return &user, nil
}
