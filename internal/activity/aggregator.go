package activity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/cache"
	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stanstork/tipboard-api/internal/repository"
)

const (
	lastActivityKeyPrefix = "last_activity:"
	lastActivitiesKey     = "last_activities"
)

// Aggregator builds activity feeds from the notification log. The two
// whole-dataset reads (LastActivity, LastActivities) are cached; the range
// reads always hit the store.
type Aggregator struct {
	repo   repository.NotificationRepository
	cache  cache.Store
	ttl    time.Duration
	logger zerolog.Logger
}

func NewAggregator(repo repository.NotificationRepository, store cache.Store, ttl time.Duration, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		repo:   repo,
		cache:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "activity_aggregator").Logger(),
	}
}

func lastActivityKey(userID string) string {
	return lastActivityKeyPrefix + userID
}

// LastActivity returns the most recent event addressed to userID, of any
// kind, or nil if there is none.
func (a *Aggregator) LastActivity(ctx context.Context, userID string) (*time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	var cached time.Time
	found, err := a.cache.Get(ctx, lastActivityKey(userID), &cached)
	if err != nil {
		a.logger.Warn().Err(err).Str("user_id", userID).Msg("last activity cache unavailable, recomputing")
	} else if found {
		return &cached, nil
	}
	return a.recomputeLastActivity(ctx, userID)
}

// Refresh recomputes and rewrites the cached last activity for userID.
func (a *Aggregator) Refresh(ctx context.Context, userID string) (*time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return a.recomputeLastActivity(ctx, userID)
}

func (a *Aggregator) recomputeLastActivity(ctx context.Context, userID string) (*time.Time, error) {
	latest, err := a.repo.LatestForRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("latest activity for %s: %w", userID, err)
	}
	if latest == nil {
		// Drop any stale entry.
		if err := a.cache.Delete(ctx, lastActivityKey(userID)); err != nil {
			a.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to clear last activity cache")
		}
		return nil, nil
	}
	ts := latest.UTC()
	if err := a.cache.Set(ctx, lastActivityKey(userID), ts, a.ttl); err != nil {
		a.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to cache last activity")
	}
	return &ts, nil
}

// LastActivities returns one most-recent timestamp per user with at least
// one event. The cached form is {user_id: [timestamp]}.
func (a *Aggregator) LastActivities(ctx context.Context) (map[string]time.Time, error) {
	var cached map[string][]time.Time
	found, err := a.cache.Get(ctx, lastActivitiesKey, &cached)
	if err != nil {
		a.logger.Warn().Err(err).Msg("last activities cache unavailable, recomputing")
	} else if found {
		result := make(map[string]time.Time, len(cached))
		for userID, stamps := range cached {
			if len(stamps) > 0 {
				result[userID] = stamps[0]
			}
		}
		return result, nil
	}

	latest, err := a.repo.LatestPerRecipient(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest activity per user: %w", err)
	}
	result := make(map[string]time.Time, len(latest))
	stored := make(map[string][]time.Time, len(latest))
	for userID, ts := range latest {
		ts = ts.UTC()
		result[userID] = ts
		stored[userID] = []time.Time{ts}
	}
	if err := a.cache.Set(ctx, lastActivitiesKey, stored, a.ttl); err != nil {
		a.logger.Warn().Err(err).Msg("failed to cache last activities")
	}
	return result, nil
}

// ActivitiesForUser returns the user's feed within r. Never cached.
func (a *Aggregator) ActivitiesForUser(ctx context.Context, userID string, r Range) (Feed, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	feeds, err := a.ActivitiesForUsers(ctx, []string{userID}, r)
	if err != nil {
		return nil, err
	}
	return feeds[userID], nil
}

// ActivitiesForUsers builds the feeds of several users with one query. Every
// requested user gets an entry, empty when they have no events in r.
func (a *Aggregator) ActivitiesForUsers(ctx context.Context, userIDs []string, r Range) (UsersFeed, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(userIDs))
	builders := make(map[string]*feedBuilder, len(userIDs))
	for _, id := range userIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := builders[id]; ok {
			continue
		}
		builders[id] = newFeedBuilder()
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return UsersFeed{}, nil
	}

	rows, err := a.repo.FeedRows(ctx, repository.FeedQuery{
		RecipientIDs: ids,
		Kinds:        models.FeedKinds,
		Level:        models.NotificationLevelSuccess,
		Start:        r.Start,
		End:          r.End,
	})
	if err != nil {
		return nil, fmt.Errorf("load activity feed: %w", err)
	}

	for _, row := range rows {
		if !r.Contains(row.LatestAt) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row.ObjectID), 10, 64)
		if err != nil {
			a.logger.Error().
				Str("user_id", row.RecipientID).
				Str("entity_kind", string(row.Kind)).
				Str("object_id", row.ObjectID).
				Msg("notification references a malformed object id")
			return nil, fmt.Errorf("%w: %s %q", ErrMalformedObjectID, row.Kind, row.ObjectID)
		}
		b, ok := builders[row.RecipientID]
		if !ok {
			continue
		}
		b.add(row.Kind, id, row.LatestAt.UTC())
	}

	result := make(UsersFeed, len(builders))
	for userID, b := range builders {
		result[userID] = b.build()
	}
	return result, nil
}
