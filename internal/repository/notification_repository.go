package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/stanstork/tipboard-api/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	ListRecent(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error)
	LatestForRecipient(ctx context.Context, recipientID string) (*time.Time, error)
	LatestPerRecipient(ctx context.Context) (map[string]time.Time, error)
	FeedRows(ctx context.Context, query FeedQuery) ([]FeedRow, error)
}

type notificationRepository struct {
	db *sql.DB
}

type CreateNotificationParams struct {
	ActorID      string
	RecipientID  string
	Verb         models.NotificationVerb
	Description  string
	ActionObject *models.EntityRef
	Target       *models.EntityRef
	Level        models.NotificationLevel
	CreatedAt    time.Time
}

// FeedQuery selects the latest event per (recipient, kind, object). Start is
// inclusive and End exclusive; nil bounds are open.
type FeedQuery struct {
	RecipientIDs []string
	Kinds        []models.EntityKind
	Level        models.NotificationLevel
	Start        *time.Time
	End          *time.Time
}

// FeedRow is one deduplicated feed entry. ObjectID is returned as stored.
type FeedRow struct {
	RecipientID string
	Kind        models.EntityKind
	ObjectID    string
	LatestAt    time.Time
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, actor_id, recipient_id, verb, description, action_object_kind, action_object_id,
		target_kind, target_id, level, created_at, read_at`

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error) {
	query := `
		INSERT INTO tipboard.notifications (actor_id, recipient_id, verb, description, action_object_kind, action_object_id,
			target_kind, target_id, level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + notificationColumns

	recipient := strings.TrimSpace(params.RecipientID)
	if recipient == "" {
		return models.Notification{}, fmt.Errorf("recipient is required")
	}

	var actorID interface{}
	if id := strings.TrimSpace(params.ActorID); id != "" {
		actorID = id
	}
	level := params.Level
	if level == "" {
		level = models.NotificationLevelSuccess
	}
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	actionKind, actionID := refColumns(params.ActionObject)
	targetKind, targetID := refColumns(params.Target)

	row := r.db.QueryRowContext(ctx, query,
		actorID, recipient, params.Verb, params.Description,
		actionKind, actionID, targetKind, targetID,
		level, createdAt,
	)
	return scanNotification(row)
}

func (r *notificationRepository) ListRecent(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM tipboard.notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(recipientID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM tipboard.notifications
		WHERE recipient_id = $1 AND read_at IS NULL
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(recipientID)).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error) {
	query := `
		UPDATE tipboard.notifications
		SET read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND recipient_id = $2
		RETURNING ` + notificationColumns
	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(notificationID), strings.TrimSpace(recipientID))
	return scanNotification(row)
}

func (r *notificationRepository) LatestForRecipient(ctx context.Context, recipientID string) (*time.Time, error) {
	const query = `
		SELECT MAX(created_at)
		FROM tipboard.notifications
		WHERE recipient_id = $1
	`
	var latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(recipientID)).Scan(&latest); err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time
	return &t, nil
}

func (r *notificationRepository) LatestPerRecipient(ctx context.Context) (map[string]time.Time, error) {
	const query = `
		SELECT recipient_id, MAX(created_at)
		FROM tipboard.notifications
		GROUP BY recipient_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[string]time.Time)
	for rows.Next() {
		var (
			recipientID string
			at          time.Time
		)
		if err := rows.Scan(&recipientID, &at); err != nil {
			return nil, err
		}
		latest[recipientID] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return latest, nil
}

func (r *notificationRepository) FeedRows(ctx context.Context, q FeedQuery) ([]FeedRow, error) {
	const query = `
		SELECT recipient_id, action_object_kind, action_object_id, MAX(created_at) AS latest_at
		FROM tipboard.notifications
		WHERE recipient_id = ANY($1)
		  AND level = $2
		  AND action_object_kind = ANY($3)
		  AND action_object_id IS NOT NULL
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at < $5)
		GROUP BY recipient_id, action_object_kind, action_object_id
		ORDER BY recipient_id, latest_at DESC
	`
	if len(q.RecipientIDs) == 0 {
		return []FeedRow{}, nil
	}
	level := q.Level
	if level == "" {
		level = models.NotificationLevelSuccess
	}
	kinds := make([]string, 0, len(q.Kinds))
	for _, k := range q.Kinds {
		kinds = append(kinds, string(k))
	}

	rows, err := r.db.QueryContext(ctx, query,
		pq.Array(q.RecipientIDs), level, pq.Array(kinds), nullTime(q.Start), nullTime(q.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []FeedRow{}
	for rows.Next() {
		var row FeedRow
		if err := rows.Scan(&row.RecipientID, &row.Kind, &row.ObjectID, &row.LatestAt); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func refColumns(ref *models.EntityRef) (interface{}, interface{}) {
	if ref == nil || ref.Kind == "" || strings.TrimSpace(ref.ID) == "" {
		return nil, nil
	}
	return string(ref.Kind), strings.TrimSpace(ref.ID)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	var (
		notif      models.Notification
		actorID    sql.NullString
		actionKind sql.NullString
		actionID   sql.NullString
		targetKind sql.NullString
		targetID   sql.NullString
		readAt     sql.NullTime
	)

	if err := scanner.Scan(
		&notif.ID,
		&actorID,
		&notif.RecipientID,
		&notif.Verb,
		&notif.Description,
		&actionKind,
		&actionID,
		&targetKind,
		&targetID,
		&notif.Level,
		&notif.CreatedAt,
		&readAt,
	); err != nil {
		return models.Notification{}, err
	}

	if actorID.Valid {
		val := actorID.String
		notif.ActorID = &val
	}
	if actionKind.Valid && actionID.Valid {
		notif.ActionObject = &models.EntityRef{Kind: models.EntityKind(actionKind.String), ID: actionID.String}
	}
	if targetKind.Valid && targetID.Valid {
		notif.Target = &models.EntityRef{Kind: models.EntityKind(targetKind.String), ID: targetID.String}
	}
	if readAt.Valid {
		t := readAt.Time
		notif.ReadAt = &t
	}

	return notif, nil
}
