package repository

import (
	"context"
	"database/sql"

	"github.com/stanstork/tipboard-api/internal/models"
)

type ReviewRepository interface {
	// PendingReviewCounts counts, per user, the tips read but not yet rated.
	// Users with nothing pending are omitted.
	PendingReviewCounts(ctx context.Context) ([]models.PendingReview, error)
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) PendingReviewCounts(ctx context.Context) ([]models.PendingReview, error) {
	const query = `
		SELECT tr.user_id, COUNT(DISTINCT tr.tip_id)
		FROM tipboard.tip_reads tr
		JOIN tipboard.users u ON u.id = tr.user_id AND u.is_active AND u.deleted_at IS NULL
		LEFT JOIN tipboard.tip_ratings rt ON rt.tip_id = tr.tip_id AND rt.rated_by = tr.user_id
		WHERE rt.id IS NULL
		GROUP BY tr.user_id
		HAVING COUNT(DISTINCT tr.tip_id) > 0
		ORDER BY tr.user_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := []models.PendingReview{}
	for rows.Next() {
		var p models.PendingReview
		if err := rows.Scan(&p.UserID, &p.Count); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pending, nil
}
