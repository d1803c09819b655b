package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stanstork/tipboard-api/internal/models"
)

var ErrUnknownEntityKind = errors.New("unknown entity kind")

// ownedTables maps entity kinds with an actor-of-record to their tables.
var ownedTables = map[models.EntityKind]string{
	models.EntityKindTip:     "tipboard.tips",
	models.EntityKindExample: "tipboard.examples",
	models.EntityKindStudent: "tipboard.students",
	models.EntityKindEpisode: "tipboard.episodes",
}

type OwnershipRepository interface {
	// OwnerOf returns the user recorded as creator of the entity, or nil when
	// the entity does not exist or has no recorded creator.
	OwnerOf(ctx context.Context, kind models.EntityKind, id int64) (*models.User, error)
}

type ownershipRepository struct {
	db *sql.DB
}

func NewOwnershipRepository(db *sql.DB) OwnershipRepository {
	return &ownershipRepository{db: db}
}

func (r *ownershipRepository) OwnerOf(ctx context.Context, kind models.EntityKind, id int64) (*models.User, error) {
	table, ok := ownedTables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityKind, kind)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s e
		JOIN tipboard.users u ON u.id = e.created_by
		WHERE e.id = $1`, userColumns, table)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("owner of %s %d: %w", kind, id, err)
	}
	return &user, nil
}
