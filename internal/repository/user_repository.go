package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/stanstork/tipboard-api/internal/models"
)

type UserRepository interface {
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	ListUsersByRoles(ctx context.Context, roles []models.UserRole) ([]models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `u.id, u.organization_id, u.email, u.first_name, u.last_name, u.is_active, u.roles`

func (u *userRepository) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM tipboard.users u
		WHERE u.id = $1 AND u.deleted_at IS NULL`

	return scanUser(u.db.QueryRowContext(ctx, query, userID))
}

// ListUsersByRoles returns active users holding any of the given roles.
func (u *userRepository) ListUsersByRoles(ctx context.Context, roles []models.UserRole) ([]models.User, error) {
	if len(roles) == 0 {
		return nil, errors.New("roles cannot be empty")
	}

	const query = `
		SELECT ` + userColumns + `
		FROM tipboard.users u
		WHERE u.roles && $1 AND u.is_active AND u.deleted_at IS NULL
		ORDER BY u.email`

	rows, err := u.db.QueryContext(ctx, query, pq.Array(toStringSlice(roles)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (models.User, error) {
	var (
		user  models.User
		orgID sql.NullString
		roles pq.StringArray
	)
	if err := scanner.Scan(
		&user.ID,
		&orgID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.IsActive,
		&roles,
	); err != nil {
		return models.User{}, err
	}
	if orgID.Valid {
		val := orgID.String
		user.OrganizationID = &val
	}
	user.Roles = models.EnsureDefaultRole(toUserRoleSlice(roles))
	if !models.IsValidRoleList(user.Roles) {
		return models.User{}, errors.New("user has invalid roles")
	}
	return user, nil
}

func toStringSlice(roles []models.UserRole) []string {
	result := make([]string, 0, len(roles))
	for _, role := range roles {
		result = append(result, string(role))
	}
	return result
}

func toUserRoleSlice(roles []string) []models.UserRole {
	result := make([]models.UserRole, 0, len(roles))
	for _, role := range roles {
		result = append(result, models.UserRole(role))
	}
	return models.NormalizeRoles(result)
}
