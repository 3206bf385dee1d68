package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vprep/preparator-backend-go/internal/domain/user"
	"github.com/vprep/preparator-backend-go/internal/pkg/database"
)

type userRepositoryImpl struct {
	db *database.DB
}

func NewUserDirectory(db *database.DB) user.Directory {
	return &userRepositoryImpl{db: db}
}

// ListActiveAdmins implements user.Directory.
func (r *userRepositoryImpl) ListActiveAdmins(ctx context.Context) ([]user.Recipient, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, first_name, last_name, email
		FROM users
		WHERE role = 'admin'
		  AND is_active = TRUE
		  AND email_verified = TRUE
		  AND email <> ''
		ORDER BY email
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var out []user.Recipient
	for rows.Next() {
		var first, last string
		var rc user.Recipient
		if err := rows.Scan(&rc.UserID, &first, &last, &rc.Email); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		rc.Name = user.User{FirstName: first, LastName: last}.FullName()
		out = append(out, rc)
	}
	return out, rows.Err()
}

// GetByID implements user.Directory.
func (r *userRepositoryImpl) GetByID(ctx context.Context, id string) (user.User, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, first_name, last_name, email, role, is_active, email_verified,
			   created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var found user.User
	err := q.QueryRow(ctx, query, id).Scan(
		&found.ID,
		&found.FirstName,
		&found.LastName,
		&found.Email,
		&found.Role,
		&found.IsActive,
		&found.EmailVerified,
		&found.CreatedAt,
		&found.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return found, nil
}
