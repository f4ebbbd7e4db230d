package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/auth"
)

// UserStore implements auth.UserStore.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (auth.StoredUser, error) {
	var u auth.StoredUser
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, username, role, hashed_password
		FROM users
		WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Role, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.StoredUser{}, apperr.NotFound("user", username)
		}
		return auth.StoredUser{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
