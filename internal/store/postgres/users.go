package postgres

import (
	"context"

	"github.com/capitalize-ai/localchat/internal/model"
)

const userColumns = `id::text, email, name, password_hash, created_at`

// CreateUser inserts user; a duplicate email returns store.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	id, err := parseID(user.ID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = s.pool.Exec(ctx, query, id, user.Email, user.Name, user.PasswordHash, user.CreatedAt)
	return mapError(err)
}

// GetUser returns the user with id.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	user := &model.User{}
	err = s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

// GetUserByEmail returns the user with email, compared case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}
