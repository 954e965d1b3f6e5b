package store

import (
	"context"
	"fmt"

	"shop-api/internal/models"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, created_at`

// CreateUser inserts a user; ErrDuplicate when the username is taken
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = now()
	err := s.db.GetContext(ctx, &u.ID, s.db.Rebind(`
		INSERT INTO users (username, email, password_hash, first_name, last_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(
		"SELECT "+userColumns+" FROM users WHERE username = ?"), username)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(
		"SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UsernameExists reports whether the username is already registered
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, s.db.Rebind(
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)"), username)
	return exists, err
}
