package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserService provides user lookup operations. Users are referenced as the
// actor on stock movements, approvals, and alert resolutions.
type UserService interface {
	// GetUser returns a user by ID, or ErrNotFound.
	GetUser(ctx context.Context, userID int64) (*User, error)

	// GetUserByEmail returns an active user by email, or ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsers returns all active users ordered by name.
	ListUsers(ctx context.Context) ([]User, error)
}

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

func (s *userService) GetUser(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, email, role FROM users WHERE id = $1",
		userID,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return &u, nil
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, email, role FROM users WHERE email = $1 AND is_active = true",
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("get user %q: %w", email, err)
	}
	return &u, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, name, email, role FROM users WHERE is_active = true ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
