package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/blackjack/internal/auth"
	"github.com/jason-s-yu/blackjack/internal/models"
)

// CreateUser inserts a new account. The username is trimmed and must be unique;
// a non-empty password is replaced by its argon2id hash before it is stored.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return ErrEmptyUsername
	}
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	if user.Password != "" {
		hash, err := auth.HashPassword(user.Password, auth.DefaultParams)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hash
	}

	q := `INSERT INTO users (id, username, password)
	      VALUES ($1, $2, $3)
	      RETURNING wins, created_at`

	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q, user.ID, user.Username, user.Password).Scan(&user.Wins, &user.CreatedAt)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const selectUser = `SELECT id, username, password, wins, created_at FROM users`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Wins, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx, selectUser+` WHERE username=$1`, strings.TrimSpace(username)))
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx, selectUser+` WHERE id=$1`, id))
}

// AuthenticateUser looks a user up by username. Accounts created with a
// password must present it; passwordless accounts log in by name alone.
func (s *Store) AuthenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u.HasPassword() {
		match, err := auth.VerifyPassword(password, u.Password)
		if err != nil || !match {
			return nil, ErrInvalidCredentials
		}
	}
	return u, nil
}

// TopWinners returns the users with the most wins, ties broken by who signed up first.
func (s *Store) TopWinners(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, username, wins, created_at
		FROM users
		ORDER BY wins DESC, created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Wins, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
