// Package users manages account signup, login, and lookup.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/huddlehq/huddle/internal/db"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// Service provides account operations backed by PostgreSQL.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a users service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "users")),
	}
}

// Signup creates an account with a bcrypt-hashed password.
func (s *Service) Signup(ctx context.Context, username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || strings.TrimSpace(password) == "" {
		return User{}, fmt.Errorf("username, email, and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err = s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		username, email, string(hash),
	).Scan(&id, &createdAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", slog.String("user_id", db.UUIDToString(id)), slog.String("username", username))
	return User{
		ID:        db.UUIDToString(id),
		Username:  username,
		Email:     email,
		CreatedAt: db.TimeFromPg(createdAt),
	}, nil
}

// Login validates an email/password pair. A missing account and a wrong
// password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return User{}, ErrInvalidCredentials
	}

	var (
		id           pgtype.UUID
		username     string
		passwordHash string
		createdAt    pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&id, &username, &passwordHash, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	return User{
		ID:        db.UUIDToString(id),
		Username:  username,
		Email:     email,
		CreatedAt: db.TimeFromPg(createdAt),
	}, nil
}

// Get returns the account for the given user ID.
func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	pgID, err := db.ParseUUID(userID)
	if err != nil {
		return User{}, err
	}

	var (
		username  string
		email     string
		createdAt pgtype.Timestamptz
	)
	err = s.pool.QueryRow(ctx,
		`SELECT username, email, created_at FROM users WHERE id = $1`,
		pgID,
	).Scan(&username, &email, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}

	return User{
		ID:        db.UUIDToString(pgID),
		Username:  username,
		Email:     email,
		CreatedAt: db.TimeFromPg(createdAt),
	}, nil
}
