package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/taskdeck/internal/domain"
)

// UserStore persists user accounts.
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store using the given database.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user. Emails are stored lowercased and must be unique.
func (s *UserStore) Create(email, passwordHash string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.Validationf("invalid email address")
	}

	u := domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    storeNow(),
	}

	_, err := s.db.sql.Exec(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.User{}, domain.Validationf("email already registered")
		}
		return domain.User{}, fmt.Errorf("creating user: %w", err)
	}

	return u, nil
}

// GetByEmail returns the user with the given email.
func (s *UserStore) GetByEmail(email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var u domain.User
	var createdAt string
	err := s.db.sql.QueryRow(
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, &domain.NotFoundError{Kind: "user"}
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("loading user: %w", err)
	}

	u.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return u, nil
}

// GetByID returns the user with the given ID.
func (s *UserStore) GetByID(id string) (domain.User, error) {
	var u domain.User
	var createdAt string
	err := s.db.sql.QueryRow(
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, &domain.NotFoundError{Kind: "user", ID: id}
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("loading user: %w", err)
	}

	u.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return u, nil
}
