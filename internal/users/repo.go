package users

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
	"github.com/ariefcatur/game-topup-api/internal/postgres"
)

const StatusActive = "ACTIVE"

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Repo struct{ DB postgres.DB }

// FindActiveByEmail returns ErrNotFound for unknown and non-ACTIVE users alike.
func (r *Repo) FindActiveByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		SELECT id, email, name, role, status, password_hash, last_login_at, created_at
		FROM users WHERE email = $1 AND status = $2`, email, StatusActive,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Status, &u.PasswordHash, &u.LastLoginAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, errors.Wrap(err, "select user by email")
	}
	return u, nil
}

func (r *Repo) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.DB.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return errors.Wrap(err, "stamp last login")
}

// Create inserts a user whose password is already hashed.
func (r *Repo) Create(ctx context.Context, u *User) error {
	if u.Status == "" {
		u.Status = StatusActive
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users (email, name, role, status, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		u.Email, u.Name, u.Role, u.Status, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if apperr.IsUniqueViolation(err, "") {
			return apperr.Conflict("email %s is already taken", u.Email)
		}
		return errors.Wrap(apperr.FromPg(err), "insert user")
	}
	return nil
}
