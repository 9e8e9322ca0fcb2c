package auth

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
	"github.com/ariefcatur/game-topup-api/internal/users"
)

type UserStore interface {
	FindActiveByEmail(ctx context.Context, email string) (users.User, error)
	TouchLastLogin(ctx context.Context, id int64) error
}

type LoginResult struct {
	Token string     `json:"token"`
	User  users.User `json:"user"`
}

var errInvalidCredentials = errors.Wrap(apperr.ErrUnauthorized, "invalid credentials")

type LoginService struct {
	Users     UserStore
	Passwords PasswordManager
	Tokens    *Manager
	Throttle  Throttle
	Log       log.FieldLogger
}

// Login checks credentials of an ACTIVE user and issues a token. Unknown
// email, inactive user and wrong password are indistinguishable to the caller.
func (s *LoginService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, apperr.Validation("email and password required")
	}
	if !s.Throttle.Allowed(ctx, email) {
		return LoginResult{}, errors.Wrap(apperr.ErrTooManyAttempts, "too many failed logins, try again later")
	}

	u, err := s.Users.FindActiveByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		s.Throttle.Failed(ctx, email)
		return LoginResult{}, errInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	ok, err := s.Passwords.Check(u.PasswordHash, password)
	if err != nil {
		// legacy rows may still hold something that is not a bcrypt hash
		s.Log.WithError(err).WithField("user_id", u.ID).Warn("stored password hash unreadable")
	}
	if !ok {
		s.Throttle.Failed(ctx, email)
		return LoginResult{}, errInvalidCredentials
	}
	s.Throttle.Reset(ctx, email)

	if err := s.Users.TouchLastLogin(ctx, u.ID); err != nil {
		s.Log.WithError(err).WithField("user_id", u.ID).Warn("last login not recorded")
	}

	tok, err := s.Tokens.Sign(Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role})
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: tok, User: u}, nil
}
