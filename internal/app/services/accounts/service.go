// Package accounts implements signup and login.
package accounts

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/shelfworks/catalog-service/internal/app/domain/user"
	"github.com/shelfworks/catalog-service/internal/app/storage"
	"github.com/shelfworks/catalog-service/internal/auth"
	"github.com/shelfworks/catalog-service/internal/errors"
	"github.com/shelfworks/catalog-service/pkg/logger"
)

// Service provides account registration and credential exchange.
type Service struct {
	users      storage.UserStore
	authorizer *auth.Authorizer
	log        *logger.Logger
}

// New creates the accounts service.
func New(users storage.UserStore, authorizer *auth.Authorizer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{users: users, authorizer: authorizer, log: log}
}

// Signup registers a new account. The email must be unused; addresses are
// compared case-insensitively.
func (s *Service) Signup(ctx context.Context, email, password string) (user.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return user.User{}, errors.Validation("a valid email is required")
	}
	if password == "" {
		return user.User{}, errors.Validation("a password is required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return user.User{}, errors.Internal("could not process password", err)
	}

	created, err := s.users.CreateUser(ctx, user.User{Email: email, PasswordHash: hash})
	if err != nil {
		if stderrors.Is(err, storage.ErrDuplicateEmail) {
			return user.User{}, errors.Validation("email is already registered")
		}
		return user.User{}, errors.Internal("could not create user", err)
	}

	s.log.WithField("user_id", created.ID).Info("User registered")
	return created, nil
}

// Login verifies the credentials and returns the user id with a fresh
// token. Unknown emails and wrong passwords produce the same message so the
// response does not reveal which part failed.
func (s *Service) Login(ctx context.Context, email, password string) (string, string, error) {
	if email == "" || password == "" {
		return "", "", errors.Validation("email and password are required")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return "", "", errors.Unauthorized("incorrect email or password")
		}
		return "", "", errors.Internal("could not load user", err)
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", "", errors.Unauthorized("incorrect email or password")
	}

	token, err := s.authorizer.Generate(u.ID)
	if err != nil {
		return "", "", errors.Internal("could not issue token", err)
	}

	s.log.WithField("user_id", u.ID).Info("User logged in")
	return u.ID, token, nil
}
