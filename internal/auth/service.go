// Package auth implements credential verification, token issuance, and
// token-based identity resolution. Tokens are self-contained HS256 JWTs;
// there is no server-side session or revocation state, so an issued token
// stays valid until it expires even if the account is deleted or changed.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/taskapp/apiserver/internal/store"
	"github.com/taskapp/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the persistence operations the auth core needs.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// RegisterParams carries the registration input.
type RegisterParams struct {
	Name     string
	Email    string
	Gender   string
	AboutMe  string
	Password string
}

// Service verifies credentials and mints tokens.
type Service struct {
	repo UserRepository
	cfg  Config
}

func NewService(repo UserRepository, cfg Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// Register creates a new user with a generated identifier and a bcrypt
// password hash. No token is issued; registration and login are decoupled.
func (s *Service) Register(ctx context.Context, params RegisterParams) (types.User, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Email = strings.TrimSpace(params.Email)

	var violations []string
	if params.Name == "" {
		violations = append(violations, "name is required")
	}
	if params.Email == "" {
		violations = append(violations, "email is required")
	}
	if params.Password == "" {
		violations = append(violations, "password is required")
	}
	if len(violations) > 0 {
		return types.User{}, &ValidationError{Errors: violations}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		ID:           uuid.NewString(),
		Name:         params.Name,
		Email:        params.Email,
		Gender:       params.Gender,
		AboutMe:      params.AboutMe,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return types.User{}, &ValidationError{Errors: []string{store.ErrDuplicateEmail.Error()}}
		}
		return types.User{}, err
	}
	return user, nil
}

// Login verifies the credentials and returns a signed token. Unknown email
// and wrong password fail identically with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, types.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", types.User{}, ErrInvalidCredentials
		}
		return "", types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", types.User{}, ErrInvalidCredentials
	}

	token, err := signToken(user, s.cfg)
	if err != nil {
		return "", types.User{}, err
	}
	return token, user, nil
}
