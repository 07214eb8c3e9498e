package services

import (
	"context"
	"strings"

	"github.com/taskapp/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id string) error
}

// ProfileUpdate carries the mutable profile fields. The password hash and
// the identifier are never touched by the update path.
type ProfileUpdate struct {
	Name    string
	Email   string
	Gender  string
	AboutMe string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// UpdateProfile replaces the mutable profile fields of an existing user.
func (s *UserService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	user.Name = strings.TrimSpace(update.Name)
	user.Email = strings.TrimSpace(update.Email)
	user.Gender = update.Gender
	user.AboutMe = update.AboutMe

	return s.repo.Update(ctx, user)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
