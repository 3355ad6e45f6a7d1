package user

import (
	"context"
	"errors"

	"arvo/internal/models"
	"arvo/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	GetByID(id uint) (*models.User, error)
	Create(input *models.CreateUserInput) (*models.User, error)
	Update(user *models.User) error
}

type service struct {
	repo    repositories.UserRepository
	actions repositories.RequiredActionRepository
}

func NewService(repo repositories.UserRepository, actions repositories.RequiredActionRepository) Service {
	return &service{
		repo:    repo,
		actions: actions,
	}
}

func (s *service) GetByID(id uint) (*models.User, error) {
	return s.repo.GetByID(id)
}

func (s *service) Create(input *models.CreateUserInput) (*models.User, error) {
	if input.Email == "" {
		return nil, errors.New("email is required")
	}

	// Check if user already exists
	existingUser, _ := s.repo.GetByEmail(input.Email)
	if existingUser != nil {
		return nil, errors.New("user with this email already exists")
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	role := input.Role
	if role == "" {
		role = "user"
	}

	// Create user
	user := &models.User{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Password: string(hashedPassword),
		Role:     role,
		Status:   "active",
	}

	if err := s.repo.Create(user); err != nil {
		return nil, err
	}

	// New accounts start with both verification steps outstanding.
	if s.actions != nil {
		ctx := context.Background()
		if err := s.actions.Ensure(ctx, user.ID, models.ActionCompleteKYC); err != nil {
			return nil, err
		}
		if err := s.actions.Ensure(ctx, user.ID, models.ActionLinkBank); err != nil {
			return nil, err
		}
	}

	return user, nil
}

func (s *service) Update(user *models.User) error {
	return s.repo.Update(user)
}
