package services

import (
	"context"
	"fmt"
	"strings"

	"catapi/internal/models"
	"catapi/internal/repositories"
	"catapi/internal/validation"

	"go.uber.org/zap"
)

// UserService handles business logic related to users.
type UserService struct {
	repo      repositories.UserRepository
	validator *validation.Validator
	events    EventPublisher
}

// NewUserService creates a new UserService.
func NewUserService(repo repositories.UserRepository, v *validation.Validator, events EventPublisher) *UserService {
	return &UserService{
		repo:      repo,
		validator: v,
		events:    events,
	}
}

// GetAllUsers retrieves all users without their credentials.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.UserOutput, error) {
	users, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return models.ToUserOutputList(users), nil
}

// GetUserByID retrieves a single user by ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.UserOutput, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := user.Output()
	return &out, nil
}

// CreateUser registers a new account with the user role.
func (s *UserService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.UserOutput, error) {
	user := &models.User{
		UserName: strings.TrimSpace(req.UserName),
		Email:    NormalizeEmail(req.Email),
		Password: req.Password,
		Role:     models.RoleUser,
	}
	if err := s.validator.Validate(user).Err(); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(user.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hashed

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	zap.L().Info("user created", zap.String("user_id", user.ID))
	publish(ctx, s.events, models.EventUserCreated, user.ID, "")

	out := user.Output()
	return &out, nil
}

// UpdateSelf applies a partial update to the caller's own account. Only
// user_name, email and password can change; the password is re-hashed.
func (s *UserService) UpdateSelf(ctx context.Context, userID string, req models.UpdateUserRequest) (*models.UserOutput, error) {
	if req.IsEmpty() {
		return nil, fmt.Errorf("nothing to update: %w", ErrInvalidInput)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.UserName != nil {
		user.UserName = strings.TrimSpace(*req.UserName)
	}
	if req.Email != nil {
		user.Email = NormalizeEmail(*req.Email)
	}
	if req.Password != nil {
		if *req.Password == "" {
			return nil, validation.Fail("password", "required", "password is required")
		}
		user.Password = *req.Password
	}
	if err := s.validator.Validate(user).Err(); err != nil {
		return nil, err
	}
	if req.Password != nil {
		if user.Password, err = HashPassword(user.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	zap.L().Info("user updated", zap.String("user_id", user.ID))
	publish(ctx, s.events, models.EventUserUpdated, user.ID, "")

	out := user.Output()
	return &out, nil
}

// DeleteSelf removes the caller's own account and returns what was deleted.
func (s *UserService) DeleteSelf(ctx context.Context, userID string) (*models.UserOutput, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return nil, err
	}
	zap.L().Info("user deleted", zap.String("user_id", userID))
	publish(ctx, s.events, models.EventUserDeleted, userID, "")

	out := user.Output()
	return &out, nil
}
