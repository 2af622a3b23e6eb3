package services_test

import (
	"context"
	"time"

	"catapi/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCatRepository is a mock implementation of repositories.CatRepository
type MockCatRepository struct {
	mock.Mock
}

func (m *MockCatRepository) GetAll(ctx context.Context) ([]models.Cat, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Cat), args.Error(1)
}

func (m *MockCatRepository) GetByID(ctx context.Context, id string) (*models.Cat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cat), args.Error(1)
}

func (m *MockCatRepository) GetByOwner(ctx context.Context, ownerID string) ([]models.Cat, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]models.Cat), args.Error(1)
}

func (m *MockCatRepository) GetInBoundingBox(ctx context.Context, box models.BoundingBox) ([]models.Cat, error) {
	args := m.Called(ctx, box)
	return args.Get(0).([]models.Cat), args.Error(1)
}

func (m *MockCatRepository) Create(ctx context.Context, cat *models.Cat) error {
	args := m.Called(ctx, cat)
	return args.Error(0)
}

func (m *MockCatRepository) Update(ctx context.Context, cat *models.Cat) error {
	args := m.Called(ctx, cat)
	return args.Error(0)
}

func (m *MockCatRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPublisher records published events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event any) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTokenStore is a mock implementation of services.TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsRevoked(ctx context.Context, tokenID string) bool {
	args := m.Called(ctx, tokenID)
	return args.Bool(0)
}

// eventNamed matches a published models.Event by name.
func eventNamed(name string) interface{} {
	return mock.MatchedBy(func(e any) bool {
		ev, ok := e.(models.Event)
		return ok && ev.Name == name
	})
}
