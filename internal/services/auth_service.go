package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catapi/internal/models"
	"catapi/internal/repositories"
	"catapi/internal/validation"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenDuration is used when no expiry is configured.
const DefaultTokenDuration = 24 * time.Hour

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	tokens     TokenStore
	validator  *validation.Validator
	jwtSecret  []byte
	tokenDurat time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, tokens TokenStore, v *validation.Validator, jwtSecret string, tokenDuration time.Duration) *AuthService {
	if tokenDuration <= 0 {
		tokenDuration = DefaultTokenDuration
	}
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		validator:  v,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenDuration,
	}
}

// HashPassword returns the salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates a user by email and password and returns a signed token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (string, *models.User, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := s.validator.Validate(req).Err(); err != nil {
		return "", nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to load user for login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GenerateToken signs a token carrying the user's identity.
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   user.ID,
		"user_name": user.UserName,
		"email":     user.Email,
		"role":      user.Role,
		"jti":       uuid.New().String(),
		"iat":       now.Unix(),
		"exp":       now.Add(s.tokenDurat).Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a token and resolves the caller's identity.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		zap.L().Debug("token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", ErrUnauthorized)
	}

	identity := &models.Identity{
		ID:       claimString(claims, "user_id"),
		UserName: claimString(claims, "user_name"),
		Email:    claimString(claims, "email"),
		Role:     claimString(claims, "role"),
		TokenID:  claimString(claims, "jti"),
	}
	if exp, ok := claims["exp"].(float64); ok {
		identity.ExpiresAt = int64(exp)
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("token without subject: %w", ErrUnauthorized)
	}
	if s.tokens != nil && s.tokens.IsRevoked(ctx, identity.TokenID) {
		return nil, fmt.Errorf("token revoked: %w", ErrUnauthorized)
	}
	return identity, nil
}

// Revoke invalidates the identity's token until it would have expired.
func (s *AuthService) Revoke(ctx context.Context, identity *models.Identity) error {
	if s.tokens == nil || identity == nil || identity.TokenID == "" {
		return nil
	}
	ttl := time.Until(time.Unix(identity.ExpiresAt, 0))
	if err := s.tokens.Revoke(ctx, identity.TokenID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// EnsureAdmin creates the admin account, or promotes an existing account
// with that email to admin.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	email = NormalizeEmail(email)
	existing, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return nil
		}
		existing.Role = models.RoleAdmin
		if err := s.userRepo.Update(ctx, existing); err != nil {
			return fmt.Errorf("failed to promote %s to admin: %w", email, err)
		}
		zap.L().Info("promoted user to admin", zap.String("user_id", existing.ID))
		return nil
	case !errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	admin := &models.User{
		UserName: name,
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	}
	if err := s.validator.Validate(admin).Err(); err != nil {
		return err
	}
	if admin.Password, err = HashPassword(password); err != nil {
		return err
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	zap.L().Info("seeded admin user", zap.String("user_id", admin.ID))
	return nil
}

func claimString(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
