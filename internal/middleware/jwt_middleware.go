package middleware

import (
	"strings"

	"catapi/internal/models"
	"catapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserKey is the fiber.Locals key holding the authenticated *models.Identity.
const UserKey = "user"

// AuthRequired is a Fiber middleware to check for a valid, unrevoked JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "") {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header format must be 'Bearer <token>'")
		}

		identity, err := authService.ValidateToken(c.UserContext(), parts[1])
		if err != nil {
			zap.L().Debug("JWT validation failed", zap.String("path", c.Path()), zap.Error(err))
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals(UserKey, identity)
		return c.Next()
	}
}

// AdminOnly rejects callers that are not admins. It must run after AuthRequired.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentUser(c).IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "Access restricted")
		}
		return c.Next()
	}
}

// CurrentUser returns the identity stored by AuthRequired, or nil.
func CurrentUser(c *fiber.Ctx) *models.Identity {
	identity, _ := c.Locals(UserKey).(*models.Identity)
	return identity
}
