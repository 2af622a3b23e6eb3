package handlers

import (
	"catapi/internal/middleware"
	"catapi/internal/models"
	"catapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	service     *services.UserService
	authService *services.AuthService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService, authService *services.AuthService) *UserHandler {
	return &UserHandler{
		service:     service,
		authService: authService,
	}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	auth := middleware.AuthRequired(h.authService)

	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleGetUsers)
	userRoutes.Post("/", h.HandleCreateUser)
	userRoutes.Put("/", auth, h.HandleUpdateSelf)
	userRoutes.Delete("/", auth, h.HandleDeleteSelf)
	// Registered before /:id so "token" is not taken as an id.
	userRoutes.Get("/token", auth, h.HandleCheckToken)
	userRoutes.Get("/:id", h.HandleGetUserByID)
}

// HandleGetUsers retrieves all users.
func (h *UserHandler) HandleGetUsers(c *fiber.Ctx) error {
	users, err := h.service.GetAllUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// HandleGetUserByID retrieves a single user by ID.
func (h *UserHandler) HandleGetUserByID(c *fiber.Ctx) error {
	user, err := h.service.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return notFound(err, "User not found")
	}
	return c.JSON(user)
}

// HandleCreateUser registers a new user.
func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req models.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := h.service.CreateUser(c.UserContext(), req)
	if err != nil {
		return conflict(err, "Email already registered")
	}
	return c.JSON(fiber.Map{
		"message": "User created!",
		"data":    user,
	})
}

// HandleUpdateSelf updates the caller's own account.
func (h *UserHandler) HandleUpdateSelf(c *fiber.Ctx) error {
	var req models.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := h.service.UpdateSelf(c.UserContext(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		return conflict(notFound(err, "User not found"), "Email already registered")
	}
	return c.JSON(fiber.Map{
		"message": "User updated",
		"data":    user,
	})
}

// HandleDeleteSelf deletes the caller's own account and revokes the token used.
func (h *UserHandler) HandleDeleteSelf(c *fiber.Ctx) error {
	identity := middleware.CurrentUser(c)
	user, err := h.service.DeleteSelf(c.UserContext(), identity.ID)
	if err != nil {
		return notFound(err, "User not found")
	}
	if err := h.authService.Revoke(c.UserContext(), identity); err != nil {
		zap.L().Warn("failed to revoke token of deleted user", zap.String("user_id", identity.ID), zap.Error(err))
	}
	return c.JSON(fiber.Map{
		"message": "User deleted",
		"data":    user,
	})
}

// HandleCheckToken returns the identity resolved from the bearer token.
func (h *UserHandler) HandleCheckToken(c *fiber.Ctx) error {
	identity := middleware.CurrentUser(c)
	if identity == nil {
		return fiber.NewError(fiber.StatusForbidden, "Token not valid")
	}
	return c.JSON(identity.Output())
}
