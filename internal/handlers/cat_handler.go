package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"catapi/internal/middleware"
	"catapi/internal/models"
	"catapi/internal/services"
	"catapi/internal/uploads"

	"github.com/gofiber/fiber/v2"
)

// CatHandler handles HTTP requests for cats.
type CatHandler struct {
	service     *services.CatService
	authService *services.AuthService
	files       *uploads.Store
	locations   *uploads.LocationResolver
}

// NewCatHandler creates a new CatHandler.
func NewCatHandler(service *services.CatService, authService *services.AuthService, files *uploads.Store, locations *uploads.LocationResolver) *CatHandler {
	return &CatHandler{
		service:     service,
		authService: authService,
		files:       files,
		locations:   locations,
	}
}

// RegisterRoutes registers the cat routes with the Fiber app.
func (h *CatHandler) RegisterRoutes(router fiber.Router) {
	auth := middleware.AuthRequired(h.authService)

	catRoutes := router.Group("/cats")
	catRoutes.Get("/", h.HandleGetCats)
	catRoutes.Get("/area", h.HandleGetCatsInArea)
	catRoutes.Get("/user", auth, h.HandleGetCatsByUser)
	catRoutes.Post("/", auth, h.HandleCreateCat)

	admin := catRoutes.Group("/admin", auth, middleware.AdminOnly())
	admin.Put("/:id", h.HandleUpdateCatAdmin)
	admin.Delete("/:id", h.HandleDeleteCatAdmin)

	catRoutes.Get("/:id", h.HandleGetCatByID)
	catRoutes.Put("/:id", auth, h.HandleUpdateCat)
	catRoutes.Delete("/:id", auth, h.HandleDeleteCat)
}

// HandleGetCats retrieves all cats.
func (h *CatHandler) HandleGetCats(c *fiber.Ctx) error {
	cats, err := h.service.GetAllCats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

// HandleGetCatsByUser retrieves the caller's cats.
func (h *CatHandler) HandleGetCatsByUser(c *fiber.Ctx) error {
	cats, err := h.service.GetCatsByOwner(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

// HandleGetCatsInArea retrieves the cats inside the north/south/east/west box.
func (h *CatHandler) HandleGetCatsInArea(c *fiber.Ctx) error {
	var box models.BoundingBox
	for _, q := range []struct {
		name string
		dst  *float64
	}{
		{"north", &box.North},
		{"south", &box.South},
		{"east", &box.East},
		{"west", &box.West},
	} {
		raw := strings.TrimSpace(c.Query(q.name))
		if raw == "" {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Query parameter '%s' is required", q.name))
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Query parameter '%s' must be a number", q.name))
		}
		*q.dst = v
	}

	cats, err := h.service.GetCatsInArea(c.UserContext(), box)
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

// HandleGetCatByID retrieves a single cat with its owner.
func (h *CatHandler) HandleGetCatByID(c *fiber.Ctx) error {
	cat, err := h.service.GetCatByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return notFound(err, "Cat not found")
	}
	return c.JSON(cat)
}

// HandleCreateCat stores the uploaded image and creates a cat owned by the caller.
func (h *CatHandler) HandleCreateCat(c *fiber.Ctx) error {
	filename, err := h.files.Save(c)
	if err != nil {
		return err
	}

	cat, err := h.createCat(c, filename)
	if err != nil {
		h.files.Remove(filename)
		return conflict(err, "Cat name already taken")
	}
	return c.JSON(fiber.Map{
		"message": "Cat added",
		"data":    cat,
	})
}

func (h *CatHandler) createCat(c *fiber.Ctx, filename string) (*models.Cat, error) {
	var req models.CreateCatRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid form data")
	}
	location, err := h.locations.Resolve(c)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return h.service.CreateCat(c.UserContext(), req, filename, location, middleware.CurrentUser(c).ID)
}

// HandleUpdateCat updates a cat owned by the caller.
func (h *CatHandler) HandleUpdateCat(c *fiber.Ctx) error {
	var req models.UpdateCatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	cat, err := h.service.UpdateCat(c.UserContext(), c.Params("id"), req, middleware.CurrentUser(c))
	if err != nil {
		return conflict(notFound(err, "Cat not found"), "Cat name already taken")
	}
	return c.JSON(fiber.Map{
		"message": "Cat updated",
		"data":    cat,
	})
}

// HandleDeleteCat deletes a cat owned by the caller.
func (h *CatHandler) HandleDeleteCat(c *fiber.Ctx) error {
	cat, err := h.service.DeleteCat(c.UserContext(), c.Params("id"), middleware.CurrentUser(c))
	if err != nil {
		return notFound(err, "Cat not found")
	}
	h.files.Remove(cat.Filename)
	return c.JSON(fiber.Map{
		"message": "Cat deleted",
		"data":    cat,
	})
}

// HandleUpdateCatAdmin updates any cat, including its location and owner.
func (h *CatHandler) HandleUpdateCatAdmin(c *fiber.Ctx) error {
	var req models.AdminUpdateCatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	cat, err := h.service.UpdateCatAdmin(c.UserContext(), c.Params("id"), req, middleware.CurrentUser(c))
	if err != nil {
		return conflict(notFound(err, "Cat not found"), "Cat name already taken")
	}
	return c.JSON(fiber.Map{
		"message": "Cat updated",
		"data":    cat,
	})
}

// HandleDeleteCatAdmin deletes any cat.
func (h *CatHandler) HandleDeleteCatAdmin(c *fiber.Ctx) error {
	cat, err := h.service.DeleteCatAdmin(c.UserContext(), c.Params("id"), middleware.CurrentUser(c))
	if err != nil {
		return notFound(err, "Cat not found")
	}
	h.files.Remove(cat.Filename)
	return c.JSON(fiber.Map{
		"message": "Cat deleted",
		"data":    cat,
	})
}
