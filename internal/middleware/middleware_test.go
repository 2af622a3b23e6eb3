package middleware_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"catapi/internal/middleware"
	"catapi/internal/models"
	"catapi/internal/repositories"
	"catapi/internal/services"
	"catapi/internal/validation"
	"catapi/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*fiber.App, *services.AuthService) {
	t.Helper()
	mr := miniredis.RunT(t)
	tokens := services.NewRedisTokenStore(cache.New(mr.Addr(), "", 0))
	authService := services.NewAuthService(repositories.NewMemoryUserRepository(), tokens, validation.New(), "secret", time.Hour)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"message": err.Error()})
		},
	})
	app.Use(middleware.Metrics())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/me", middleware.AuthRequired(authService), func(c *fiber.Ctx) error {
		return c.JSON(middleware.CurrentUser(c).Output())
	})
	app.Get("/admin", middleware.AuthRequired(authService), middleware.AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app, authService
}

func tokenFor(t *testing.T, authService *services.AuthService, role string) string {
	t.Helper()
	token, err := authService.GenerateToken(&models.User{ID: "u1", UserName: "u", Email: "u@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func TestAuthRequired(t *testing.T) {
	app, authService := setup(t)
	token := tokenFor(t, authService, models.RoleUser)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized},
		{"empty bearer", "Bearer ", fiber.StatusUnauthorized},
		{"garbage token", "Bearer nope", fiber.StatusUnauthorized},
		{"valid token", "Bearer " + token, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestAuthRequired_RevokedToken(t *testing.T) {
	app, authService := setup(t)
	token := tokenFor(t, authService, models.RoleUser)

	identity, err := authService.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	require.NoError(t, authService.Revoke(context.Background(), identity))

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminOnly(t *testing.T) {
	app, authService := setup(t)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, models.RoleUser))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Access restricted")

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, models.RoleAdmin))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	app, _ := setup(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), `catapi_http_requests_total{method="GET",route="/me",status="401"}`))
}

func TestMetrics_CountsRecoveredPanics(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Metrics())
	app.Use(recover.New())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `catapi_http_requests_total{method="GET",route="/boom",status="500"}`)
}
