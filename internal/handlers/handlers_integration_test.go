package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"catapi/internal/database"
	"catapi/internal/handlers"
	"catapi/internal/services"
	"catapi/internal/uploads"
	"catapi/internal/validation"
	"catapi/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type testEnv struct {
	app         *fiber.App
	authService *services.AuthService
	uploadDir   string
}

// setupApp builds the API on an isolated in-memory SQLite database with
// redis served by miniredis.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	store, err := database.OpenGORM(sqlite.Open(dsn), "sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	mr := miniredis.RunT(t)
	redisClient := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = redisClient.Close() })

	uploadDir := t.TempDir()
	files, err := uploads.NewStore(uploadDir)
	require.NoError(t, err)

	v := validation.New()
	authService := services.NewAuthService(store.Users, services.NewRedisTokenStore(redisClient), v, "test_jwt_secret", time.Hour)
	userService := services.NewUserService(store.Users, v, services.NopPublisher{})
	catService := services.NewCatService(store.Cats, store.Users, v, services.NopPublisher{})

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.NewHealthHandler(map[string]handlers.Pinger{"database": store}).RegisterRoutes(app)

	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	handlers.NewUserHandler(userService, authService).RegisterRoutes(apiV1)
	handlers.NewCatHandler(catService, authService, files, uploads.NewLocationResolver(24.9, 60.1)).RegisterRoutes(apiV1)

	return &testEnv{app: app, authService: authService, uploadDir: uploadDir}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else if len(raw) > 0 {
		out["list"] = decodeList(t, raw)
	}
	return resp, out
}

func decodeList(t *testing.T, raw []byte) []any {
	t.Helper()
	var list []any
	require.NoError(t, json.Unmarshal(raw, &list))
	return list
}

func (e *testEnv) register(t *testing.T, name, email, password string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{
		"user_name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["data"].(map[string]any)["id"].(string)
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["token"].(string)
}

func (e *testEnv) uploadCat(t *testing.T, token string, fields map[string]string, withFile bool) (*http.Response, map[string]any) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withFile {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="cat"; filename="cat.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("\xff\xd8\xff fake jpeg"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cats", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return e.send(t, req)
}

func TestHealth(t *testing.T) {
	env := setupApp(t)
	resp, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestUserLifecycle(t *testing.T) {
	env := setupApp(t)

	// Registration ignores a client-supplied role
	resp, body := env.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{
		"user_name": "testuser", "email": "test@example.com", "password": "password123", "role": "admin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User created!", body["message"])
	data := body["data"].(map[string]any)
	assert.NotContains(t, data, "password")
	assert.NotContains(t, data, "role")
	userID := data["id"].(string)

	// Duplicate email
	resp, _ = env.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{
		"user_name": "other", "email": "test@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Validation failure lists the fields
	resp, body = env.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["errors"])

	// Login
	resp, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "test@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	token := env.login(t, "test@example.com", "password123")

	identity, err := env.authService.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user", identity.Role)

	// Token check
	resp, body = env.do(t, http.MethodGet, "/api/v1/users/token", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, userID, body["id"])
	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/token", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Reads
	resp, body = env.do(t, http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["list"], 1)
	resp, body = env.do(t, http.MethodGet, "/api/v1/users/"+userID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "testuser", body["user_name"])
	resp, body = env.do(t, http.MethodGet, "/api/v1/users/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "User not found", body["message"])

	// Self update
	resp, _ = env.do(t, http.MethodPut, "/api/v1/users", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, body = env.do(t, http.MethodPut, "/api/v1/users", token, map[string]string{"user_name": "renamed", "password": "newpass"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User updated", body["message"])
	env.login(t, "test@example.com", "newpass")

	// Self delete revokes the token used
	resp, body = env.do(t, http.MethodDelete, "/api/v1/users", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User deleted", body["message"])
	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/token", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupApp(t)
	env.register(t, "a", "a@example.com", "pw")
	token := env.login(t, "a@example.com", "pw")

	resp, _ := env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/token", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateUserReturnsStrippedUser(t *testing.T) {
	env := setupApp(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{
		"user_name": "a", "email": "a@x.com", "password": "p",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := body["data"].(map[string]any)
	assert.Equal(t, "a", created["user_name"])
	assert.NotContains(t, created, "password")
	assert.NotContains(t, created, "role")

	resp, fetched := env.do(t, http.MethodGet, "/api/v1/users/"+created["id"].(string), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created, fetched)

	// A user_name patch leaves email and password untouched
	token := env.login(t, "a@x.com", "p")
	resp, body = env.do(t, http.MethodPut, "/api/v1/users", token, map[string]string{"user_name": "X"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := body["data"].(map[string]any)
	assert.Equal(t, "X", updated["user_name"])
	assert.Equal(t, "a@x.com", updated["email"])
	assert.Equal(t, created["id"], updated["id"])
	env.login(t, "a@x.com", "p")
}

func TestCatLifecycle(t *testing.T) {
	env := setupApp(t)
	ownerID := env.register(t, "owner", "owner@example.com", "pw")
	ownerToken := env.login(t, "owner@example.com", "pw")
	env.register(t, "stranger", "stranger@example.com", "pw")
	strangerToken := env.login(t, "stranger@example.com", "pw")
	require.NoError(t, env.authService.EnsureAdmin(context.Background(), "admin@example.com", "adminpw", "admin"))
	adminToken := env.login(t, "admin@example.com", "adminpw")

	fields := map[string]string{"cat_name": "Misu", "weight": "4.2", "birthdate": "2020-05-01", "lng": "5", "lat": "5"}

	// No file, no cat
	resp, body := env.uploadCat(t, ownerToken, fields, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No file uploaded", body["message"])
	resp, body = env.do(t, http.MethodGet, "/api/v1/cats", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["list"])

	// Unauthenticated upload
	resp, _ = env.uploadCat(t, "", fields, true)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Create
	resp, body = env.uploadCat(t, ownerToken, fields, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Cat added", body["message"])
	cat := body["data"].(map[string]any)
	catID := cat["id"].(string)
	assert.Equal(t, ownerID, cat["owner"])
	assert.Equal(t, map[string]any{"type": "Point", "coordinates": []any{5.0, 5.0}}, cat["location"])
	_, err := os.Stat(filepath.Join(env.uploadDir, cat["filename"].(string)))
	assert.NoError(t, err)

	// A second cat outside the search area at the fallback location
	resp, _ = env.uploadCat(t, ownerToken, map[string]string{"cat_name": "Kisu", "weight": "3", "birthdate": "2021-01-01"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Duplicate name
	resp, _ = env.uploadCat(t, strangerToken, fields, true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Reads
	resp, body = env.do(t, http.MethodGet, "/api/v1/cats/"+catID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "owner", body["owner"].(map[string]any)["user_name"])
	resp, _ = env.do(t, http.MethodGet, "/api/v1/cats/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/v1/cats/user", ownerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["list"], 2)
	resp, body = env.do(t, http.MethodGet, "/api/v1/cats/user", strangerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["list"])

	// Bounding box, inclusive edges
	resp, body = env.do(t, http.MethodGet, "/api/v1/cats/area?north=10&south=0&east=10&west=0", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["list"], 1)
	assert.Equal(t, "Misu", body["list"].([]any)[0].(map[string]any)["cat_name"])
	resp, _ = env.do(t, http.MethodGet, "/api/v1/cats/area?north=5&south=5&east=10&west=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/v1/cats/area?north=10&south=0&east=10", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/v1/cats/area?north=abc&south=0&east=10&west=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Owner-level update
	resp, _ = env.do(t, http.MethodPut, "/api/v1/cats/"+catID, strangerToken, map[string]any{"weight": 9})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPut, "/api/v1/cats/"+catID, ownerToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPut, "/api/v1/cats/"+catID, ownerToken, map[string]any{"weight": -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, body = env.do(t, http.MethodPut, "/api/v1/cats/"+catID, ownerToken, map[string]any{"weight": 5.5, "owner": "ignored"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Cat updated", body["message"])
	assert.Equal(t, 5.5, body["data"].(map[string]any)["weight"])
	assert.Equal(t, ownerID, body["data"].(map[string]any)["owner"])

	// Admin routes
	move := map[string]any{"location": map[string]any{"type": "Point", "coordinates": []float64{50, 50}}}
	resp, body = env.do(t, http.MethodPut, "/api/v1/cats/admin/"+catID, ownerToken, move)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Access restricted", body["message"])
	resp, _ = env.do(t, http.MethodPut, "/api/v1/cats/admin/"+catID, adminToken, map[string]any{"owner": "ghost"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPut, "/api/v1/cats/admin/"+catID, adminToken, move)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.do(t, http.MethodGet, "/api/v1/cats/area?north=10&south=0&east=10&west=0", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["list"])

	// Delete
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/cats/"+catID, strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/v1/cats/"+catID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.do(t, http.MethodDelete, "/api/v1/cats/"+catID, ownerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Cat deleted", body["message"])
	resp, _ = env.do(t, http.MethodGet, "/api/v1/cats/"+catID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/v1/cats", "", nil)
	require.Len(t, body["list"], 1)
	otherID := body["list"].([]any)[0].(map[string]any)["id"].(string)
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/cats/admin/"+otherID, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/cats/admin/"+otherID, adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/cats/admin/"+otherID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCatOwnerDeletedRendersNull(t *testing.T) {
	env := setupApp(t)
	env.register(t, "owner", "owner@example.com", "pw")
	token := env.login(t, "owner@example.com", "pw")

	resp, body := env.uploadCat(t, token, map[string]string{"cat_name": "Misu", "weight": "4", "birthdate": "2020-05-01"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	catID := body["data"].(map[string]any)["id"].(string)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/users", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/v1/cats/"+catID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "owner")
	assert.Nil(t, body["owner"])
}
