package uploads

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"catapi/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FormField is the multipart field carrying the cat image.
const FormField = "cat"

var (
	// ErrNoFile is returned when the request carries no image.
	ErrNoFile = errors.New("No file uploaded")
	// ErrNotImage is returned for uploads that are not images.
	ErrNotImage = errors.New("Only image files are allowed")
)

// Store saves uploaded images under a directory.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory files are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// Save stores the image sent in FormField under a random name and
// returns that name.
func (s *Store) Save(c *fiber.Ctx) (string, error) {
	fh, err := c.FormFile(FormField)
	if err != nil || fh == nil || fh.Size == 0 {
		return "", ErrNoFile
	}
	if !isImage(fh) {
		return "", ErrNotImage
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename))
	if err := c.SaveFile(fh, filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return name, nil
}

// Remove deletes a stored file. Missing files are ignored.
func (s *Store) Remove(name string) {
	if name == "" {
		return
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		zap.L().Warn("failed to remove upload", zap.String("filename", name), zap.Error(err))
	}
}

func isImage(fh *multipart.FileHeader) bool {
	return strings.HasPrefix(fh.Header.Get(fiber.HeaderContentType), "image/")
}

// LocationResolver determines where a newly uploaded cat is.
type LocationResolver struct {
	fallback models.Point
}

// NewLocationResolver uses (lng, lat) when the request carries no coordinates.
func NewLocationResolver(lng, lat float64) *LocationResolver {
	return &LocationResolver{fallback: models.NewPoint(lng, lat)}
}

// Resolve reads the "lng" and "lat" form values. Both must be present to
// override the fallback.
func (r *LocationResolver) Resolve(c *fiber.Ctx) (models.Point, error) {
	lngStr, latStr := strings.TrimSpace(c.FormValue("lng")), strings.TrimSpace(c.FormValue("lat"))
	if lngStr == "" && latStr == "" {
		return r.fallback, nil
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return models.Point{}, fmt.Errorf("invalid lng %q", lngStr)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return models.Point{}, fmt.Errorf("invalid lat %q", latStr)
	}
	p := models.NewPoint(lng, lat)
	if !p.Valid() {
		return models.Point{}, fmt.Errorf("coordinates (%g, %g) outside the globe", lng, lat)
	}
	return p, nil
}
