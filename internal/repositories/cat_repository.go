package repositories

import (
	"context"

	"catapi/internal/models"
)

// CatRepository defines the interface for cat data access.
type CatRepository interface {
	GetAll(ctx context.Context) ([]models.Cat, error)
	GetByID(ctx context.Context, id string) (*models.Cat, error)
	GetByOwner(ctx context.Context, ownerID string) ([]models.Cat, error)
	// GetInBoundingBox returns cats located inside box, edges included.
	// box must already be normalized.
	GetInBoundingBox(ctx context.Context, box models.BoundingBox) ([]models.Cat, error)
	Create(ctx context.Context, cat *models.Cat) error
	Update(ctx context.Context, cat *models.Cat) error
	Delete(ctx context.Context, id string) error
}
