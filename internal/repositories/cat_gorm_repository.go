package repositories

import (
	"context"
	"errors"
	"fmt"

	"catapi/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCatRepository is a GORM implementation of CatRepository.
type GORMCatRepository struct {
	db *gorm.DB
}

// NewGORMCatRepository creates a new instance of GORMCatRepository.
func NewGORMCatRepository(db *gorm.DB) *GORMCatRepository {
	return &GORMCatRepository{
		db: db,
	}
}

// GetAll retrieves all cats from the database.
func (r *GORMCatRepository) GetAll(ctx context.Context) ([]models.Cat, error) {
	var cats []models.Cat
	if err := r.db.WithContext(ctx).Order("cat_name").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("failed to get all cats: %w", err)
	}
	return cats, nil
}

// GetByID retrieves a single cat by its ID from the database.
func (r *GORMCatRepository) GetByID(ctx context.Context, id string) (*models.Cat, error) {
	var cat models.Cat
	if err := r.db.WithContext(ctx).First(&cat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cat with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cat by ID %s: %w", id, err)
	}
	return &cat, nil
}

// GetByOwner retrieves the cats owned by ownerID.
func (r *GORMCatRepository) GetByOwner(ctx context.Context, ownerID string) ([]models.Cat, error) {
	var cats []models.Cat
	if err := r.db.WithContext(ctx).Where("owner = ?", ownerID).Order("cat_name").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("failed to get cats of owner %s: %w", ownerID, err)
	}
	return cats, nil
}

// GetInBoundingBox retrieves cats whose location columns fall inside box.
func (r *GORMCatRepository) GetInBoundingBox(ctx context.Context, box models.BoundingBox) ([]models.Cat, error) {
	var cats []models.Cat
	err := r.db.WithContext(ctx).
		Where("location_lng BETWEEN ? AND ?", box.West, box.East).
		Where("location_lat BETWEEN ? AND ?", box.South, box.North).
		Order("cat_name").
		Find(&cats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get cats in bounding box: %w", err)
	}
	return cats, nil
}

// Create creates a new cat in the database.
func (r *GORMCatRepository) Create(ctx context.Context, cat *models.Cat) error {
	if cat.ID == "" {
		cat.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(cat).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("cat name %s already taken: %w", cat.CatName, ErrDuplicate)
		}
		return fmt.Errorf("failed to create cat: %w", err)
	}
	return nil
}

// Update writes every field of an existing cat, including zero values.
func (r *GORMCatRepository) Update(ctx context.Context, cat *models.Cat) error {
	res := r.db.WithContext(ctx).Model(cat).Select("*").Updates(cat)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("cat name %s already taken: %w", cat.CatName, ErrDuplicate)
		}
		return fmt.Errorf("failed to update cat: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cat with ID %s for update: %w", cat.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a cat by its ID from the database.
func (r *GORMCatRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Cat{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete cat: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cat with ID %s for deletion: %w", id, ErrNotFound)
	}
	return nil
}
