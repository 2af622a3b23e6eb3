package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"catapi/internal/models"

	"github.com/google/uuid"
)

// MemoryCatRepository is an in-memory implementation of CatRepository.
type MemoryCatRepository struct {
	cats map[string]models.Cat
	mu   sync.RWMutex
}

// NewMemoryCatRepository creates a new instance of MemoryCatRepository.
func NewMemoryCatRepository() *MemoryCatRepository {
	return &MemoryCatRepository{
		cats: make(map[string]models.Cat),
	}
}

// GetAll returns all cats ordered by name.
func (r *MemoryCatRepository) GetAll(ctx context.Context) ([]models.Cat, error) {
	return r.filter(func(models.Cat) bool { return true }), nil
}

// GetByID returns a cat by its ID.
func (r *MemoryCatRepository) GetByID(ctx context.Context, id string) (*models.Cat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cat, ok := r.cats[id]
	if !ok {
		return nil, fmt.Errorf("cat with ID %s: %w", id, ErrNotFound)
	}
	return &cat, nil
}

// GetByOwner returns the cats owned by ownerID.
func (r *MemoryCatRepository) GetByOwner(ctx context.Context, ownerID string) ([]models.Cat, error) {
	return r.filter(func(c models.Cat) bool { return c.Owner == ownerID }), nil
}

// GetInBoundingBox returns the cats located inside box.
func (r *MemoryCatRepository) GetInBoundingBox(ctx context.Context, box models.BoundingBox) ([]models.Cat, error) {
	return r.filter(func(c models.Cat) bool { return box.Contains(c.Location) }), nil
}

// Create adds a new cat.
func (r *MemoryCatRepository) Create(ctx context.Context, cat *models.Cat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cat.ID == "" {
		cat.ID = uuid.New().String()
	}
	if _, exists := r.cats[cat.ID]; exists {
		return fmt.Errorf("cat with ID %s: %w", cat.ID, ErrDuplicate)
	}
	if r.nameTaken(cat.CatName, cat.ID) {
		return fmt.Errorf("cat name %s already taken: %w", cat.CatName, ErrDuplicate)
	}
	r.cats[cat.ID] = *cat
	return nil
}

// Update replaces an existing cat.
func (r *MemoryCatRepository) Update(ctx context.Context, cat *models.Cat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cats[cat.ID]; !exists {
		return fmt.Errorf("cat with ID %s for update: %w", cat.ID, ErrNotFound)
	}
	if r.nameTaken(cat.CatName, cat.ID) {
		return fmt.Errorf("cat name %s already taken: %w", cat.CatName, ErrDuplicate)
	}
	r.cats[cat.ID] = *cat
	return nil
}

// Delete removes a cat by its ID.
func (r *MemoryCatRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cats[id]; !exists {
		return fmt.Errorf("cat with ID %s for deletion: %w", id, ErrNotFound)
	}
	delete(r.cats, id)
	return nil
}

// nameTaken must be called with the lock held.
func (r *MemoryCatRepository) nameTaken(name, exceptID string) bool {
	for id, c := range r.cats {
		if id != exceptID && c.CatName == name {
			return true
		}
	}
	return false
}

func (r *MemoryCatRepository) filter(keep func(models.Cat) bool) []models.Cat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cats := make([]models.Cat, 0, len(r.cats))
	for _, c := range r.cats {
		if keep(c) {
			cats = append(cats, c)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].CatName < cats[j].CatName })
	return cats
}
