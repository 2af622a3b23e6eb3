package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catapi/internal/models"
	"catapi/internal/repositories"
	"catapi/internal/validation"

	"go.uber.org/zap"
)

// CatService handles business logic related to cats.
type CatService struct {
	repo      repositories.CatRepository
	users     repositories.UserRepository
	validator *validation.Validator
	events    EventPublisher
}

// NewCatService creates a new CatService.
func NewCatService(repo repositories.CatRepository, users repositories.UserRepository, v *validation.Validator, events EventPublisher) *CatService {
	return &CatService{
		repo:      repo,
		users:     users,
		validator: v,
		events:    events,
	}
}

// GetAllCats retrieves every cat with the owner as an id.
func (s *CatService) GetAllCats(ctx context.Context) ([]models.Cat, error) {
	return s.repo.GetAll(ctx)
}

// GetCatsByOwner retrieves the caller's cats with the owner populated.
func (s *CatService) GetCatsByOwner(ctx context.Context, ownerID string) ([]models.PopulatedCat, error) {
	cats, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, cats)
}

// GetCatByID retrieves a single cat with the owner populated.
func (s *CatService) GetCatByID(ctx context.Context, id string) (*models.PopulatedCat, error) {
	cat, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	populated, err := s.populate(ctx, []models.Cat{*cat})
	if err != nil {
		return nil, err
	}
	return &populated[0], nil
}

// GetCatsInArea retrieves the cats located inside box. The edges may be
// given in any order.
func (s *CatService) GetCatsInArea(ctx context.Context, box models.BoundingBox) ([]models.Cat, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("bounding box outside the globe: %w", ErrInvalidInput)
	}
	if !box.HasArea() {
		return nil, fmt.Errorf("bounding box has no area: %w", ErrInvalidInput)
	}
	return s.repo.GetInBoundingBox(ctx, box.Normalize())
}

// CreateCat stores a new cat owned by ownerID at location, using the
// already stored upload filename.
func (s *CatService) CreateCat(ctx context.Context, req models.CreateCatRequest, filename string, location models.Point, ownerID string) (*models.Cat, error) {
	if filename == "" {
		return nil, fmt.Errorf("no file uploaded: %w", ErrInvalidInput)
	}
	birthdate, err := models.ParseBirthdate(req.Birthdate)
	if err != nil {
		return nil, validation.Fail("birthdate", "date", err.Error())
	}

	cat := &models.Cat{
		CatName:   strings.TrimSpace(req.CatName),
		Weight:    req.Weight,
		Filename:  filename,
		Birthdate: birthdate,
		Location:  location,
		Owner:     ownerID,
	}
	if err := s.validator.Validate(cat).Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, cat); err != nil {
		return nil, err
	}
	zap.L().Info("cat created", zap.String("cat_id", cat.ID), zap.String("owner", ownerID))
	publish(ctx, s.events, models.EventCatCreated, cat.ID, ownerID)
	return cat, nil
}

// UpdateCat applies an owner-level patch. The caller must own the cat or be
// an admin; any other caller gets the same not-found error as a missing cat.
func (s *CatService) UpdateCat(ctx context.Context, id string, req models.UpdateCatRequest, caller *models.Identity) (*models.Cat, error) {
	if req.IsEmpty() {
		return nil, fmt.Errorf("nothing to update: %w", ErrInvalidInput)
	}
	cat, err := s.loadForCaller(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if err := applyCatPatch(cat, req); err != nil {
		return nil, err
	}
	return s.save(ctx, cat)
}

// DeleteCat removes a cat owned by the caller, or any cat for an admin.
func (s *CatService) DeleteCat(ctx context.Context, id string, caller *models.Identity) (*models.Cat, error) {
	cat, err := s.loadForCaller(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return s.remove(ctx, cat)
}

// UpdateCatAdmin applies an admin patch that may also move or reassign the cat.
func (s *CatService) UpdateCatAdmin(ctx context.Context, id string, req models.AdminUpdateCatRequest, caller *models.Identity) (*models.Cat, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if req.IsEmpty() {
		return nil, fmt.Errorf("nothing to update: %w", ErrInvalidInput)
	}

	cat, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyCatPatch(cat, req.UpdateCatRequest); err != nil {
		return nil, err
	}
	if req.Location != nil {
		cat.Location = *req.Location
	}
	if req.Owner != nil {
		if _, err := s.users.GetByID(ctx, *req.Owner); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, validation.Fail("owner", "exists", "owner must be an existing user")
			}
			return nil, err
		}
		cat.Owner = *req.Owner
	}
	return s.save(ctx, cat)
}

// DeleteCatAdmin removes any cat.
func (s *CatService) DeleteCatAdmin(ctx context.Context, id string, caller *models.Identity) (*models.Cat, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	cat, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.remove(ctx, cat)
}

// loadForCaller fetches the current cat and checks that caller may modify it.
func (s *CatService) loadForCaller(ctx context.Context, id string, caller *models.Identity) (*models.Cat, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	cat, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !cat.IsOwnedBy(caller.ID) {
		return nil, fmt.Errorf("cat with ID %s: %w", id, repositories.ErrNotFound)
	}
	return cat, nil
}

func (s *CatService) save(ctx context.Context, cat *models.Cat) (*models.Cat, error) {
	if err := s.validator.Validate(cat).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, err
	}
	zap.L().Info("cat updated", zap.String("cat_id", cat.ID))
	publish(ctx, s.events, models.EventCatUpdated, cat.ID, cat.Owner)
	return cat, nil
}

func (s *CatService) remove(ctx context.Context, cat *models.Cat) (*models.Cat, error) {
	if err := s.repo.Delete(ctx, cat.ID); err != nil {
		return nil, err
	}
	zap.L().Info("cat deleted", zap.String("cat_id", cat.ID))
	publish(ctx, s.events, models.EventCatDeleted, cat.ID, cat.Owner)
	return cat, nil
}

// populate resolves each owner id once. Owners that no longer exist are null.
func (s *CatService) populate(ctx context.Context, cats []models.Cat) ([]models.PopulatedCat, error) {
	owners := make(map[string]*models.UserOutput)
	out := make([]models.PopulatedCat, 0, len(cats))
	for i := range cats {
		owner, seen := owners[cats[i].Owner]
		if !seen {
			user, err := s.users.GetByID(ctx, cats[i].Owner)
			switch {
			case err == nil:
				o := user.Output()
				owner = &o
			case !errors.Is(err, repositories.ErrNotFound):
				return nil, err
			}
			owners[cats[i].Owner] = owner
		}
		out = append(out, cats[i].Populate(owner))
	}
	return out, nil
}

func applyCatPatch(cat *models.Cat, req models.UpdateCatRequest) error {
	if req.CatName != nil {
		cat.CatName = strings.TrimSpace(*req.CatName)
	}
	if req.Weight != nil {
		cat.Weight = *req.Weight
	}
	if req.Birthdate != nil {
		birthdate, err := models.ParseBirthdate(*req.Birthdate)
		if err != nil {
			return validation.Fail("birthdate", "date", err.Error())
		}
		cat.Birthdate = birthdate
	}
	return nil
}
