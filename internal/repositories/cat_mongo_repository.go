package repositories

import (
	"context"
	"errors"
	"fmt"

	"catapi/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CatsCollection is the collection holding cat documents.
const CatsCollection = "cats"

// MongoCatRepository is a MongoDB implementation of CatRepository.
type MongoCatRepository struct {
	coll *mongo.Collection
}

// NewMongoCatRepository creates a new instance of MongoCatRepository.
func NewMongoCatRepository(db *mongo.Database) *MongoCatRepository {
	return &MongoCatRepository{
		coll: db.Collection(CatsCollection),
	}
}

// EnsureIndexes creates the unique name, owner and 2dsphere location indexes.
func (r *MongoCatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "cat_name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "owner", Value: 1}}},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create cat indexes: %w", err)
	}
	return nil
}

// GetAll retrieves all cats.
func (r *MongoCatRepository) GetAll(ctx context.Context) ([]models.Cat, error) {
	return r.find(ctx, bson.D{}, "all cats")
}

// GetByID retrieves a single cat by its ID.
func (r *MongoCatRepository) GetByID(ctx context.Context, id string) (*models.Cat, error) {
	var cat models.Cat
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&cat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("cat with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cat by ID %s: %w", id, err)
	}
	return &cat, nil
}

// GetByOwner retrieves the cats owned by ownerID.
func (r *MongoCatRepository) GetByOwner(ctx context.Context, ownerID string) ([]models.Cat, error) {
	return r.find(ctx, bson.D{{Key: "owner", Value: ownerID}}, "cats of owner "+ownerID)
}

// GetInBoundingBox retrieves cats whose location lies within the box polygon.
func (r *MongoCatRepository) GetInBoundingBox(ctx context.Context, box models.BoundingBox) ([]models.Cat, error) {
	filter := bson.D{{Key: "location", Value: bson.D{{Key: "$geoWithin", Value: bson.D{
		{Key: "$geometry", Value: bson.D{
			{Key: "type", Value: "Polygon"},
			{Key: "coordinates", Value: box.Polygon()},
		}},
	}}}}}
	return r.find(ctx, filter, "cats in bounding box")
}

// Create inserts a new cat.
func (r *MongoCatRepository) Create(ctx context.Context, cat *models.Cat) error {
	if cat.ID == "" {
		cat.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, cat); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("cat name %s already taken: %w", cat.CatName, ErrDuplicate)
		}
		return fmt.Errorf("failed to create cat: %w", err)
	}
	return nil
}

// Update replaces an existing cat document.
func (r *MongoCatRepository) Update(ctx context.Context, cat *models.Cat) error {
	res, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: cat.ID}}, cat)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("cat name %s already taken: %w", cat.CatName, ErrDuplicate)
		}
		return fmt.Errorf("failed to update cat: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("cat with ID %s for update: %w", cat.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a cat by its ID.
func (r *MongoCatRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete cat: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("cat with ID %s for deletion: %w", id, ErrNotFound)
	}
	return nil
}

func (r *MongoCatRepository) find(ctx context.Context, filter bson.D, what string) ([]models.Cat, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "cat_name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	cats := make([]models.Cat, 0)
	if err := cur.All(ctx, &cats); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", what, err)
	}
	return cats, nil
}
