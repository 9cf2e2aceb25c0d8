package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoAlbumRepo struct {
	col *mongo.Collection
}

func NewMongoAlbumRepo(db *mongo.Database, collection string) AlbumRepository {
	return &mongoAlbumRepo{col: db.Collection(collection)}
}

func (r *mongoAlbumRepo) Create(ctx context.Context, a *models.Album) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.SharedUsers == nil {
		a.SharedUsers = []primitive.ObjectID{}
	}
	if _, err := r.col.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert album: %w", err)
	}
	return nil
}

func (r *mongoAlbumRepo) findOne(ctx context.Context, filter bson.M) (*models.Album, error) {
	var a models.Album
	err := r.col.FindOne(ctx, filter).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAlbumNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find album: %w", err)
	}
	return &a, nil
}

func (r *mongoAlbumRepo) FindByUID(ctx context.Context, uid string) (*models.Album, error) {
	return r.findOne(ctx, bson.M{"albumUid": uid})
}

func (r *mongoAlbumRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Album, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoAlbumRepo) find(ctx context.Context, filter bson.M) ([]models.Album, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find albums: %w", err)
	}
	albums := []models.Album{}
	if err := cur.All(ctx, &albums); err != nil {
		return nil, fmt.Errorf("decode albums: %w", err)
	}
	return albums, nil
}

func (r *mongoAlbumRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Album, error) {
	if len(ids) == 0 {
		return []models.Album{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoAlbumRepo) ListVisible(ctx context.Context, userID primitive.ObjectID) ([]models.Album, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"ownerId": userID},
		bson.M{"sharedUsers": userID},
	}})
}

func (r *mongoAlbumRepo) ListSharedWith(ctx context.Context, userID primitive.ObjectID) ([]models.Album, error) {
	return r.find(ctx, bson.M{"sharedUsers": userID, "ownerId": bson.M{"$ne": userID}})
}

// Update writes the mutable fields. Owner and external id never change.
func (r *mongoAlbumRepo) Update(ctx context.Context, a *models.Album) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.col.UpdateByID(ctx, a.ID, bson.M{"$set": bson.M{
		"name":        a.Name,
		"description": a.Description,
		"sharedUsers": a.SharedUsers,
		"updatedAt":   a.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update album: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrAlbumNotFound
	}
	return nil
}

func (r *mongoAlbumRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrAlbumNotFound
	}
	return nil
}
