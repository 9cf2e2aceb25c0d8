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

type mongoImageRepo struct {
	col *mongo.Collection
}

func NewMongoImageRepo(db *mongo.Database, collection string) ImageRepository {
	return &mongoImageRepo{col: db.Collection(collection)}
}

func (r *mongoImageRepo) Create(ctx context.Context, img *models.Image) error {
	now := time.Now().UTC()
	if img.UploadedAt.IsZero() {
		img.UploadedAt = now
	}
	img.UpdatedAt = now
	if img.ID.IsZero() {
		img.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, img); err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (r *mongoImageRepo) FindByUID(ctx context.Context, uid string) (*models.Image, error) {
	var img models.Image
	err := r.col.FindOne(ctx, bson.M{"imageUid": uid}).Decode(&img)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find image: %w", err)
	}
	return &img, nil
}

// Update replaces the metadata fields. The media reference, owner and upload
// time are fixed at creation.
func (r *mongoImageRepo) Update(ctx context.Context, img *models.Image) error {
	img.UpdatedAt = time.Now().UTC()
	res, err := r.col.UpdateByID(ctx, img.ID, bson.M{"$set": bson.M{
		"albumId":       img.AlbumID,
		"name":          img.Name,
		"tags":          img.Tags,
		"personsTagged": img.PersonsTagged,
		"isFavorite":    img.IsFavorite,
		"comments":      img.Comments,
		"updatedAt":     img.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrImageNotFound
	}
	return nil
}

func (r *mongoImageRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrImageNotFound
	}
	return nil
}

func imageQuery(f ImageFilter) bson.M {
	q := bson.M{"albumId": bson.M{"$in": f.AlbumIDs}}
	if !f.OwnerID.IsZero() {
		q["ownerId"] = f.OwnerID
	}
	if f.FavoriteOnly {
		q["isFavorite"] = true
	}
	return q
}

func (r *mongoImageRepo) List(ctx context.Context, f ImageFilter) ([]models.Image, error) {
	if len(f.AlbumIDs) == 0 {
		return []models.Image{}, nil
	}
	cur, err := r.col.Find(ctx, imageQuery(f), options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find images: %w", err)
	}
	images := []models.Image{}
	if err := cur.All(ctx, &images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	return images, nil
}

func (r *mongoImageRepo) CountByAlbum(ctx context.Context, albumID primitive.ObjectID) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"albumId": albumID})
	if err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return n, nil
}
