package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collections struct {
	Users  string
	Albums string
	Images string
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely
// on. It is safe to run repeatedly.
func EnsureIndexes(ctx context.Context, db *mongo.Database, c Collections) error {
	plan := map[string][]mongo.IndexModel{
		c.Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userUid", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		c.Albums: {
			{Keys: bson.D{{Key: "albumUid", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "ownerId", Value: 1}}},
			{Keys: bson.D{{Key: "sharedUsers", Value: 1}}},
		},
		c.Images: {
			{Keys: bson.D{{Key: "imageUid", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "albumId", Value: 1}, {Key: "uploadedAt", Value: -1}}},
			{Keys: bson.D{{Key: "ownerId", Value: 1}}},
		},
	}
	for name, models := range plan {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
