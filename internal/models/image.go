package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaRef points at the remote object backing an image. Both fields are set
// together or the image does not exist.
type MediaRef struct {
	ImageURL string `bson:"imageUrl" json:"imageUrl"`
	PublicID string `bson:"publicId" json:"publicId"`
}

func (m MediaRef) Valid() bool { return m.ImageURL != "" && m.PublicID != "" }

type Image struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	ImageUID      string               `bson:"imageUid" json:"imageUid"`
	AlbumID       primitive.ObjectID   `bson:"albumId" json:"-"`
	Name          string               `bson:"name" json:"name"`
	ImageInfo     MediaRef             `bson:"imageInfo" json:"imageInfo"`
	OwnerID       primitive.ObjectID   `bson:"ownerId" json:"-"`
	Tags          []string             `bson:"tags" json:"tags"`
	PersonsTagged []primitive.ObjectID `bson:"personsTagged" json:"-"`
	IsFavorite    bool                 `bson:"isFavorite" json:"isFavorite"`
	Comments      []string             `bson:"comments" json:"comments"`
	Size          int64                `bson:"size" json:"size"`
	ContentType   string               `bson:"contentType" json:"contentType"`
	UploadedAt    time.Time            `bson:"uploadedAt" json:"uploadedAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}
