package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Album struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	AlbumUID    string               `bson:"albumUid" json:"albumUid"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	OwnerID     primitive.ObjectID   `bson:"ownerId" json:"-"`
	SharedUsers []primitive.ObjectID `bson:"sharedUsers" json:"-"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (a *Album) IsOwner(userID primitive.ObjectID) bool {
	return !userID.IsZero() && a.OwnerID == userID
}

func (a *Album) IsSharedWith(userID primitive.ObjectID) bool {
	return !userID.IsZero() && slices.Contains(a.SharedUsers, userID)
}

// Share adds users to the shared set, skipping the owner and existing members.
// It reports how many were added.
func (a *Album) Share(ids ...primitive.ObjectID) int {
	added := 0
	for _, id := range ids {
		if id.IsZero() || a.IsOwner(id) || a.IsSharedWith(id) {
			continue
		}
		a.SharedUsers = append(a.SharedUsers, id)
		added++
	}
	return added
}

func (a *Album) Unshare(id primitive.ObjectID) bool {
	i := slices.Index(a.SharedUsers, id)
	if i < 0 {
		return false
	}
	a.SharedUsers = slices.Delete(a.SharedUsers, i, i+1)
	return true
}

func (a *Album) Summary() AlbumSummary {
	return AlbumSummary{AlbumUID: a.AlbumUID, Name: a.Name, Description: a.Description}
}
