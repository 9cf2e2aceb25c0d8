package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account. Email is stored trimmed and lowercased.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserUID      string             `bson:"userUid" json:"userUid"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{UserUID: u.UserUID, Email: u.Email}
}
