package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the verified requester handed to every authenticated handler.
type Identity struct {
	ID        primitive.ObjectID
	UserUID   string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}
