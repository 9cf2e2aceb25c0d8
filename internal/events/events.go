package events

import (
	"context"
	"time"
)

const (
	ImageCreated  = "image.created"
	ImageUpdated  = "image.updated"
	ImageDeleted  = "image.deleted"
	MediaOrphaned = "media.orphaned"
)

// Event is a lifecycle notice for downstream consumers. Delivery is fire and
// forget.
type Event struct {
	Type       string    `json:"type"`
	ImageUID   string    `json:"imageUid,omitempty"`
	AlbumUID   string    `json:"albumUid,omitempty"`
	ActorUID   string    `json:"actorUid,omitempty"`
	MediaID    string    `json:"mediaId,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                          { return nil }
