package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/models"
)

var ErrObjectNotFound = errors.New("object not found")

// MediaStore is the remote home of uploaded image bytes. Upload returns a
// durable URL and the handle Delete takes.
type MediaStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (models.MediaRef, error)
	Delete(ctx context.Context, handle string) error
}

// Presigner is implemented by stores that can mint time-limited read URLs.
type Presigner interface {
	PresignURL(ctx context.Context, handle string, ttl time.Duration) (string, error)
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
