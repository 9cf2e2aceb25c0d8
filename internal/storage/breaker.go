package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/models"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type BreakerSettings struct {
	MaxFailures uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// BreakerStore trips after consecutive provider failures so a dead media
// host fails uploads fast instead of holding requests open.
type BreakerStore struct {
	next MediaStore
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerStore(next MediaStore, st BreakerSettings, logger *zap.Logger) *BreakerStore {
	maxFailures := st.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "media-store",
		MaxRequests: 1,
		Interval:    st.Interval,
		Timeout:     st.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// a caller giving up says nothing about the provider
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

func (b *BreakerStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (models.MediaRef, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Upload(ctx, key, contentType, body, size)
	})
	if err != nil {
		return models.MediaRef{}, err
	}
	return res.(models.MediaRef), nil
}

func (b *BreakerStore) Delete(ctx context.Context, handle string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, handle)
	})
	return err
}

func (b *BreakerStore) PresignURL(ctx context.Context, handle string, ttl time.Duration) (string, error) {
	p, ok := b.next.(Presigner)
	if !ok {
		return "", ErrPresignUnsupported
	}
	return p.PresignURL(ctx, handle, ttl)
}

func (b *BreakerStore) Ping(ctx context.Context) error {
	if p, ok := b.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (b *BreakerStore) State() gobreaker.State { return b.cb.State() }
