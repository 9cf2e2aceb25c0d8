// Package memory holds map-backed repositories used for local runs without
// MongoDB and for tests. They are safe for concurrent use and hand out
// copies, so callers cannot alias stored records.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/models"
	"github.com/pranjalb21/kaviosPix/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepo struct {
	mu    sync.RWMutex
	byID  map[primitive.ObjectID]models.User
	order []primitive.ObjectID
}

var _ repository.UserRepository = (*UserRepo)(nil)

func NewUserRepo() *UserRepo {
	return &UserRepo{byID: make(map[primitive.ObjectID]models.User)}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = *u
	r.order = append(r.order, u.ID)
	return nil
}

func (r *UserRepo) first(ctx context.Context, match func(models.User) bool) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if u := r.byID[id]; match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *UserRepo) FindByUID(ctx context.Context, uid string) (*models.User, error) {
	return r.first(ctx, func(u models.User) bool { return u.UserUID == uid })
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, func(u models.User) bool { return u.Email == email })
}

func (r *UserRepo) filter(ctx context.Context, match func(models.User) bool) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.User{}
	for _, id := range r.order {
		if u := r.byID[id]; match(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *UserRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	return r.filter(ctx, func(u models.User) bool { return slices.Contains(ids, u.ID) })
}

func (r *UserRepo) FindByUIDs(ctx context.Context, uids []string) ([]models.User, error) {
	return r.filter(ctx, func(u models.User) bool { return slices.Contains(uids, u.UserUID) })
}

func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	return r.filter(ctx, func(models.User) bool { return true })
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	r.byID[id] = u
	return nil
}
