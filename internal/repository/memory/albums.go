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

type AlbumRepo struct {
	mu    sync.RWMutex
	byID  map[primitive.ObjectID]models.Album
	order []primitive.ObjectID
}

var _ repository.AlbumRepository = (*AlbumRepo)(nil)

func NewAlbumRepo() *AlbumRepo {
	return &AlbumRepo{byID: make(map[primitive.ObjectID]models.Album)}
}

func cloneAlbum(a models.Album) models.Album {
	a.SharedUsers = slices.Clone(a.SharedUsers)
	return a
}

func (r *AlbumRepo) Create(ctx context.Context, a *models.Album) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.SharedUsers == nil {
		a.SharedUsers = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.byID[a.ID] = cloneAlbum(*a)
	r.order = append(r.order, a.ID)
	return nil
}

func (r *AlbumRepo) filter(ctx context.Context, match func(*models.Album) bool) ([]models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Album{}
	// newest first, like the Mongo repository
	for i := len(r.order) - 1; i >= 0; i-- {
		a, ok := r.byID[r.order[i]]
		if ok && match(&a) {
			out = append(out, cloneAlbum(a))
		}
	}
	return out, nil
}

func (r *AlbumRepo) one(ctx context.Context, match func(*models.Album) bool) (*models.Album, error) {
	found, err := r.filter(ctx, match)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, repository.ErrAlbumNotFound
	}
	return &found[0], nil
}

func (r *AlbumRepo) FindByUID(ctx context.Context, uid string) (*models.Album, error) {
	return r.one(ctx, func(a *models.Album) bool { return a.AlbumUID == uid })
}

func (r *AlbumRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Album, error) {
	return r.one(ctx, func(a *models.Album) bool { return a.ID == id })
}

func (r *AlbumRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Album, error) {
	return r.filter(ctx, func(a *models.Album) bool { return slices.Contains(ids, a.ID) })
}

func (r *AlbumRepo) ListVisible(ctx context.Context, userID primitive.ObjectID) ([]models.Album, error) {
	return r.filter(ctx, func(a *models.Album) bool { return a.IsOwner(userID) || a.IsSharedWith(userID) })
}

func (r *AlbumRepo) ListSharedWith(ctx context.Context, userID primitive.ObjectID) ([]models.Album, error) {
	return r.filter(ctx, func(a *models.Album) bool { return !a.IsOwner(userID) && a.IsSharedWith(userID) })
}

func (r *AlbumRepo) Update(ctx context.Context, a *models.Album) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[a.ID]
	if !ok {
		return repository.ErrAlbumNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	cur.Name = a.Name
	cur.Description = a.Description
	cur.SharedUsers = slices.Clone(a.SharedUsers)
	cur.UpdatedAt = a.UpdatedAt
	r.byID[a.ID] = cur
	return nil
}

func (r *AlbumRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repository.ErrAlbumNotFound
	}
	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(x primitive.ObjectID) bool { return x == id })
	return nil
}
