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

type ImageRepo struct {
	mu    sync.RWMutex
	byID  map[primitive.ObjectID]models.Image
	order []primitive.ObjectID

	// FailCreate, when set, is returned by Create. Tests use it to force the
	// persist step to fail.
	FailCreate error
}

var _ repository.ImageRepository = (*ImageRepo)(nil)

func NewImageRepo() *ImageRepo {
	return &ImageRepo{byID: make(map[primitive.ObjectID]models.Image)}
}

func cloneImage(img models.Image) models.Image {
	img.Tags = slices.Clone(img.Tags)
	img.PersonsTagged = slices.Clone(img.PersonsTagged)
	img.Comments = slices.Clone(img.Comments)
	return img
}

func (r *ImageRepo) Create(ctx context.Context, img *models.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return r.FailCreate
	}
	if img.ID.IsZero() {
		img.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if img.UploadedAt.IsZero() {
		img.UploadedAt = now
	}
	img.UpdatedAt = now
	r.byID[img.ID] = cloneImage(*img)
	r.order = append(r.order, img.ID)
	return nil
}

func (r *ImageRepo) FindByUID(ctx context.Context, uid string) (*models.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, img := range r.byID {
		if img.ImageUID == uid {
			c := cloneImage(img)
			return &c, nil
		}
	}
	return nil, repository.ErrImageNotFound
}

func (r *ImageRepo) Update(ctx context.Context, img *models.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[img.ID]
	if !ok {
		return repository.ErrImageNotFound
	}
	img.UpdatedAt = time.Now().UTC()
	cur.AlbumID = img.AlbumID
	cur.Name = img.Name
	cur.Tags = slices.Clone(img.Tags)
	cur.PersonsTagged = slices.Clone(img.PersonsTagged)
	cur.IsFavorite = img.IsFavorite
	cur.Comments = slices.Clone(img.Comments)
	cur.UpdatedAt = img.UpdatedAt
	r.byID[img.ID] = cur
	return nil
}

func (r *ImageRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repository.ErrImageNotFound
	}
	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(x primitive.ObjectID) bool { return x == id })
	return nil
}

func (r *ImageRepo) List(ctx context.Context, f repository.ImageFilter) ([]models.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Image{}
	for i := len(r.order) - 1; i >= 0; i-- {
		img := r.byID[r.order[i]]
		if !slices.Contains(f.AlbumIDs, img.AlbumID) {
			continue
		}
		if !f.OwnerID.IsZero() && img.OwnerID != f.OwnerID {
			continue
		}
		if f.FavoriteOnly && !img.IsFavorite {
			continue
		}
		out = append(out, cloneImage(img))
	}
	return out, nil
}

func (r *ImageRepo) CountByAlbum(ctx context.Context, albumID primitive.ObjectID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, img := range r.byID {
		if img.AlbumID == albumID {
			n++
		}
	}
	return n, nil
}

// Len reports how many images are stored.
func (r *ImageRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
