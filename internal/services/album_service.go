package services

import (
	"context"
	"fmt"

	"github.com/pranjalb21/kaviosPix/internal/access"
	"github.com/pranjalb21/kaviosPix/internal/apperr"
	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/models"
	"github.com/pranjalb21/kaviosPix/internal/repository"
	"github.com/pranjalb21/kaviosPix/internal/utils"
	"github.com/pranjalb21/kaviosPix/internal/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ErrAlbumNotEmpty = apperr.New(apperr.ErrConflict, "Album still contains images.")

type AlbumService struct {
	albums  repository.AlbumRepository
	images  repository.ImageRepository
	users   repository.UserRepository
	catalog *repository.Catalog
	log     *zap.Logger
}

func NewAlbumService(albums repository.AlbumRepository, images repository.ImageRepository, users repository.UserRepository, catalog *repository.Catalog, logger *zap.Logger) *AlbumService {
	return &AlbumService{albums: albums, images: images, users: users, catalog: catalog, log: logger}
}

func (s *AlbumService) Create(ctx context.Context, id auth.Identity, in validation.AlbumInput) (*models.AlbumView, error) {
	in, err := validation.NewAlbum(in)
	if err != nil {
		return nil, err
	}
	a := &models.Album{
		AlbumUID:    utils.NewID(),
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     id.ID,
		SharedUsers: []primitive.ObjectID{},
	}
	if err := s.albums.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("album created", zap.String("albumUid", a.AlbumUID), zap.String("owner", id.UserUID))
	return s.catalog.Album(ctx, a)
}

func (s *AlbumService) List(ctx context.Context, id auth.Identity) ([]models.AlbumView, error) {
	albums, err := s.albums.ListVisible(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	return s.catalog.Albums(ctx, albums)
}

func (s *AlbumService) Get(ctx context.Context, id auth.Identity, albumUID string) (*models.AlbumView, error) {
	a, err := s.albums.FindByUID(ctx, albumUID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireViewAlbum(id.ID, a); err != nil {
		return nil, err
	}
	return s.catalog.Album(ctx, a)
}

// owned loads an album the requester must own.
func (s *AlbumService) owned(ctx context.Context, id auth.Identity, albumUID string) (*models.Album, error) {
	a, err := s.albums.FindByUID(ctx, albumUID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireModifyAlbum(id.ID, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AlbumService) Update(ctx context.Context, id auth.Identity, albumUID string, p validation.AlbumPatch) (*models.AlbumView, error) {
	p, err := validation.UpdateAlbum(p)
	if err != nil {
		return nil, err
	}
	a, err := s.owned(ctx, id, albumUID)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if err := s.albums.Update(ctx, a); err != nil {
		return nil, err
	}
	return s.catalog.Album(ctx, a)
}

// Share grants view access to the given users. Unknown users fail the whole
// request; the owner is silently skipped.
func (s *AlbumService) Share(ctx context.Context, id auth.Identity, albumUID string, in validation.ShareInput) (*models.AlbumView, error) {
	uids, err := validation.Share(in)
	if err != nil {
		return nil, err
	}
	a, err := s.owned(ctx, id, albumUID)
	if err != nil {
		return nil, err
	}
	users, err := lookupUsers(ctx, s.users, "users", uids)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	if a.Share(ids...) > 0 {
		if err := s.albums.Update(ctx, a); err != nil {
			return nil, err
		}
	}
	return s.catalog.Album(ctx, a)
}

func (s *AlbumService) Unshare(ctx context.Context, id auth.Identity, albumUID, userUID string) (*models.AlbumView, error) {
	a, err := s.owned(ctx, id, albumUID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByUID(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if !a.Unshare(u.ID) {
		return nil, apperr.New(apperr.ErrNotFound, "User is not shared on this album.")
	}
	if err := s.albums.Update(ctx, a); err != nil {
		return nil, err
	}
	return s.catalog.Album(ctx, a)
}

// Delete removes an empty album. Albums holding images are refused so no
// image is left without its album.
func (s *AlbumService) Delete(ctx context.Context, id auth.Identity, albumUID string) (*models.AlbumView, error) {
	a, err := s.owned(ctx, id, albumUID)
	if err != nil {
		return nil, err
	}
	n, err := s.images.CountByAlbum(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrAlbumNotEmpty
	}
	view, err := s.catalog.Album(ctx, a)
	if err != nil {
		return nil, err
	}
	if err := s.albums.Delete(ctx, a.ID); err != nil {
		return nil, err
	}
	s.log.Info("album deleted", zap.String("albumUid", a.AlbumUID))
	return view, nil
}

// lookupUsers resolves external ids and reports every unknown one.
func lookupUsers(ctx context.Context, repo repository.UserRepository, field string, uids []string) ([]models.User, error) {
	if len(uids) == 0 {
		return []models.User{}, nil
	}
	users, err := repo.FindByUIDs(ctx, uids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(users))
	for _, u := range users {
		found[u.UserUID] = struct{}{}
	}
	ve := &apperr.ValidationError{}
	for _, uid := range uids {
		if _, ok := found[uid]; !ok {
			ve.Add(fmt.Sprintf("%s: user %s not found.", field, uid))
		}
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return users, nil
}
