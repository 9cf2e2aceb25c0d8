package repository

import (
	"context"

	"github.com/pranjalb21/kaviosPix/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// Catalog joins stored records with the users and albums they reference.
// It only reads; stored records are never touched.
type Catalog struct {
	users  UserRepository
	albums AlbumRepository
}

func NewCatalog(users UserRepository, albums AlbumRepository) *Catalog {
	return &Catalog{users: users, albums: albums}
}

// Image hydrates one image. Owner, album and tagged persons are loaded
// concurrently.
func (c *Catalog) Image(ctx context.Context, img *models.Image) (*models.ImageView, error) {
	var (
		owner   []models.User
		album   *models.Album
		persons []models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owner, err = c.users.FindByIDs(gctx, []primitive.ObjectID{img.OwnerID})
		return err
	})
	g.Go(func() error {
		var err error
		album, err = c.albums.FindByID(gctx, img.AlbumID)
		return err
	})
	g.Go(func() error {
		var err error
		persons, err = c.users.FindByIDs(gctx, img.PersonsTagged)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var o *models.User
	if len(owner) > 0 {
		o = &owner[0]
	}
	v := BuildImageView(img, o, album, persons)
	return &v, nil
}

// Images hydrates a listing with two batched reads.
func (c *Catalog) Images(ctx context.Context, imgs []models.Image) ([]models.ImageView, error) {
	out := make([]models.ImageView, 0, len(imgs))
	if len(imgs) == 0 {
		return out, nil
	}
	userIDs := newIDSet()
	albumIDs := newIDSet()
	for i := range imgs {
		userIDs.add(imgs[i].OwnerID)
		userIDs.add(imgs[i].PersonsTagged...)
		albumIDs.add(imgs[i].AlbumID)
	}

	var (
		users  []models.User
		albums []models.Album
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = c.users.FindByIDs(gctx, userIDs.list)
		return err
	})
	g.Go(func() error {
		var err error
		albums, err = c.albums.FindByIDs(gctx, albumIDs.list)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	userByID := make(map[primitive.ObjectID]*models.User, len(users))
	for i := range users {
		userByID[users[i].ID] = &users[i]
	}
	albumByID := make(map[primitive.ObjectID]*models.Album, len(albums))
	for i := range albums {
		albumByID[albums[i].ID] = &albums[i]
	}
	for i := range imgs {
		img := &imgs[i]
		persons := make([]models.User, 0, len(img.PersonsTagged))
		for _, id := range img.PersonsTagged {
			if u, ok := userByID[id]; ok {
				persons = append(persons, *u)
			}
		}
		out = append(out, BuildImageView(img, userByID[img.OwnerID], albumByID[img.AlbumID], persons))
	}
	return out, nil
}

// Album hydrates one album.
func (c *Catalog) Album(ctx context.Context, a *models.Album) (*models.AlbumView, error) {
	views, err := c.Albums(ctx, []models.Album{*a})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (c *Catalog) Albums(ctx context.Context, albums []models.Album) ([]models.AlbumView, error) {
	out := make([]models.AlbumView, 0, len(albums))
	if len(albums) == 0 {
		return out, nil
	}
	ids := newIDSet()
	for i := range albums {
		ids.add(albums[i].OwnerID)
		ids.add(albums[i].SharedUsers...)
	}
	users, err := c.users.FindByIDs(ctx, ids.list)
	if err != nil {
		return nil, err
	}
	userByID := make(map[primitive.ObjectID]models.UserSummary, len(users))
	for i := range users {
		userByID[users[i].ID] = users[i].Summary()
	}
	for i := range albums {
		a := &albums[i]
		shared := make([]models.UserSummary, 0, len(a.SharedUsers))
		for _, id := range a.SharedUsers {
			if u, ok := userByID[id]; ok {
				shared = append(shared, u)
			}
		}
		out = append(out, models.AlbumView{
			AlbumUID:    a.AlbumUID,
			Name:        a.Name,
			Description: a.Description,
			Owner:       userByID[a.OwnerID],
			SharedUsers: shared,
			CreatedAt:   a.CreatedAt,
			UpdatedAt:   a.UpdatedAt,
		})
	}
	return out, nil
}

// BuildImageView assembles a view from already loaded records. Nil owner or
// album leave the corresponding summary empty.
func BuildImageView(img *models.Image, owner *models.User, album *models.Album, persons []models.User) models.ImageView {
	v := models.ImageView{
		ImageUID:      img.ImageUID,
		Name:          img.Name,
		ImageInfo:     img.ImageInfo,
		Tags:          nonNil(img.Tags),
		PersonsTagged: make([]models.UserSummary, 0, len(persons)),
		IsFavorite:    img.IsFavorite,
		Comments:      nonNil(img.Comments),
		Size:          img.Size,
		ContentType:   img.ContentType,
		UploadedAt:    img.UploadedAt,
		UpdatedAt:     img.UpdatedAt,
	}
	if owner != nil {
		v.Owner = owner.Summary()
	}
	if album != nil {
		v.Album = album.Summary()
	}
	for i := range persons {
		v.PersonsTagged = append(v.PersonsTagged, persons[i].Summary())
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type idSet struct {
	seen map[primitive.ObjectID]struct{}
	list []primitive.ObjectID
}

func newIDSet() *idSet { return &idSet{seen: map[primitive.ObjectID]struct{}{}} }

func (s *idSet) add(ids ...primitive.ObjectID) {
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.list = append(s.list, id)
	}
}
