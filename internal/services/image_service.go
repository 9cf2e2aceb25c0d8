package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pranjalb21/kaviosPix/internal/access"
	"github.com/pranjalb21/kaviosPix/internal/apperr"
	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/cache"
	"github.com/pranjalb21/kaviosPix/internal/events"
	"github.com/pranjalb21/kaviosPix/internal/metrics"
	"github.com/pranjalb21/kaviosPix/internal/models"
	"github.com/pranjalb21/kaviosPix/internal/repository"
	"github.com/pranjalb21/kaviosPix/internal/storage"
	"github.com/pranjalb21/kaviosPix/internal/utils"
	"github.com/pranjalb21/kaviosPix/internal/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is a step of the image create workflow.
type State string

const (
	StateUploading        State = "uploading"
	StateValidating       State = "validating"
	StatePersisting       State = "persisting"
	StateDone             State = "done"
	StatePersistFailed    State = "persist_failed"
	StateCompensateDelete State = "compensate_delete"
	StateFailed           State = "failed"
)

// Upload is the raw file half of a create request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type CreateImageInput struct {
	File     *Upload
	Metadata validation.ImageMetadata
}

type ImageDeps struct {
	Images  repository.ImageRepository
	Albums  repository.AlbumRepository
	Users   repository.UserRepository
	Catalog *repository.Catalog
	Media   storage.MediaStore
	Events  events.Publisher
	Cache   cache.Store
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type ImageOptions struct {
	Folder              string
	MaxUploadBytes      int64
	CompensationTimeout time.Duration
	DeleteRetries       uint64
	RetryInterval       time.Duration
	PresignTTL          time.Duration
	// Observer, when set, sees every create state transition in order.
	Observer func(State)
}

type ImageService struct {
	ImageDeps
	opts ImageOptions
}

func NewImageService(deps ImageDeps, opts ImageOptions) *ImageService {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.CompensationTimeout <= 0 {
		opts.CompensationTimeout = 10 * time.Second
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 10 * time.Minute
	}
	if opts.Folder == "" {
		opts.Folder = "imageAlbum"
	}
	return &ImageService{ImageDeps: deps, opts: opts}
}

// run tracks one create attempt through its states.
type run struct {
	s     *ImageService
	actor string
	state State
}

func (r *run) to(next State) {
	r.s.Logger.Debug("image create transition",
		zap.String("actor", r.actor),
		zap.String("from", string(r.state)),
		zap.String("to", string(next)))
	r.state = next
	if r.s.opts.Observer != nil {
		r.s.opts.Observer(next)
	}
}

func (s *ImageService) checkFile(f *Upload) error {
	if f == nil || f.Content == nil {
		return apperr.New(apperr.ErrInvalidInput, "Please upload an image.")
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(f.ContentType)), "image/") {
		return apperr.New(apperr.ErrInvalidInput, "Only image files are allowed.")
	}
	if f.Size <= 0 {
		return apperr.New(apperr.ErrInvalidInput, "Uploaded file is empty.")
	}
	if s.opts.MaxUploadBytes > 0 && f.Size > s.opts.MaxUploadBytes {
		return apperr.New(apperr.ErrInvalidInput,
			fmt.Sprintf("Image exceeds the %d MB limit.", s.opts.MaxUploadBytes>>20))
	}
	return nil
}

// Create uploads the file, validates and resolves the metadata, then writes
// the record. Any failure after the upload deletes the remote object again.
func (s *ImageService) Create(ctx context.Context, id auth.Identity, in CreateImageInput) (*models.ImageView, error) {
	if err := s.checkFile(in.File); err != nil {
		return nil, err
	}
	r := &run{s: s, actor: id.UserUID}

	r.to(StateUploading)
	key := s.objectKey(id.UserUID, in.File.Filename)
	ref, err := s.Media.Upload(ctx, key, in.File.ContentType, in.File.Content, in.File.Size)
	if err == nil && !ref.Valid() {
		err = fmt.Errorf("media store returned incomplete reference for %s", key)
		if ref.PublicID != "" {
			s.compensate(ctx, r, ref, err)
		}
	}
	if err != nil {
		if r.state != StateFailed {
			r.to(StateFailed)
		}
		s.Logger.Error("media upload failed", zap.String("key", key), zap.Error(err))
		s.Metrics.Upload("upload_failed")
		return nil, apperr.Wrap(apperr.ErrUploadFailed, "Failed to upload image.", err)
	}

	r.to(StateValidating)
	fields, album, persons, err := s.prepare(ctx, id, in.Metadata)
	if err != nil {
		s.compensate(ctx, r, ref, err)
		s.Metrics.Upload("rejected")
		return nil, err
	}

	img := &models.Image{
		ImageUID:      utils.NewID(),
		AlbumID:       album.ID,
		Name:          displayName(in.File.Filename),
		ImageInfo:     ref,
		OwnerID:       id.ID,
		Tags:          fields.Tags,
		PersonsTagged: userIDs(persons),
		IsFavorite:    fields.IsFavorite,
		Comments:      fields.Comments,
		Size:          in.File.Size,
		ContentType:   in.File.ContentType,
	}

	r.to(StatePersisting)
	if err := s.Images.Create(ctx, img); err != nil {
		r.to(StatePersistFailed)
		s.Logger.Error("persist image failed", zap.String("imageUid", img.ImageUID), zap.Error(err))
		s.compensate(ctx, r, ref, err)
		s.Metrics.Upload("persist_failed")
		return nil, apperr.Wrap(apperr.ErrPersistFailed, "Failed to save image.", err)
	}
	r.to(StateDone)
	s.Metrics.Upload("done")

	owner := &models.User{ID: id.ID, UserUID: id.UserUID, Email: id.Email}
	view := repository.BuildImageView(img, owner, album, persons)
	s.publish(ctx, events.Event{Type: events.ImageCreated, ImageUID: img.ImageUID, AlbumUID: album.AlbumUID, ActorUID: id.UserUID, MediaID: ref.PublicID})
	return &view, nil
}

// prepare validates metadata and loads the album and tagged users it names.
func (s *ImageService) prepare(ctx context.Context, id auth.Identity, meta validation.ImageMetadata) (validation.ImageFields, *models.Album, []models.User, error) {
	fields, err := validation.NewImage(meta)
	if err != nil {
		return fields, nil, nil, err
	}
	var (
		album   *models.Album
		persons []models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		album, err = s.Albums.FindByUID(gctx, fields.AlbumUID)
		return err
	})
	g.Go(func() error {
		var err error
		persons, err = lookupUsers(gctx, s.Users, "personsTagged", fields.PersonUIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return fields, nil, nil, err
	}
	if err := access.RequireAddImage(id.ID, album); err != nil {
		return fields, nil, nil, err
	}
	return fields, album, persons, nil
}

// compensate removes a just-uploaded object. It runs on a context detached
// from the request so a cancelled or timed out request still cleans up.
// Failures are logged and counted, never returned.
func (s *ImageService) compensate(ctx context.Context, r *run, ref models.MediaRef, cause error) {
	r.to(StateCompensateDelete)
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CompensationTimeout)
	defer cancel()

	if err := s.deleteMedia(cctx, ref.PublicID); err != nil {
		s.Logger.Error("compensating media delete failed",
			zap.String("mediaId", ref.PublicID),
			zap.NamedError("cause", cause),
			zap.Error(err))
		s.Metrics.Compensation("failed")
		s.Metrics.Orphaned()
		s.publish(cctx, events.Event{Type: events.MediaOrphaned, MediaID: ref.PublicID, ActorUID: r.actor, Reason: "compensation failed"})
	} else {
		s.Logger.Warn("image upload rolled back", zap.String("mediaId", ref.PublicID), zap.NamedError("cause", cause))
		s.Metrics.Compensation("ok")
	}
	r.to(StateFailed)
}

func (s *ImageService) deleteMedia(ctx context.Context, handle string) error {
	b := backoff.NewExponentialBackOff()
	if s.opts.RetryInterval > 0 {
		b.InitialInterval = s.opts.RetryInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.opts.DeleteRetries), ctx)
	return backoff.Retry(func() error {
		return s.Media.Delete(ctx, handle)
	}, policy)
}

func (s *ImageService) publish(ctx context.Context, ev events.Event) {
	ev.OccurredAt = time.Now().UTC()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.Events.Publish(pctx, ev); err != nil {
		s.Logger.Warn("publish event failed", zap.String("type", ev.Type), zap.Error(err))
	}
}

// loadWithAlbum fetches an image and the album it belongs to.
func (s *ImageService) loadWithAlbum(ctx context.Context, imageUID string) (*models.Image, *models.Album, error) {
	img, err := s.Images.FindByUID(ctx, imageUID)
	if err != nil {
		return nil, nil, err
	}
	album, err := s.Albums.FindByID(ctx, img.AlbumID)
	if err != nil {
		return nil, nil, err
	}
	return img, album, nil
}

// Update applies only the fields present in p. The remote object is never
// touched.
func (s *ImageService) Update(ctx context.Context, id auth.Identity, imageUID string, p validation.ImagePatch) (*models.ImageView, error) {
	img, album, err := s.loadWithAlbum(ctx, imageUID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireModifyImage(id.ID, img, album); err != nil {
		return nil, err
	}
	p, err = validation.UpdateImage(p)
	if err != nil {
		return nil, err
	}

	if p.AlbumID != nil && *p.AlbumID != album.AlbumUID {
		target, err := s.Albums.FindByUID(ctx, *p.AlbumID)
		if err != nil {
			return nil, err
		}
		if err := access.RequireAddImage(id.ID, target); err != nil {
			return nil, err
		}
		img.AlbumID = target.ID
	}
	if p.PersonsTagged != nil {
		persons, err := lookupUsers(ctx, s.Users, "personsTagged", *p.PersonsTagged)
		if err != nil {
			return nil, err
		}
		img.PersonsTagged = userIDs(persons)
	}
	if p.Name != nil {
		img.Name = *p.Name
	}
	if p.Tags != nil {
		img.Tags = *p.Tags
	}
	if p.IsFavorite != nil {
		img.IsFavorite = *p.IsFavorite
	}
	if p.Comments != nil {
		img.Comments = *p.Comments
	}

	if err := s.Images.Update(ctx, img); err != nil {
		return nil, err
	}
	view, err := s.Catalog.Image(ctx, img)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{Type: events.ImageUpdated, ImageUID: img.ImageUID, AlbumUID: view.Album.AlbumUID, ActorUID: id.UserUID})
	return view, nil
}

// Delete removes the record first and the remote object second. A failed
// remote delete leaves an orphan that is logged and announced, and the
// caller still sees success.
func (s *ImageService) Delete(ctx context.Context, id auth.Identity, imageUID string) (*models.ImageView, error) {
	img, album, err := s.loadWithAlbum(ctx, imageUID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireModifyImage(id.ID, img, album); err != nil {
		return nil, err
	}
	view, err := s.Catalog.Image(ctx, img)
	if err != nil {
		return nil, err
	}
	if err := s.Images.Delete(ctx, img.ID); err != nil {
		return nil, err
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CompensationTimeout)
	defer cancel()
	if err := s.deleteMedia(dctx, img.ImageInfo.PublicID); err != nil {
		s.Logger.Warn("remote media left orphaned",
			zap.String("imageUid", img.ImageUID),
			zap.String("mediaId", img.ImageInfo.PublicID),
			zap.Error(err))
		s.Metrics.Orphaned()
		s.publish(dctx, events.Event{Type: events.MediaOrphaned, ImageUID: img.ImageUID, MediaID: img.ImageInfo.PublicID, ActorUID: id.UserUID, Reason: "delete failed"})
	}
	s.publish(dctx, events.Event{Type: events.ImageDeleted, ImageUID: img.ImageUID, AlbumUID: album.AlbumUID, ActorUID: id.UserUID, MediaID: img.ImageInfo.PublicID})
	return view, nil
}

func (s *ImageService) Get(ctx context.Context, id auth.Identity, imageUID string) (*models.ImageView, error) {
	img, album, err := s.loadWithAlbum(ctx, imageUID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireViewImage(id.ID, img, album); err != nil {
		return nil, err
	}
	return s.Catalog.Image(ctx, img)
}

func albumIDs(albums []models.Album) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(albums))
	for i := range albums {
		ids[i] = albums[i].ID
	}
	return ids
}

func (s *ImageService) list(ctx context.Context, albums []models.Album, f repository.ImageFilter) ([]models.ImageView, error) {
	f.AlbumIDs = albumIDs(albums)
	imgs, err := s.Images.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.Catalog.Images(ctx, imgs)
}

// List returns every image the requester can view.
func (s *ImageService) List(ctx context.Context, id auth.Identity) ([]models.ImageView, error) {
	albums, err := s.Albums.ListVisible(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, albums, repository.ImageFilter{})
}

func (s *ImageService) ListFavorites(ctx context.Context, id auth.Identity) ([]models.ImageView, error) {
	albums, err := s.Albums.ListVisible(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, albums, repository.ImageFilter{FavoriteOnly: true})
}

// ListByOwner returns the visible images uploaded by userUID.
func (s *ImageService) ListByOwner(ctx context.Context, id auth.Identity, userUID string) ([]models.ImageView, error) {
	owner, err := s.Users.FindByUID(ctx, userUID)
	if err != nil {
		return nil, err
	}
	albums, err := s.Albums.ListVisible(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, albums, repository.ImageFilter{OwnerID: owner.ID})
}

func (s *ImageService) ListByAlbum(ctx context.Context, id auth.Identity, albumUID string) ([]models.ImageView, error) {
	album, err := s.Albums.FindByUID(ctx, albumUID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireViewAlbum(id.ID, album); err != nil {
		return nil, err
	}
	return s.list(ctx, []models.Album{*album}, repository.ImageFilter{})
}

// ListShared returns images in albums other users have shared with the
// requester.
func (s *ImageService) ListShared(ctx context.Context, id auth.Identity) ([]models.ImageView, error) {
	albums, err := s.Albums.ListSharedWith(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, albums, repository.ImageFilter{})
}

// SignedURL returns a time-limited read URL when the store can presign, and
// the stored public URL otherwise. Signed URLs are cached for half their
// lifetime.
func (s *ImageService) SignedURL(ctx context.Context, id auth.Identity, imageUID string) (*models.SignedURL, error) {
	img, album, err := s.loadWithAlbum(ctx, imageUID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireViewImage(id.ID, img, album); err != nil {
		return nil, err
	}
	p, ok := s.Media.(storage.Presigner)
	if !ok {
		return &models.SignedURL{URL: img.ImageInfo.ImageURL}, nil
	}

	cacheKey := "signed:" + img.ImageInfo.PublicID
	if s.Cache != nil {
		if v, err := s.Cache.Get(ctx, cacheKey); err == nil {
			if su, ok := decodeSigned(v); ok {
				return su, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			s.Logger.Warn("signed url cache read failed", zap.Error(err))
		}
	}

	url, err := p.PresignURL(ctx, img.ImageInfo.PublicID, s.opts.PresignTTL)
	if errors.Is(err, storage.ErrPresignUnsupported) {
		return &models.SignedURL{URL: img.ImageInfo.ImageURL}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("presign image %s: %w", img.ImageUID, err)
	}
	su := &models.SignedURL{URL: url, ExpiresAt: time.Now().UTC().Add(s.opts.PresignTTL)}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, cacheKey, encodeSigned(su), s.opts.PresignTTL/2); err != nil {
			s.Logger.Warn("signed url cache write failed", zap.Error(err))
		}
	}
	return su, nil
}

func encodeSigned(su *models.SignedURL) string {
	return strconv.FormatInt(su.ExpiresAt.Unix(), 10) + "|" + su.URL
}

func decodeSigned(v string) (*models.SignedURL, bool) {
	ts, url, ok := strings.Cut(v, "|")
	if !ok {
		return nil, false
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, false
	}
	return &models.SignedURL{URL: url, ExpiresAt: time.Unix(sec, 0).UTC()}, true
}

func userIDs(users []models.User) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	return ids
}

// displayName keeps the base of the client supplied filename.
func displayName(filename string) string {
	name := strings.TrimSpace(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "image"
	}
	return name
}

// objectKey builds folder/userUid/uuid-name with a filesystem safe name.
func (s *ImageService) objectKey(userUID, filename string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, displayName(filename))
	return path.Join(s.opts.Folder, userUID, utils.NewID()+"-"+safe)
}
