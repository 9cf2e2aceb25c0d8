package services_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/apperr"
	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/cache"
	"github.com/pranjalb21/kaviosPix/internal/events"
	"github.com/pranjalb21/kaviosPix/internal/models"
	"github.com/pranjalb21/kaviosPix/internal/repository"
	"github.com/pranjalb21/kaviosPix/internal/repository/memory"
	"github.com/pranjalb21/kaviosPix/internal/services"
	"github.com/pranjalb21/kaviosPix/internal/storage"
	"github.com/pranjalb21/kaviosPix/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	users    *memory.UserRepo
	albums   *memory.AlbumRepo
	imageDB  *memory.ImageRepo
	media    *storage.MemoryStore
	recorder *events.Recorder
	states   []services.State

	userSvc  *services.UserService
	albumSvc *services.AlbumService
	imageSvc *services.ImageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    memory.NewUserRepo(),
		albums:   memory.NewAlbumRepo(),
		imageDB:  memory.NewImageRepo(),
		media:    storage.NewMemoryStore(""),
		recorder: &events.Recorder{},
	}
	store := cache.NewMemoryStore()
	sessions, err := auth.NewSessionManager("test-secret", time.Hour, auth.NewCacheRevocations(store))
	require.NoError(t, err)

	catalog := repository.NewCatalog(f.users, f.albums)
	f.userSvc = services.NewUserService(f.users, auth.NewBcryptHasher(bcrypt.MinCost), sessions, zap.NewNop())
	f.albumSvc = services.NewAlbumService(f.albums, f.imageDB, f.users, catalog, zap.NewNop())
	f.imageSvc = services.NewImageService(services.ImageDeps{
		Images:  f.imageDB,
		Albums:  f.albums,
		Users:   f.users,
		Catalog: catalog,
		Media:   f.media,
		Events:  f.recorder,
		Cache:   store,
	}, services.ImageOptions{
		MaxUploadBytes:      1 << 20,
		CompensationTimeout: time.Second,
		DeleteRetries:       2,
		RetryInterval:       time.Millisecond,
		Observer:            func(s services.State) { f.states = append(f.states, s) },
	})
	return f
}

func (f *fixture) signup(t *testing.T, email string) auth.Identity {
	t.Helper()
	res, err := f.userSvc.Signup(context.Background(), validation.Credentials{Email: email, Password: "secret123"})
	require.NoError(t, err)
	return auth.Identity{ID: res.User.ID, UserUID: res.User.UserUID, Email: res.User.Email}
}

func (f *fixture) album(t *testing.T, owner auth.Identity, name string) *models.AlbumView {
	t.Helper()
	a, err := f.albumSvc.Create(context.Background(), owner, validation.AlbumInput{Name: name})
	require.NoError(t, err)
	return a
}

func pngUpload() *services.Upload {
	body := []byte("\x89PNG fake image bytes")
	return &services.Upload{Filename: "beach day.png", ContentType: "image/png", Size: int64(len(body)), Content: bytes.NewReader(body)}
}

func (f *fixture) upload(t *testing.T, id auth.Identity, albumUID string) *models.ImageView {
	t.Helper()
	v, err := f.imageSvc.Create(context.Background(), id, services.CreateImageInput{
		File:     pngUpload(),
		Metadata: validation.ImageMetadata{AlbumID: albumUID},
	})
	require.NoError(t, err)
	return v
}

func TestSignupRejectsDuplicateEmailCaseInsensitively(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.com")

	_, err := f.userSvc.Signup(context.Background(), validation.Credentials{Email: "A@B.com", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, 409, apperr.Status(err))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.com")
	ctx := context.Background()

	res, err := f.userSvc.Login(ctx, validation.Credentials{Email: " A@b.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Session.Token)

	_, err = f.userSvc.Login(ctx, validation.Credentials{Email: "a@b.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = f.userSvc.Login(ctx, validation.Credentials{Email: "nobody@b.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	id := f.signup(t, "a@b.com")
	ctx := context.Background()

	err := f.userSvc.ChangePassword(ctx, id, validation.PasswordChange{Current: "bad-current", New: "newsecret"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	require.NoError(t, f.userSvc.ChangePassword(ctx, id, validation.PasswordChange{Current: "secret123", New: "newsecret"}))
	_, err = f.userSvc.Login(ctx, validation.Credentials{Email: "a@b.com", Password: "newsecret"})
	assert.NoError(t, err)
}

func TestListUsersEmpty(t *testing.T) {
	f := newFixture(t)
	_, err := f.userSvc.List(context.Background())
	assert.ErrorIs(t, err, services.ErrNoUsers)
}

func TestAlbumSharing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner@x.com")
	friend := f.signup(t, "friend@x.com")
	a := f.album(t, owner, "Trip")

	_, err := f.albumSvc.Get(ctx, friend, a.AlbumUID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	shared, err := f.albumSvc.Share(ctx, owner, a.AlbumUID, validation.ShareInput{Users: []string{friend.UserUID, owner.UserUID}})
	require.NoError(t, err)
	require.Len(t, shared.SharedUsers, 1)
	assert.Equal(t, "friend@x.com", shared.SharedUsers[0].Email)

	_, err = f.albumSvc.Get(ctx, friend, a.AlbumUID)
	assert.NoError(t, err)

	_, err = f.albumSvc.Share(ctx, friend, a.AlbumUID, validation.ShareInput{Users: []string{owner.UserUID}})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.albumSvc.Share(ctx, owner, a.AlbumUID, validation.ShareInput{Users: []string{"1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"}})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = f.albumSvc.Unshare(ctx, owner, a.AlbumUID, friend.UserUID)
	require.NoError(t, err)
	_, err = f.albumSvc.Unshare(ctx, owner, a.AlbumUID, friend.UserUID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteAlbumRefusedWhileNotEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner@x.com")
	a := f.album(t, owner, "Trip")
	img := f.upload(t, owner, a.AlbumUID)

	_, err := f.albumSvc.Delete(ctx, owner, a.AlbumUID)
	assert.ErrorIs(t, err, services.ErrAlbumNotEmpty)

	_, err = f.imageSvc.Delete(ctx, owner, img.ImageUID)
	require.NoError(t, err)
	_, err = f.albumSvc.Delete(ctx, owner, a.AlbumUID)
	require.NoError(t, err)
	_, err = f.albumSvc.Get(ctx, owner, a.AlbumUID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateImage(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "owner@x.com")
	friend := f.signup(t, "friend@x.com")
	a := f.album(t, owner, "Trip")

	v, err := f.imageSvc.Create(context.Background(), owner, services.CreateImageInput{
		File: pngUpload(),
		Metadata: validation.ImageMetadata{
			AlbumID:       a.AlbumUID,
			Tags:          []string{"Cat", "DOG", "cat"},
			PersonsTagged: []string{friend.UserUID},
			IsFavorite:    "true",
			Comments:      []string{" nice "},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "dog"}, v.Tags)
	assert.Equal(t, "beach day.png", v.Name)
	assert.True(t, v.IsFavorite)
	assert.Equal(t, []string{"nice"}, v.Comments)
	assert.Equal(t, "Trip", v.Album.Name)
	assert.Equal(t, owner.UserUID, v.Owner.UserUID)
	require.Len(t, v.PersonsTagged, 1)
	assert.Equal(t, friend.UserUID, v.PersonsTagged[0].UserUID)
	assert.False(t, v.UploadedAt.IsZero())

	assert.True(t, f.media.Has(v.ImageInfo.PublicID))
	assert.Contains(t, v.ImageInfo.PublicID, "imageAlbum/"+owner.UserUID+"/")
	assert.Equal(t, []services.State{services.StateUploading, services.StateValidating, services.StatePersisting, services.StateDone}, f.states)
	assert.Equal(t, []string{events.ImageCreated}, f.recorder.Types())
}

func TestCreateImageRejectsBadFileBeforeUpload(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "owner@x.com")
	a := f.album(t, owner, "Trip")

	cases := []struct {
		name string
		file *services.Upload
	}{
		{"missing", nil},
		{"not an image", &services.Upload{Filename: "a.txt", ContentType: "text/plain", Size: 3, Content: bytes.NewReader([]byte("abc"))}},
		{"too large", &services.Upload{Filename: "a.png", ContentType: "image/png", Size: 2 << 20, Content: bytes.NewReader(nil)}},
		{"empty", &services.Upload{Filename: "a.png", ContentType: "image/png", Size: 0, Content: bytes.NewReader(nil)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.imageSvc.Create(context.Background(), owner, services.CreateImageInput{
				File:     tc.file,
				Metadata: validation.ImageMetadata{AlbumID: a.AlbumUID},
			})
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, f.media.UploadCalls())
}

func TestCreateImageUploadFailure(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "owner@x.com")
	a := f.album(t, owner, "Trip")
	f.media.UploadErr = errors.New("provider down")

	_, err := f.imageSvc.Create(context.Background(), owner, services.CreateImageInput{
		File:     pngUpload(),
		Metadata: validation.ImageMetadata{AlbumID: a.AlbumUID},
	})
	require.ErrorIs(t, err, apperr.ErrUploadFailed)
	assert.Equal(t, "Failed to upload image.", apperr.PublicMessage(err))
	assert.Equal(t, 0, f.imageDB.Len())
	assert.Equal(t, 0, f.media.TotalDeleteCalls())
	assert.Equal(t, []services.State{services.StateUploading, services.StateFailed}, f.states)
}

func TestCreateImageCompensatesOnRejectedMetadata(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "owner@x.com")
	stranger := f.signup(t, "stranger@x.com")
	a := f.album(t, owner, "Trip")

	cases := []struct {
		name  string
		actor auth.Identity
		meta  validation.ImageMetadata
		want  error
	}{
		{"invalid metadata", owner, validation.ImageMetadata{AlbumID: "not-a-uuid"}, apperr.ErrValidationFailed},
		{"unknown album", owner, validation.ImageMetadata{AlbumID: "1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"}, apperr.ErrNotFound},
		{"no album access", stranger, validation.ImageMetadata{AlbumID: a.AlbumUID}, apperr.ErrForbidden},
		{"unknown tagged person", owner, validation.ImageMetadata{AlbumID: a.AlbumUID, PersonsTagged: []string{"1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"}}, apperr.ErrValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := f.media.TotalDeleteCalls()
			_, err := f.imageSvc.Create(context.Background(), tc.actor, services.CreateImageInput{File: pngUpload(), Metadata: tc.meta})
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before+1, f.media.TotalDeleteCalls())
		})
	}
	assert.Equal(t, 0, f.media.Len())
	assert.Equal(t, 0, f.imageDB.Len())
}

func TestCreateImagePersistFailureDeletesUploadOnce(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "owner@x.com")
	a := f.album(t, owner, "Trip")
	f.imageDB.FailCreate = errors.New("write concern timeout")

	var key string
	f.media.OnUpload = func(k string) { key = k }

	_, err := f.imageSvc.Create(context.Background(), owner, services.CreateImageInput{
		File:     pngUpload(),
		Metadata: validation.ImageMetadata{AlbumID: a.AlbumUID},
	})
	require.ErrorIs(t, err, apperr.ErrPersistFailed)
	assert.Equal(t, 400, apperr.Status(err))
	assert.Equal(t, "Failed to save image.", apperr.PublicMessage(err))
	assert.Equal(t, 1, f.media.DeleteCalls(key))
	assert.False(t, f.media.Has(key))
	assert.Equal(t, []services.State{
		services.StateUploading, services.StateValidating, services.StatePersisting,
		services.StatePersistFailed, services.StateCompensateDelete, services.StateFailed,
	}, f.states)
}

func TestCreateImageCompensationSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "owner@x.com")
	a := f.album(t, owner, "Trip")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var key string
	f.media.OnUpload = func(k string) {
		key = k
		cancel()
	}

	_, err := f.imageSvc.Create(ctx, owner, services.CreateImageInput{
		File:     pngUpload(),
		Metadata: validation.ImageMetadata{AlbumID: a.AlbumUID},
	})
	require.Error(t, err)
	assert.Equal(t, 0, f.imageDB.Len())
	assert.Equal(t, 1, f.media.DeleteCalls(key))
	assert.False(t, f.media.Has(key))
}

func TestCreateImageFailedCompensationReportsOrphan(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "owner@x.com")
	a := f.album(t, owner, "Trip")
	f.imageDB.FailCreate = errors.New("boom")
	f.media.DeleteErr = errors.New("provider down")

	_, err := f.imageSvc.Create(context.Background(), owner, services.CreateImageInput{
		File:     pngUpload(),
		Metadata: validation.ImageMetadata{AlbumID: a.AlbumUID},
	})
	require.ErrorIs(t, err, apperr.ErrPersistFailed)
	// one attempt plus two retries
	assert.Equal(t, 3, f.media.TotalDeleteCalls())
	assert.Equal(t, []string{events.MediaOrphaned}, f.recorder.Types())
}

func TestSharedUserCanAddImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner@x.com")
	friend := f.signup(t, "friend@x.com")
	a := f.album(t, owner, "Trip")
	_, err := f.albumSvc.Share(ctx, owner, a.AlbumUID, validation.ShareInput{Users: []string{friend.UserUID}})
	require.NoError(t, err)

	v := f.upload(t, friend, a.AlbumUID)
	assert.Equal(t, friend.UserUID, v.Owner.UserUID)

	shared, err := f.imageSvc.ListShared(ctx, friend)
	require.NoError(t, err)
	assert.Len(t, shared, 1)
}

func TestTaggedUserCannotSeeImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner@x.com")
	tagged := f.signup(t, "tagged@x.com")
	a := f.album(t, owner, "Trip")

	v, err := f.imageSvc.Create(ctx, owner, services.CreateImageInput{
		File:     pngUpload(),
		Metadata: validation.ImageMetadata{AlbumID: a.AlbumUID, PersonsTagged: []string{tagged.UserUID}},
	})
	require.NoError(t, err)

	_, err = f.imageSvc.Get(ctx, tagged, v.ImageUID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	list, err := f.imageSvc.List(ctx, tagged)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateImagePartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner@x.com")
	a := f.album(t, owner, "Trip")
	v, err := f.imageSvc.Create(ctx, owner, services.CreateImageInput{
		File:     pngUpload(),
		Metadata: validation.ImageMetadata{AlbumID: a.AlbumUID, Tags: []string{"sea"}},
	})
	require.NoError(t, err)
	uploads := f.media.UploadCalls()

	fav := true
	u, err := f.imageSvc.Update(ctx, owner, v.ImageUID, validation.ImagePatch{IsFavorite: &fav})
	require.NoError(t, err)
	assert.True(t, u.IsFavorite)
	assert.Equal(t, []string{"sea"}, u.Tags)
	assert.Equal(t, v.Name, u.Name)
	assert.Equal(t, v.ImageInfo, u.ImageInfo)
	assert.Equal(t, uploads, f.media.UploadCalls())

	_, err = f.imageSvc.Update(ctx, owner, v.ImageUID, validation.ImagePatch{})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = f.imageSvc.Update(ctx, owner, "missing", validation.ImagePatch{IsFavorite: &fav})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateImageMovesBetweenAlbums(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner@x.com")
	stranger := f.signup(t, "stranger@x.com")
	src := f.album(t, owner, "Trip")
	dst := f.album(t, owner, "Best of")
	foreign := f.album(t, stranger, "Mine")
	v := f.upload(t, owner, src.AlbumUID)

	moved, err := f.imageSvc.Update(ctx, owner, v.ImageUID, validation.ImagePatch{AlbumID: &dst.AlbumUID})
	require.NoError(t, err)
	assert.Equal(t, "Best of", moved.Album.Name)

	_, err = f.imageSvc.Update(ctx, owner, v.ImageUID, validation.ImagePatch{AlbumID: &foreign.AlbumUID})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	fav := true
	_, err = f.imageSvc.Update(ctx, stranger, v.ImageUID, validation.ImagePatch{IsFavorite: &fav})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestDeleteImageSurvivesRemoteFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner@x.com")
	a := f.album(t, owner, "Trip")
	v := f.upload(t, owner, a.AlbumUID)
	f.media.DeleteErr = errors.New("provider down")

	deleted, err := f.imageSvc.Delete(ctx, owner, v.ImageUID)
	require.NoError(t, err)
	assert.Equal(t, v.ImageUID, deleted.ImageUID)

	_, err = f.imageSvc.Get(ctx, owner, v.ImageUID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, f.recorder.Types(), events.MediaOrphaned)
	assert.Contains(t, f.recorder.Types(), events.ImageDeleted)
}

func TestAlbumOwnerCanDeleteContributedImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner@x.com")
	friend := f.signup(t, "friend@x.com")
	a := f.album(t, owner, "Trip")
	_, err := f.albumSvc.Share(ctx, owner, a.AlbumUID, validation.ShareInput{Users: []string{friend.UserUID}})
	require.NoError(t, err)
	v := f.upload(t, friend, a.AlbumUID)
	mine := f.upload(t, owner, a.AlbumUID)

	_, err = f.imageSvc.Delete(ctx, friend, mine.ImageUID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.imageSvc.Delete(ctx, owner, v.ImageUID)
	require.NoError(t, err)
	assert.False(t, f.media.Has(v.ImageInfo.PublicID))
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner@x.com")
	other := f.signup(t, "other@x.com")
	a := f.album(t, owner, "Trip")
	b := f.album(t, other, "Elsewhere")
	f.upload(t, owner, a.AlbumUID)
	f.upload(t, other, b.AlbumUID)

	fav := true
	second := f.upload(t, owner, a.AlbumUID)
	_, err := f.imageSvc.Update(ctx, owner, second.ImageUID, validation.ImagePatch{IsFavorite: &fav})
	require.NoError(t, err)

	all, err := f.imageSvc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	favs, err := f.imageSvc.ListFavorites(ctx, owner)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, second.ImageUID, favs[0].ImageUID)

	byOwner, err := f.imageSvc.ListByOwner(ctx, owner, other.UserUID)
	require.NoError(t, err)
	assert.Empty(t, byOwner)

	_, err = f.imageSvc.ListByOwner(ctx, owner, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.imageSvc.ListByAlbum(ctx, owner, b.AlbumUID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	inAlbum, err := f.imageSvc.ListByAlbum(ctx, owner, a.AlbumUID)
	require.NoError(t, err)
	assert.Len(t, inAlbum, 2)
}

func TestSignedURLIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "owner@x.com")
	stranger := f.signup(t, "stranger@x.com")
	a := f.album(t, owner, "Trip")
	v := f.upload(t, owner, a.AlbumUID)

	first, err := f.imageSvc.SignedURL(ctx, owner, v.ImageUID)
	require.NoError(t, err)
	assert.Contains(t, first.URL, v.ImageInfo.PublicID)
	assert.True(t, first.ExpiresAt.After(time.Now()))

	second, err := f.imageSvc.SignedURL(ctx, owner, v.ImageUID)
	require.NoError(t, err)
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, first.ExpiresAt.Unix(), second.ExpiresAt.Unix())

	_, err = f.imageSvc.SignedURL(ctx, stranger, v.ImageUID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
