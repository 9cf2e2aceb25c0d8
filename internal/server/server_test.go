package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pranjalb21/kaviosPix/internal/apperr"
	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/cache"
	"github.com/pranjalb21/kaviosPix/internal/config"
	"github.com/pranjalb21/kaviosPix/internal/events"
	"github.com/pranjalb21/kaviosPix/internal/handlers"
	"github.com/pranjalb21/kaviosPix/internal/metrics"
	"github.com/pranjalb21/kaviosPix/internal/middleware"
	"github.com/pranjalb21/kaviosPix/internal/repository"
	"github.com/pranjalb21/kaviosPix/internal/repository/memory"
	"github.com/pranjalb21/kaviosPix/internal/routes"
	"github.com/pranjalb21/kaviosPix/internal/server"
	"github.com/pranjalb21/kaviosPix/internal/services"
	"github.com/pranjalb21/kaviosPix/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR fake body")

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Errors  []string        `json:"errors"`
}

type testAPI struct {
	t     *testing.T
	app   *fiber.App
	media *storage.MemoryStore
}

func newTestAPI(t *testing.T, ready map[string]server.ReadyCheck) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	users, albums, images := memory.NewUserRepo(), memory.NewAlbumRepo(), memory.NewImageRepo()
	store := cache.NewMemoryStore()
	media := storage.NewMemoryStore("")

	sessions, err := auth.NewSessionManager("test-secret", 24*time.Hour, auth.NewCacheRevocations(store))
	require.NoError(t, err)
	catalog := repository.NewCatalog(users, albums)
	userSvc := services.NewUserService(users, auth.NewBcryptHasher(bcrypt.MinCost), sessions, logger)
	albumSvc := services.NewAlbumService(albums, images, users, catalog, logger)
	imageSvc := services.NewImageService(services.ImageDeps{
		Images: images, Albums: albums, Users: users, Catalog: catalog,
		Media: media, Events: &events.Recorder{}, Cache: store, Logger: logger,
	}, services.ImageOptions{MaxUploadBytes: 1 << 20, CompensationTimeout: time.Second, RetryInterval: time.Millisecond})

	cookie := handlers.CookieOptions{Name: "authToken", Secure: true, MaxAge: 24 * time.Hour}
	app := server.New(server.Options{
		Config: &config.Config{App: config.AppConf{Name: "kaviospix-test", BodyLimitMB: 4, CORSOrigins: "*"}},
		Handlers: routes.Handlers{
			Users:  handlers.NewUserHandler(userSvc, cookie),
			Albums: handlers.NewAlbumHandler(albumSvc),
			Images: handlers.NewImageHandler(imageSvc),
		},
		Auth:    middleware.NewAuthenticator(sessions, userSvc, cookie.Name),
		Metrics: metrics.New(),
		Ready:   ready,
		Logger:  logger,
	})
	return &testAPI{t: t, app: app, media: media}
}

func (a *testAPI) do(req *http.Request, token string) (*http.Response, envelope) {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	var env envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func (a *testAPI) json(method, path, token string, body interface{}) (*http.Response, envelope) {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, token)
}

func (a *testAPI) upload(token string, fields map[string][]string, withFile bool) (*http.Response, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(a.t, w.WriteField(k, v))
		}
	}
	if withFile {
		fw, err := w.CreateFormFile("image", "sunset.png")
		require.NoError(a.t, err)
		_, err = fw.Write(pngBytes)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.do(req, token)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type session struct {
	Email   string `json:"email"`
	UserUID string `json:"userUid"`
	Token   string `json:"token"`
}

func (a *testAPI) signup(email string) session {
	a.t.Helper()
	resp, env := a.json(http.MethodPost, "/api/v1/users/signup", "", map[string]string{"email": email, "password": "secret123"})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode, env.Error)
	return decode[session](a.t, env)
}

func TestSignupAndLogin(t *testing.T) {
	api := newTestAPI(t, nil)

	resp, env := api.json(http.MethodPost, "/api/v1/users/signup", "", map[string]string{"email": "A@b.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	s := decode[session](t, env)
	assert.Equal(t, "a@b.com", s.Email)
	assert.NotEmpty(t, s.UserUID)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "authToken=")
	assert.Contains(t, strings.ToLower(resp.Header.Get("Set-Cookie")), "httponly")

	resp, env = api.json(http.MethodPost, "/api/v1/users/signup", "", map[string]string{"email": "a@B.com", "password": "other123"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, env.Error)

	resp, env = api.json(http.MethodPost, "/api/v1/users/signup", "", map[string]string{"email": "bad", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, env.Errors, 2)

	resp, _ = api.json(http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "nobody@b.com", "password": "secret123"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = api.json(http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "a@b.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = api.json(http.MethodPost, "/api/v1/users/login", "", map[string]string{"email": "a@b.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, s.UserUID, decode[session](t, env).UserUID)
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t, nil)

	resp, env := api.json(http.MethodGet, "/api/v1/images", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, env.Error)

	resp, _ = api.json(http.MethodGet, "/api/v1/images", "not-a-token", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	api := newTestAPI(t, nil)
	s := api.signup("a@b.com")

	resp, _ := api.json(http.MethodGet, "/api/v1/users/me", s.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = api.json(http.MethodPost, "/api/v1/users/logout", s.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = api.json(http.MethodGet, "/api/v1/users/me", s.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestImageLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)
	owner := api.signup("owner@x.com")
	stranger := api.signup("stranger@x.com")

	resp, env := api.json(http.MethodPost, "/api/v1/albums", owner.Token, map[string]string{"name": "Trip"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	album := decode[struct {
		AlbumUID string `json:"albumUid"`
	}](t, env)

	resp, env = api.upload(owner.Token, map[string][]string{"albumId": {album.AlbumUID}}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please upload an image.", env.Error)
	assert.Equal(t, 0, api.media.UploadCalls())

	resp, env = api.upload(owner.Token, map[string][]string{
		"albumId":    {album.AlbumUID},
		"tags[]":     {"Cat", "DOG"},
		"isFavorite": {"false"},
	}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	type imageBody struct {
		ImageUID   string   `json:"imageUid"`
		Name       string   `json:"name"`
		Tags       []string `json:"tags"`
		IsFavorite bool     `json:"isFavorite"`
		ImageInfo  struct {
			ImageURL string `json:"imageUrl"`
			PublicID string `json:"publicId"`
		} `json:"imageInfo"`
	}
	img := decode[imageBody](t, env)
	assert.Equal(t, []string{"cat", "dog"}, img.Tags)
	assert.Equal(t, "sunset.png", img.Name)
	assert.True(t, api.media.Has(img.ImageInfo.PublicID))

	resp, _ = api.json(http.MethodGet, "/api/v1/images/"+img.ImageUID, stranger.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = api.json(http.MethodPatch, "/api/v1/images/"+img.ImageUID, owner.Token, map[string]bool{"isFavorite": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	assert.True(t, decode[imageBody](t, env).IsFavorite)
	assert.Equal(t, []string{"cat", "dog"}, decode[imageBody](t, env).Tags)

	resp, env = api.json(http.MethodGet, "/api/v1/images/favorites", owner.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]imageBody](t, env), 1)

	resp, env = api.json(http.MethodGet, "/api/v1/images/"+img.ImageUID+"/url", owner.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decode[struct {
		URL string `json:"url"`
	}](t, env).URL, img.ImageInfo.PublicID)

	resp, env = api.json(http.MethodDelete, "/api/v1/albums/"+album.AlbumUID, owner.Token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, env = api.json(http.MethodDelete, "/api/v1/images/"+img.ImageUID, owner.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, img.ImageUID, decode[imageBody](t, env).ImageUID)
	assert.False(t, api.media.Has(img.ImageInfo.PublicID))

	resp, _ = api.json(http.MethodGet, "/api/v1/images/"+img.ImageUID, owner.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadFailureHidesProviderDetail(t *testing.T) {
	api := newTestAPI(t, nil)
	owner := api.signup("owner@x.com")
	resp, env := api.json(http.MethodPost, "/api/v1/albums", owner.Token, map[string]string{"name": "Trip"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	album := decode[struct {
		AlbumUID string `json:"albumUid"`
	}](t, env)

	api.media.UploadErr = errors.New("secret provider detail")
	resp, env = api.upload(owner.Token, map[string][]string{"albumId": {album.AlbumUID}}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Failed to upload image.", env.Error)
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: server.ErrorHandler(zap.NewNop())})
	app.Get("/internal", func(c *fiber.Ctx) error { return errors.New("db exploded") })
	app.Get("/validation", func(c *fiber.Ctx) error { return apperr.NewValidation("a is required.", "b is invalid.") })
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded") })
	app.Get("/persist", func(c *fiber.Ctx) error {
		return apperr.Wrap(apperr.ErrPersistFailed, "Failed to save image.", errors.New("write timeout"))
	})

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/internal", 500, `{"error":"Internal Server Error"}`},
		{"/validation", 400, `{"errors":["a is required.","b is invalid."]}`},
		{"/fiber", 429, `{"error":"rate limit exceeded"}`},
		{"/persist", 400, `{"error":"Failed to save image."}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.JSONEq(t, tt.want, string(body))
		})
	}
}

func TestProbes(t *testing.T) {
	api := newTestAPI(t, map[string]server.ReadyCheck{
		"mongo": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	resp, _ := api.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = api.do(httptest.NewRequest(http.MethodGet, "/readyz", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = api.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
