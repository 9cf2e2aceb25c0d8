package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pranjalb21/kaviosPix/internal/apperr"
	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/cache"
	"github.com/pranjalb21/kaviosPix/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type resolverFunc func(ctx context.Context, claims *auth.Claims) (auth.Identity, error)

func (f resolverFunc) Resolve(ctx context.Context, claims *auth.Claims) (auth.Identity, error) {
	return f(ctx, claims)
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(StatusOf(c, err)).JSON(fiber.Map{"error": apperr.PublicMessage(err)})
		},
	})
}

func TestAuthenticatorWrap(t *testing.T) {
	sessions, err := auth.NewSessionManager("secret", time.Hour, auth.NewCacheRevocations(cache.NewMemoryStore()))
	require.NoError(t, err)
	userID := primitive.NewObjectID()
	a := NewAuthenticator(sessions, resolverFunc(func(_ context.Context, c *auth.Claims) (auth.Identity, error) {
		if c.UserUID != "uid-1" {
			return auth.Identity{}, apperr.New(apperr.ErrForbidden, "Invalid or expired token.")
		}
		return auth.Identity{ID: userID, UserUID: c.UserUID, Email: c.Email}, nil
	}), "authToken")

	app := newTestApp()
	app.Get("/me", a.Wrap(func(c *fiber.Ctx, id auth.Identity) error {
		return c.SendString(id.UserUID)
	}))

	good, err := sessions.Issue("a@b.com", "uid-1")
	require.NoError(t, err)
	ghost, err := sessions.Issue("ghost@b.com", "uid-2")
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusForbidden},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+good.Token) }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "authToken", Value: good.Token}) }, http.StatusOK},
		{"deleted user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+ghost.Token) }, http.StatusForbidden},
		{"stale cookie with valid bearer", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "authToken", Value: "garbage"})
			r.Header.Set("Authorization", "Bearer "+good.Token)
		}, http.StatusOK},
		{"stale cookie alone", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "authToken", Value: "garbage"}) }, http.StatusForbidden},
		{"valid cookie with garbage bearer", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "authToken", Value: good.Token})
			r.Header.Set("Authorization", "Bearer nope")
		}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewIPRateLimiter(ctx, 1, 2, zap.NewNop())

	app := newTestApp()
	app.Post("/login", l.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestIPRateLimiterSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewIPRateLimiter(ctx, 60, 1, zap.NewNop())
	l.getLimiter("10.0.0.1")

	l.sweep(time.Now().Add(time.Second))
	_, ok := l.visitors.Load("10.0.0.1")
	assert.False(t, ok)
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.New()
	app := newTestApp()
	app.Use(Metrics(m))
	app.Get("/images/:imageUid", func(c *fiber.Ctx) error {
		return apperr.New(apperr.ErrNotFound, "Image not found.")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/images/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	n, err := testutil.GatherAndCount(m.Registry(), "kaviospix_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
