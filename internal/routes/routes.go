package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pranjalb21/kaviosPix/internal/handlers"
	"github.com/pranjalb21/kaviosPix/internal/middleware"
)

type Handlers struct {
	Users  *handlers.UserHandler
	Albums *handlers.AlbumHandler
	Images *handlers.ImageHandler
}

// Setup mounts the API under /api/v1. authLimit, when non-nil, guards the
// unauthenticated credential endpoints.
func Setup(app *fiber.App, h Handlers, authn *middleware.Authenticator, authLimit middleware.Limiter) {
	api := app.Group("/api/v1")
	protect := authn.Wrap

	users := api.Group("/users")
	if authLimit != nil {
		users.Post("/signup", authLimit.Handler(), h.Users.Signup)
		users.Post("/login", authLimit.Handler(), h.Users.Login)
	} else {
		users.Post("/signup", h.Users.Signup)
		users.Post("/login", h.Users.Login)
	}
	users.Post("/logout", protect(h.Users.Logout))
	users.Get("/me", protect(h.Users.Me))
	users.Patch("/me/password", protect(h.Users.ChangePassword))
	users.Get("/", protect(h.Users.List))
	users.Get("/:userUid", protect(h.Users.Get))

	albums := api.Group("/albums")
	albums.Get("/", protect(h.Albums.List))
	albums.Post("/", protect(h.Albums.Create))
	albums.Get("/:albumUid", protect(h.Albums.Get))
	albums.Patch("/:albumUid", protect(h.Albums.Update))
	albums.Delete("/:albumUid", protect(h.Albums.Delete))
	albums.Post("/:albumUid/share", protect(h.Albums.Share))
	albums.Delete("/:albumUid/share/:userUid", protect(h.Albums.Unshare))

	// static segments before /:imageUid
	images := api.Group("/images")
	images.Get("/", protect(h.Images.List))
	images.Post("/", protect(h.Images.Create))
	images.Get("/shared", protect(h.Images.ListShared))
	images.Get("/favorites", protect(h.Images.ListFavorites))
	images.Get("/owner/:userUid", protect(h.Images.ListByOwner))
	images.Get("/album/:albumUid", protect(h.Images.ListByAlbum))
	images.Get("/:imageUid", protect(h.Images.Get))
	images.Get("/:imageUid/url", protect(h.Images.SignedURL))
	images.Patch("/:imageUid", protect(h.Images.Update))
	images.Delete("/:imageUid", protect(h.Images.Delete))
}
