package repository

import (
	"context"

	"github.com/pranjalb21/kaviosPix/internal/apperr"
	"github.com/pranjalb21/kaviosPix/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUserNotFound  = apperr.New(apperr.ErrNotFound, "User not found.")
	ErrAlbumNotFound = apperr.New(apperr.ErrNotFound, "Album not found.")
	ErrImageNotFound = apperr.New(apperr.ErrNotFound, "Image not found.")
	ErrEmailTaken    = apperr.New(apperr.ErrConflict, "User with this email already exists.")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByUID(ctx context.Context, uid string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindByUIDs(ctx context.Context, uids []string) ([]models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type AlbumRepository interface {
	Create(ctx context.Context, a *models.Album) error
	FindByUID(ctx context.Context, uid string) (*models.Album, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Album, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Album, error)
	// ListVisible returns albums the user owns or is shared on.
	ListVisible(ctx context.Context, userID primitive.ObjectID) ([]models.Album, error)
	// ListSharedWith returns albums shared with the user that the user does not own.
	ListSharedWith(ctx context.Context, userID primitive.ObjectID) ([]models.Album, error)
	Update(ctx context.Context, a *models.Album) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ImageFilter narrows image listings. AlbumIDs is required; an empty list
// matches nothing.
type ImageFilter struct {
	AlbumIDs     []primitive.ObjectID
	OwnerID      primitive.ObjectID
	FavoriteOnly bool
}

type ImageRepository interface {
	Create(ctx context.Context, img *models.Image) error
	FindByUID(ctx context.Context, uid string) (*models.Image, error)
	Update(ctx context.Context, img *models.Image) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f ImageFilter) ([]models.Image, error)
	CountByAlbum(ctx context.Context, albumID primitive.ObjectID) (int64, error)
}
