// Package access decides what a requester may do with albums and images.
// Every check works on records that were already loaded; callers report
// missing records as not found before asking.
package access

import (
	"github.com/pranjalb21/kaviosPix/internal/apperr"
	"github.com/pranjalb21/kaviosPix/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CanViewAlbum: owner or shared user.
func CanViewAlbum(requester primitive.ObjectID, album *models.Album) bool {
	if album == nil {
		return false
	}
	return album.IsOwner(requester) || album.IsSharedWith(requester)
}

// CanModifyAlbum: owner only. Shared users cannot rename, delete or change
// membership.
func CanModifyAlbum(requester primitive.ObjectID, album *models.Album) bool {
	return album != nil && album.IsOwner(requester)
}

// CanAddImage: anyone who can view the album may contribute to it.
func CanAddImage(requester primitive.ObjectID, album *models.Album) bool {
	return CanViewAlbum(requester, album)
}

// CanViewImage follows album visibility. Being tagged grants nothing.
func CanViewImage(requester primitive.ObjectID, image *models.Image, album *models.Album) bool {
	if image == nil || album == nil || image.AlbumID != album.ID {
		return false
	}
	return CanViewAlbum(requester, album)
}

// CanModifyImage: the uploader or the owner of the image's album.
func CanModifyImage(requester primitive.ObjectID, image *models.Image, album *models.Album) bool {
	if image == nil || album == nil || image.AlbumID != album.ID || requester.IsZero() {
		return false
	}
	return image.OwnerID == requester || album.IsOwner(requester)
}

var (
	errViewAlbum   = apperr.New(apperr.ErrForbidden, "You do not have access to this album.")
	errModifyAlbum = apperr.New(apperr.ErrForbidden, "Only the album owner can change this album.")
	errViewImage   = apperr.New(apperr.ErrForbidden, "You do not have access to this image.")
	errModifyImage = apperr.New(apperr.ErrForbidden, "You are not allowed to change this image.")
)

func RequireViewAlbum(requester primitive.ObjectID, album *models.Album) error {
	if !CanViewAlbum(requester, album) {
		return errViewAlbum
	}
	return nil
}

func RequireModifyAlbum(requester primitive.ObjectID, album *models.Album) error {
	if !CanModifyAlbum(requester, album) {
		return errModifyAlbum
	}
	return nil
}

func RequireAddImage(requester primitive.ObjectID, album *models.Album) error {
	if !CanAddImage(requester, album) {
		return errViewAlbum
	}
	return nil
}

func RequireViewImage(requester primitive.ObjectID, image *models.Image, album *models.Album) error {
	if !CanViewImage(requester, image, album) {
		return errViewImage
	}
	return nil
}

func RequireModifyImage(requester primitive.ObjectID, image *models.Image, album *models.Album) error {
	if !CanModifyImage(requester, image, album) {
		return errModifyImage
	}
	return nil
}
