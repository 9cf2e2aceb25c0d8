package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/services"
	"github.com/pranjalb21/kaviosPix/internal/utils"
	"github.com/pranjalb21/kaviosPix/internal/validation"
)

type ImageHandler struct {
	svc *services.ImageService
}

func NewImageHandler(svc *services.ImageService) *ImageHandler {
	return &ImageHandler{svc: svc}
}

// formList accepts both "tags" and "tags[]" and comma separated values.
func formList(form *multipart.Form, key string) []string {
	var out []string
	for _, k := range []string{key, key + "[]"} {
		for _, v := range form.Value[k] {
			for _, part := range strings.Split(v, ",") {
				if p := strings.TrimSpace(part); p != "" {
					out = append(out, p)
				}
			}
		}
	}
	return out
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// sniffContentType falls back to content detection when the client sent no
// usable part header.
func sniffContentType(fh *multipart.FileHeader, f multipart.File) string {
	ct := fh.Header.Get(fiber.HeaderContentType)
	if ct != "" && ct != fiber.MIMEOctetStream {
		return ct
	}
	buf := make([]byte, 512)
	n, _ := io.ReadFull(f, buf)
	_, _ = f.Seek(0, io.SeekStart)
	return http.DetectContentType(buf[:n])
}

// POST /images (multipart/form-data 'image')
func (h *ImageHandler) Create(c *fiber.Ctx, id auth.Identity) error {
	in := services.CreateImageInput{}
	form, err := c.MultipartForm()
	if err == nil {
		in.Metadata = validation.ImageMetadata{
			AlbumID:       formValue(form, "albumId"),
			Tags:          formList(form, "tags"),
			PersonsTagged: formList(form, "personsTagged"),
			IsFavorite:    formValue(form, "isFavorite"),
			Comments:      append(form.Value["comments"], form.Value["comments[]"]...),
		}
		if files := form.File["image"]; len(files) > 0 {
			fh := files[0]
			f, err := fh.Open()
			if err != nil {
				return err
			}
			defer f.Close()
			in.File = &services.Upload{
				Filename:    fh.Filename,
				ContentType: sniffContentType(fh, f),
				Size:        fh.Size,
				Content:     f,
			}
		}
	}
	img, err := h.svc.Create(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, "Image posted successfully.", img)
}

func (h *ImageHandler) Update(c *fiber.Ctx, id auth.Identity) error {
	var req validation.ImagePatch
	if err := parseBody(c, &req); err != nil {
		return err
	}
	img, err := h.svc.Update(c.UserContext(), id, c.Params("imageUid"), req)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Image updated successfully.", img)
}

func (h *ImageHandler) Delete(c *fiber.Ctx, id auth.Identity) error {
	img, err := h.svc.Delete(c.UserContext(), id, c.Params("imageUid"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Image deleted successfully.", img)
}

func (h *ImageHandler) Get(c *fiber.Ctx, id auth.Identity) error {
	img, err := h.svc.Get(c.UserContext(), id, c.Params("imageUid"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Image fetched successfully.", img)
}

// GET /images/:imageUid/url
func (h *ImageHandler) SignedURL(c *fiber.Ctx, id auth.Identity) error {
	u, err := h.svc.SignedURL(c.UserContext(), id, c.Params("imageUid"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Image URL generated successfully.", u)
}

func (h *ImageHandler) List(c *fiber.Ctx, id auth.Identity) error {
	imgs, err := h.svc.List(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Images fetched successfully.", imgs)
}

func (h *ImageHandler) ListByOwner(c *fiber.Ctx, id auth.Identity) error {
	imgs, err := h.svc.ListByOwner(c.UserContext(), id, c.Params("userUid"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Images fetched successfully.", imgs)
}

func (h *ImageHandler) ListByAlbum(c *fiber.Ctx, id auth.Identity) error {
	imgs, err := h.svc.ListByAlbum(c.UserContext(), id, c.Params("albumUid"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Images fetched successfully.", imgs)
}

func (h *ImageHandler) ListShared(c *fiber.Ctx, id auth.Identity) error {
	imgs, err := h.svc.ListShared(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Shared images fetched successfully.", imgs)
}

func (h *ImageHandler) ListFavorites(c *fiber.Ctx, id auth.Identity) error {
	imgs, err := h.svc.ListFavorites(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Favorite images fetched successfully.", imgs)
}
