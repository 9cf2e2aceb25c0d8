package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/services"
	"github.com/pranjalb21/kaviosPix/internal/utils"
	"github.com/pranjalb21/kaviosPix/internal/validation"
)

type AlbumHandler struct {
	svc *services.AlbumService
}

func NewAlbumHandler(svc *services.AlbumService) *AlbumHandler {
	return &AlbumHandler{svc: svc}
}

func (h *AlbumHandler) Create(c *fiber.Ctx, id auth.Identity) error {
	var req validation.AlbumInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	a, err := h.svc.Create(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, "Album created successfully.", a)
}

func (h *AlbumHandler) List(c *fiber.Ctx, id auth.Identity) error {
	albums, err := h.svc.List(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Albums fetched successfully.", albums)
}

func (h *AlbumHandler) Get(c *fiber.Ctx, id auth.Identity) error {
	a, err := h.svc.Get(c.UserContext(), id, c.Params("albumUid"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Album fetched successfully.", a)
}

func (h *AlbumHandler) Update(c *fiber.Ctx, id auth.Identity) error {
	var req validation.AlbumPatch
	if err := parseBody(c, &req); err != nil {
		return err
	}
	a, err := h.svc.Update(c.UserContext(), id, c.Params("albumUid"), req)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Album updated successfully.", a)
}

func (h *AlbumHandler) Share(c *fiber.Ctx, id auth.Identity) error {
	var req validation.ShareInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	a, err := h.svc.Share(c.UserContext(), id, c.Params("albumUid"), req)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Album shared successfully.", a)
}

func (h *AlbumHandler) Unshare(c *fiber.Ctx, id auth.Identity) error {
	a, err := h.svc.Unshare(c.UserContext(), id, c.Params("albumUid"), c.Params("userUid"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "User removed from album.", a)
}

func (h *AlbumHandler) Delete(c *fiber.Ctx, id auth.Identity) error {
	a, err := h.svc.Delete(c.UserContext(), id, c.Params("albumUid"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Album deleted successfully.", a)
}
