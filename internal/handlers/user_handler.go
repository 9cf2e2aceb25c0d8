package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/models"
	"github.com/pranjalb21/kaviosPix/internal/services"
	"github.com/pranjalb21/kaviosPix/internal/utils"
	"github.com/pranjalb21/kaviosPix/internal/validation"
)

type UserHandler struct {
	svc    *services.UserService
	cookie CookieOptions
}

func NewUserHandler(svc *services.UserService, cookie CookieOptions) *UserHandler {
	return &UserHandler{svc: svc, cookie: cookie}
}

type sessionResponse struct {
	Email     string    `json:"email"`
	UserUID   string    `json:"userUid"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *UserHandler) respondSession(c *fiber.Ctx, status int, msg string, res *services.AuthResult) error {
	h.cookie.set(c, res.Session.Token, res.Session.ExpiresAt)
	return utils.JSONSuccess(c, status, msg, sessionResponse{
		Email:     res.User.Email,
		UserUID:   res.User.UserUID,
		Token:     res.Session.Token,
		ExpiresAt: res.Session.ExpiresAt.UTC(),
	})
}

// POST /users/signup
func (h *UserHandler) Signup(c *fiber.Ctx) error {
	var req validation.Credentials
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Signup(c.UserContext(), req)
	if err != nil {
		return err
	}
	return h.respondSession(c, fiber.StatusCreated, "User created successfully.", res)
}

// POST /users/login
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req validation.Credentials
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	return h.respondSession(c, fiber.StatusOK, "Logged in successfully.", res)
}

// POST /users/logout
func (h *UserHandler) Logout(c *fiber.Ctx, id auth.Identity) error {
	if err := h.svc.Logout(c.UserContext(), id); err != nil {
		return err
	}
	h.cookie.clear(c)
	return utils.JSONSuccess(c, fiber.StatusOK, "Logged out successfully.", nil)
}

func (h *UserHandler) Me(c *fiber.Ctx, id auth.Identity) error {
	u, err := h.svc.Get(c.UserContext(), id.UserUID)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "User fetched successfully.", u.Summary())
}

// PATCH /users/me/password
func (h *UserHandler) ChangePassword(c *fiber.Ctx, id auth.Identity) error {
	var req validation.PasswordChange
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.svc.ChangePassword(c.UserContext(), id, req); err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Password updated successfully.", nil)
}

func (h *UserHandler) List(c *fiber.Ctx, _ auth.Identity) error {
	users, err := h.svc.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]models.UserSummary, len(users))
	for i := range users {
		out[i] = users[i].Summary()
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Users fetched successfully.", out)
}

func (h *UserHandler) Get(c *fiber.Ctx, _ auth.Identity) error {
	u, err := h.svc.Get(c.UserContext(), c.Params("userUid"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "User fetched successfully.", u.Summary())
}
