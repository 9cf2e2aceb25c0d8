package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pranjalb21/kaviosPix/internal/apperr"
	"github.com/pranjalb21/kaviosPix/internal/auth"
	"github.com/pranjalb21/kaviosPix/internal/models"
	"github.com/pranjalb21/kaviosPix/internal/repository"
	"github.com/pranjalb21/kaviosPix/internal/utils"
	"github.com/pranjalb21/kaviosPix/internal/validation"
	"go.uber.org/zap"
)

var ErrNoUsers = apperr.New(apperr.ErrNotFound, "No users found.")

// AuthResult is returned by signup and login.
type AuthResult struct {
	User    *models.User
	Session auth.Session
}

type UserService struct {
	users    repository.UserRepository
	hasher   auth.PasswordHasher
	sessions *auth.SessionManager
	log      *zap.Logger
}

func NewUserService(users repository.UserRepository, hasher auth.PasswordHasher, sessions *auth.SessionManager, logger *zap.Logger) *UserService {
	return &UserService{users: users, hasher: hasher, sessions: sessions, log: logger}
}

// Register creates an account without issuing a session.
func (s *UserService) Register(ctx context.Context, in validation.Credentials) (*models.User, error) {
	in, err := validation.Signup(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, repository.ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{UserUID: utils.NewID(), Email: in.Email, PasswordHash: hash}
	// the unique index still catches a racing signup for the same address
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("userUid", u.UserUID))
	return u, nil
}

func (s *UserService) Signup(ctx context.Context, in validation.Credentials) (*AuthResult, error) {
	u, err := s.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *UserService) Login(ctx context.Context, in validation.Credentials) (*AuthResult, error) {
	in, err := validation.Login(in)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(u.PasswordHash, in.Password); err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *UserService) issue(u *models.User) (*AuthResult, error) {
	sess, err := s.sessions.Issue(u.Email, u.UserUID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Session: sess}, nil
}

func (s *UserService) Logout(ctx context.Context, id auth.Identity) error {
	if err := s.sessions.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *UserService) ChangePassword(ctx context.Context, id auth.Identity, in validation.PasswordChange) error {
	in, err := validation.ChangePassword(in)
	if err != nil {
		return err
	}
	u, err := s.users.FindByUID(ctx, id.UserUID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(u.PasswordHash, in.Current); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(in.New)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNoUsers
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, uid string) (*models.User, error) {
	return s.users.FindByUID(ctx, uid)
}

// Resolve maps verified session claims onto the stored account.
func (s *UserService) Resolve(ctx context.Context, claims *auth.Claims) (auth.Identity, error) {
	u, err := s.users.FindByUID(ctx, claims.UserUID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return auth.Identity{}, apperr.New(apperr.ErrForbidden, "Invalid or expired token.")
	}
	if err != nil {
		return auth.Identity{}, err
	}
	id := auth.Identity{ID: u.ID, UserUID: u.UserUID, Email: u.Email, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
