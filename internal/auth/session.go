package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pranjalb21/kaviosPix/internal/apperr"
)

// Claims carried by a session token.
type Claims struct {
	Email   string `json:"email"`
	UserUID string `json:"userUid"`
	jwt.RegisteredClaims
}

type Session struct {
	Token     string
	ExpiresAt time.Time
}

type SessionManager struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	revoked RevocationStore
	now     func() time.Time
}

type Option func(*SessionManager)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) { m.now = now }
}

func WithIssuer(iss string) Option {
	return func(m *SessionManager) { m.issuer = iss }
}

// NewSessionManager signs HS256 tokens with secret. revoked may be nil, in
// which case logout only clears the client cookie.
func NewSessionManager(secret string, ttl time.Duration, revoked RevocationStore, opts ...Option) (*SessionManager, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	m := &SessionManager{secret: []byte(secret), ttl: ttl, revoked: revoked, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for the given user.
func (m *SessionManager) Issue(email, userUID string) (Session, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := &Claims{
		Email:   email,
		UserUID: userUID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   userUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return Session{Token: token, ExpiresAt: exp}, nil
}

// Verify rejects a missing token with ErrUnauthorized and an expired,
// tampered or revoked one with ErrForbidden.
func (m *SessionManager) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, apperr.New(apperr.ErrUnauthorized, "Access token is missing.")
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Wrap(apperr.ErrForbidden, "Session has expired.", err)
		}
		return nil, apperr.Wrap(apperr.ErrForbidden, "Invalid or expired token.", err)
	}
	if !parsed.Valid || claims.UserUID == "" {
		return nil, apperr.New(apperr.ErrForbidden, "Invalid or expired token.")
	}
	if m.revoked != nil && claims.ID != "" {
		revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check token revocation: %w", err)
		}
		if revoked {
			return nil, apperr.New(apperr.ErrForbidden, "Session has been revoked.")
		}
	}
	return claims, nil
}

// Revoke blacklists the token id until its natural expiry.
func (m *SessionManager) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if m.revoked == nil || tokenID == "" {
		return nil
	}
	return m.revoked.Revoke(ctx, tokenID, expiresAt)
}
