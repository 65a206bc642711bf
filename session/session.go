// Package session holds the authenticated identity of a request and the
// role the viewer acts in, and issues the signed tokens that carry it.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"

	"food-ordering/api/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired session token")
	ErrRevoked      = errors.New("session has been signed out")
)

type Session struct {
	UserID   string      `json:"user_id"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`

	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsOwner() bool {
	return s != nil && s.Role == models.RoleOwner
}

// DisplayName is what restaurants see on incoming orders.
func (s *Session) DisplayName() string {
	if s.FullName != "" {
		return s.FullName
	}
	return "Customer"
}

type claims struct {
	UserID   string      `json:"user_id"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
	jwt.StandardClaims
}

// Revoker remembers signed-out token ids until they would have expired.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

func NewManager(secret string, ttl time.Duration, revoker Revoker) *Manager {
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoker: revoker,
		now:     time.Now,
	}
}

// Issue signs a token for user acting as role.
func (m *Manager) Issue(user *models.User, role models.Role) (string, *Session, error) {
	now := m.now()
	s := &Session{
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      role,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   s.UserID,
		Email:    s.Email,
		FullName: s.FullName,
		Role:     s.Role,
		StandardClaims: jwt.StandardClaims{
			Id:        s.TokenID,
			Subject:   s.UserID,
			IssuedAt:  now.Unix(),
			ExpiresAt: s.ExpiresAt.Unix(),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, s, nil
}

// Parse verifies a token and returns the session it carries.
func (m *Manager) Parse(ctx context.Context, token string) (*Session, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || c.UserID == "" || !c.Role.Valid() {
		return nil, ErrInvalidToken
	}

	revoked, err := m.revoker.IsRevoked(ctx, c.Id)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	return &Session{
		UserID:    c.UserID,
		Email:     c.Email,
		FullName:  c.FullName,
		Role:      c.Role,
		TokenID:   c.Id,
		ExpiresAt: time.Unix(c.ExpiresAt, 0),
	}, nil
}

// Revoke signs the token out. Already invalid tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	s, err := m.Parse(ctx, token)
	if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrRevoked) {
		return nil
	}
	if err != nil {
		return err
	}
	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.revoker.Revoke(ctx, s.TokenID, ttl)
}
