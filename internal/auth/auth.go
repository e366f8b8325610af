// Package auth issues and verifies the bearer tokens guarding the network
// and machine endpoints.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"netpanel/internal/domain"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: incorrect username or password", domain.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: could not validate credentials", domain.ErrUnauthorized)
	ErrExpiredToken       = fmt.Errorf("%w: token has expired", domain.ErrUnauthorized)
	ErrShortSecret        = errors.New("secret must be at least 32 characters")
	ErrEmptyPassword      = errors.New("password cannot be empty")
)

// PermissionNetwork grants access to the network configuration and the
// machine inventory
const PermissionNetwork = "network"

// DefaultTokenTTL is used when no token lifetime is configured
const DefaultTokenTTL = 30 * time.Minute

// User is a configured account
type User struct {
	Username     string   `json:"username" yaml:"username" validate:"required"`
	PasswordHash string   `json:"-" yaml:"password_hash" validate:"required"`
	Permissions  []string `json:"permissions,omitempty" yaml:"permissions,omitempty"`
}

// Can reports whether the user holds permission
func (u *User) Can(permission string) bool {
	return slices.Contains(u.Permissions, permission)
}

// Claims are the token claims. The subject is the username.
type Claims struct {
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Manager authenticates users and manages their tokens
type Manager struct {
	secret []byte
	ttl    time.Duration
	users  map[string]User
	now    func() time.Time

	// unknown is compared against for usernames that do not exist
	unknown []byte
	compare func(hash, password []byte) error
}

// NewManager creates a manager signing with secret. A zero ttl selects
// DefaultTokenTTL.
func NewManager(secret string, ttl time.Duration, users []User) (*Manager, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	byName := make(map[string]User, len(users))
	for _, u := range users {
		if u.Username == "" {
			return nil, errors.New("user with empty username")
		}
		if _, dup := byName[u.Username]; dup {
			return nil, fmt.Errorf("duplicate user %q", u.Username)
		}
		byName[u.Username] = u
	}

	unknown, err := unknownUserHash(byName)
	if err != nil {
		return nil, err
	}

	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		users:   byName,
		now:     time.Now,
		unknown: unknown,
		compare: bcrypt.CompareHashAndPassword,
	}, nil
}

// unknownUserHash hashes a throwaway password at the cost the configured
// users were hashed with
func unknownUserHash(users map[string]User) ([]byte, error) {
	cost := bcrypt.DefaultCost
	for _, u := range users {
		if c, err := bcrypt.Cost([]byte(u.PasswordHash)); err == nil {
			cost = c
			break
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("unknown user"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}
	return hash, nil
}

// TokenTTL returns the lifetime of issued tokens
func (m *Manager) TokenTTL() time.Duration {
	return m.ttl
}

// Authenticate checks a username and password
func (m *Manager) Authenticate(username, password string) (*User, error) {
	u, ok := m.users[username]
	hash := m.unknown
	if ok {
		hash = []byte(u.PasswordHash)
	}
	if err := m.compare(hash, []byte(password)); err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// IssueToken signs a token for u
func (m *Manager) IssueToken(u *User) (string, error) {
	now := m.now()
	claims := Claims{
		Permissions: u.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies a token and returns the user it was issued to.
// Tokens of users removed from the configuration are rejected.
func (m *Manager) ValidateToken(tokenString string) (*User, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	u, ok := m.users[claims.Subject]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &u, nil
}

// Authorize returns domain.ErrForbidden unless u holds permission
func Authorize(u *User, permission string) error {
	if u == nil || !u.Can(permission) {
		return fmt.Errorf("%w: user lacks the %s permission", domain.ErrForbidden, permission)
	}
	return nil
}

// HashPassword returns the bcrypt hash stored in the configuration
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

type contextKey struct{}

// WithUser returns a context carrying the authenticated user
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok && u != nil
}
