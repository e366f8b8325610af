package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"netpanel/internal/domain"
)

const testSecret = "test-secret-key-must-be-at-least-32-characters-long"

func testManager(t *testing.T) *Manager {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	m, err := NewManager(testSecret, time.Minute, []User{
		{Username: "alice", PasswordHash: string(hash), Permissions: []string{PermissionNetwork}},
		{Username: "bob", PasswordHash: string(hash)},
	})
	require.NoError(t, err)
	return m
}

func TestNewManager(t *testing.T) {
	_, err := NewManager("short", time.Minute, nil)
	assert.ErrorIs(t, err, ErrShortSecret)

	_, err = NewManager(testSecret, time.Minute, []User{{Username: "a"}, {Username: "a"}})
	assert.Error(t, err)

	m, err := NewManager(testSecret, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, m.TokenTTL())
}

func TestAuthenticate(t *testing.T) {
	m := testManager(t)

	u, err := m.Authenticate("alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = m.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = m.Authenticate("mallory", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateUnknownUserComparesHash(t *testing.T) {
	m := testManager(t)

	var hashes [][]byte
	m.compare = func(hash, password []byte) error {
		hashes = append(hashes, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, err := m.Authenticate("mallory", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = m.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.Len(t, hashes, 2)
	cost, err := bcrypt.Cost(hashes[0])
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	// The placeholder hash never matches, even for its own password
	_, err = m.Authenticate("mallory", "unknown user")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager(t)
	u, err := m.Authenticate("alice", "hunter22")
	require.NoError(t, err)

	token, err := m.IssueToken(u)
	require.NoError(t, err)

	got, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.Can(PermissionNetwork))
}

func TestValidateTokenRejects(t *testing.T) {
	m := testManager(t)
	u, err := m.Authenticate("alice", "hunter22")
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := m.ValidateToken("")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewManager(testSecret+"-other", time.Minute, []User{*u})
		require.NoError(t, err)
		token, err := other.IssueToken(u)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := m.IssueToken(u)
		require.NoError(t, err)
		m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		defer func() { m.now = time.Now }()
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Subject: "alice", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("removed user", func(t *testing.T) {
		ghost := &User{Username: "ghost"}
		token, err := m.IssueToken(ghost)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthorize(t *testing.T) {
	m := testManager(t)
	alice, _ := m.Authenticate("alice", "hunter22")
	bob, _ := m.Authenticate("bob", "hunter22")

	assert.NoError(t, Authorize(alice, PermissionNetwork))
	assert.ErrorIs(t, Authorize(bob, PermissionNetwork), domain.ErrForbidden)
	assert.ErrorIs(t, Authorize(nil, PermissionNetwork), domain.ErrForbidden)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter22")))
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), &User{Username: "alice"})
	u, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", u.Username)
}
