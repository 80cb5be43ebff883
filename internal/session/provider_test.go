package session_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"panic-list/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	p := session.NewProvider(store, "cli")

	_, err := p.Load(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)
	assert.Nil(t, p.Current())

	tok := backendToken(t, jwt.MapClaims{"uid": "p1", "fullName": "Pat", "exp": time.Now().Add(time.Hour).Unix()})
	s, err := p.Refresh(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "cli", s.ID)
	require.NotNil(t, p.Current())
	assert.Equal(t, "p1", p.Current().UserID)

	// a second process sees the same session
	other := session.NewProvider(store, "cli")
	loaded, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Pat", loaded.FullName)

	require.NoError(t, p.Clear(ctx))
	assert.Nil(t, p.Current())
	_, err = other.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Nil(t, other.Current())

	assert.NoError(t, p.Clear(ctx), "clearing when signed out is fine")
}

func TestProvider_RefreshRejectsBadTokenAndKeepsSession(t *testing.T) {
	ctx := context.Background()
	p := session.NewProvider(session.NewMemoryStore(), "cli")

	_, err := p.Refresh(ctx, backendToken(t, jwt.MapClaims{"uid": "p1"}))
	require.NoError(t, err)

	_, err = p.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, session.ErrInvalidToken)
	require.NotNil(t, p.Current())
	assert.Equal(t, "p1", p.Current().UserID)
}

func TestProvider_LoadExpired(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	require.NoError(t, store.Put(ctx, &session.Session{ID: "cli", UserID: "p1", ExpiresAt: time.Now().Add(-time.Minute)}))

	p := session.NewProvider(store, "cli")
	_, err := p.Load(ctx)
	assert.ErrorIs(t, err, session.ErrExpired)
	assert.Nil(t, p.Current())
}

func TestProvider_CurrentReturnsCopy(t *testing.T) {
	p := session.NewProvider(session.NewMemoryStore(), "cli")
	_, err := p.Refresh(context.Background(), backendToken(t, jwt.MapClaims{"uid": "p1"}))
	require.NoError(t, err)

	p.Current().UserID = "hijacked"
	assert.Equal(t, "p1", p.Current().UserID)
}
