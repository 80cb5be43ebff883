package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"panic-list/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Second)

	_, err := store.Get(ctx, "nope")
	require.ErrorIs(t, err, session.ErrNotFound)

	s := &session.Session{
		ID: "s1", UserID: "p1", Role: "provider", FullName: "Pat", Email: "pat@x.com",
		Token: "tok", ExpiresAt: created.Add(time.Hour), CreatedAt: created,
	}
	require.NoError(t, store.Put(ctx, s))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s.UserID, got.UserID)
	assert.Equal(t, s.Token, got.Token)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	// stored copies are not aliased to the caller's value
	got.Token = "mutated"
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "tok", again.Token)

	s.Token = "tok2"
	require.NoError(t, store.Put(ctx, s))
	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "tok2", got.Token)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "s1"), "deleting twice is fine")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, session.NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exerciseStore(t, session.NewFileStore(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	require.NoError(t, session.NewFileStore(path).Put(ctx, &session.Session{ID: "cli", UserID: "p1", Token: "tok"}))

	got, err := session.NewFileStore(path).Get(ctx, "cli")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.UserID)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := session.NewFileStore(path).Get(context.Background(), "cli")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := session.NewMemoryStore()
	require.NoError(t, m.Put(ctx, &session.Session{ID: "old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, m.Put(ctx, &session.Session{ID: "live", ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, m.Put(ctx, &session.Session{ID: "forever"}))

	n, err := m.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = m.Get(ctx, "old")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = m.Get(ctx, "forever")
	assert.NoError(t, err)
}
