package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mantrify/internal/api"
	"mantrify/internal/session"
	"mantrify/internal/testsupport"
)

var _ api.Credentials = (*session.Store)(nil)

func TestSaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	store := session.NewStore(path, "", nil)

	sess, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, sess)
	_, ok := store.Credential()
	require.False(t, ok)

	require.NoError(t, store.Save(session.Session{AccessToken: "tok", UserID: 3, Email: "a@b.c"}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := session.NewStore(path, "", nil).Load()
	require.NoError(t, err)
	require.Equal(t, "tok", loaded.AccessToken)
	require.Equal(t, int64(3), loaded.UserID)
	require.False(t, loaded.SavedAt.IsZero())

	token, ok := store.Credential()
	require.True(t, ok)
	require.Equal(t, "tok", token)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"), "", nil)
	require.Error(t, store.Save(session.Session{}))
}

func TestCredentialFallsBackToStaticToken(t *testing.T) {
	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"), " static ", nil)
	token, ok := store.Credential()
	require.True(t, ok)
	require.Equal(t, "static", token)
}

func TestCorruptSessionIsReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := session.NewStore(path, "", nil)
	_, err := store.Load()
	require.Error(t, err)
	_, ok := store.Credential()
	require.False(t, ok)
}

func TestUnauthorizedEvictsSession(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.RequireToken("current")

	path := filepath.Join(t.TempDir(), "session.json")
	store := session.NewStore(path, "", nil)
	require.NoError(t, store.Save(session.Session{AccessToken: "expired"}))

	client, err := api.NewClient(api.Config{BaseURL: backend.URL()}, api.WithCredentials(store))
	require.NoError(t, err)

	_, err = client.QueueRecords(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, ok := store.Credential()
	require.False(t, ok)

	require.NoError(t, store.Save(session.Session{AccessToken: "current"}))
	_, err = client.QueueRecords(context.Background())
	require.NoError(t, err)
}
