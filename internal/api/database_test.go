package api_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mantrify/internal/api"
	"mantrify/internal/testsupport"
)

func TestBackupLifecycle(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.AddBackup("backup-old.json", []byte(`{"users":[{"id":1}]}`))
	client := newClient(t, backend.URL(), api.WithCredentials(api.StaticToken("admin")))
	ctx := context.Background()

	created, err := client.CreateBackup(ctx)
	require.NoError(t, err)
	require.Equal(t, "backup-002.json", created.Filename)
	require.Equal(t, 3, created.TablesExported)
	require.False(t, created.Timestamp.IsZero())

	backups, err := client.Backups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	require.Equal(t, "backup-002.json", backups[0].Filename, "newest first")
	require.Equal(t, int64(20), backups[1].Size)

	var buf bytes.Buffer
	n, err := client.DownloadBackup(ctx, "backup-old.json", &buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.JSONEq(t, `{"users":[{"id":1}]}`, buf.String())

	msg, err := client.DeleteBackup(ctx, "backup-old.json")
	require.NoError(t, err)
	require.Contains(t, msg, "deleted")
	require.False(t, backend.HasBackup("backup-old.json"))

	_, err = client.DeleteBackup(ctx, "backup-old.json")
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestDownloadMissingBackupWritesNothing(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	var buf bytes.Buffer
	n, err := newClient(t, backend.URL()).DownloadBackup(context.Background(), "nope.json", &buf)
	require.ErrorIs(t, err, api.ErrNotFound)
	require.Zero(t, n)
	require.Zero(t, buf.Len())
}

func TestBackupNamesCannotEscapePath(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	client := newClient(t, backend.URL())
	for _, name := range []string{"", "..", "../etc/passwd", `a\b.json`} {
		_, err := client.DeleteBackup(context.Background(), name)
		require.ErrorIs(t, err, api.ErrValidation, "name %q", name)
		_, err = client.DownloadBackup(context.Background(), name, &bytes.Buffer{})
		require.ErrorIs(t, err, api.ErrValidation, "name %q", name)
	}
	require.Zero(t, backend.Calls("DELETE /database/delete-backup/.."))
}

func TestRestoreDatabaseUploadsDump(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	dump := `{"users":[{"id":1},{"id":2}],"meditations":[{"id":9}]}`

	res, err := newClient(t, backend.URL()).RestoreDatabase(context.Background(), "/tmp/dumps/backup-1.json", strings.NewReader(dump))
	require.NoError(t, err)
	require.Equal(t, 2, res.TablesImported)
	require.Equal(t, int64(3), res.TotalRows)
	require.Equal(t, int64(2), res.RowsImported["users"])
	require.JSONEq(t, dump, string(backend.RestoredDump()))
}

func TestRestoreDatabaseRejectionIsValidation(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	_, err := newClient(t, backend.URL()).RestoreDatabase(context.Background(), "dump.sql", strings.NewReader("DROP TABLE"))
	require.ErrorIs(t, err, api.ErrValidation)
	require.Nil(t, backend.RestoredDump())
}
