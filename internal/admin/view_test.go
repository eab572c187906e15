package admin_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"mantrify/internal/admin"
	"mantrify/internal/api"
	"mantrify/internal/queue"
	"mantrify/internal/testsupport"
)

func newView(t *testing.T, backend *testsupport.FakeBackend) *admin.View {
	t.Helper()
	client, err := api.NewClient(api.Config{BaseURL: backend.URL()})
	require.NoError(t, err)
	return admin.NewView(client, nil)
}

func TestListSortsAndSummarizes(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.AddRecord(queue.Record{ID: 9, UserID: 2, Status: queue.StatusDone})
	backend.AddRecord(queue.Record{ID: 3, UserID: 1, Status: queue.StatusElevenLabs})
	backend.AddRecord(queue.Record{ID: 5, UserID: 1, Status: queue.StatusElevenLabs})
	backend.AddRecord(queue.Record{ID: 7, UserID: 3, Status: queue.StatusQueued})

	snap, err := newView(t, backend).List(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, snap.Total())
	require.Equal(t, 3, snap.Pending())

	var ids []int64
	for _, rec := range snap.Records {
		ids = append(ids, rec.ID)
	}
	require.Equal(t, []int64{3, 5, 7, 9}, ids)

	require.Equal(t, []admin.StatusCount{
		{Status: queue.StatusQueued, Count: 1},
		{Status: queue.StatusStarted, Count: 0},
		{Status: queue.StatusElevenLabs, Count: 2},
		{Status: queue.StatusConcatenator, Count: 0},
		{Status: queue.StatusDone, Count: 1},
	}, snap.Summary)
}

func TestListRequiresPrivilege(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.Respond("GET /admin/queuer", http.StatusForbidden, `{"error":{"message":"Admin only"}}`)

	_, err := newView(t, backend).List(context.Background())
	require.ErrorIs(t, err, api.ErrForbidden)
}

func TestDeleteOutcomes(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.AddRecord(queue.Record{ID: 4, Status: queue.StatusStarted})
	view := newView(t, backend)
	ctx := context.Background()

	res, err := view.Delete(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, admin.Deleted, res.Outcome)
	require.Nil(t, backend.Record(4))

	res, err = view.Delete(ctx, 4)
	require.NoError(t, err, "deleting twice is not an error")
	require.Equal(t, admin.AlreadyGone, res.Outcome)

	res, err = view.Delete(ctx, 404)
	require.NoError(t, err)
	require.Equal(t, admin.AlreadyGone, res.Outcome)
	require.Equal(t, "already gone", res.Outcome.String())
}

func TestDeleteMalformedIDIsDistinct(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	view := newView(t, backend)

	for _, id := range []int64{0, -3} {
		_, err := view.Delete(context.Background(), id)
		require.ErrorIs(t, err, admin.ErrInvalidID)
		require.NotErrorIs(t, err, api.ErrNotFound)
	}
	require.Zero(t, backend.Calls("DELETE /admin/queuer/0"))
}

func TestDeleteServerErrorPropagates(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.Respond("DELETE /admin/queuer/6", http.StatusInternalServerError, `{}`)

	_, err := newView(t, backend).Delete(context.Background(), 6)
	require.ErrorIs(t, err, api.ErrTransient)
	require.True(t, api.Retryable(err))
}

func TestDeletionNoticeMentionsCancellation(t *testing.T) {
	require.Contains(t, admin.DeletionNotice, "does not cancel")
}
