package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mantrify/internal/api"
	"mantrify/internal/pipeline"
	"mantrify/internal/queue"
	"mantrify/internal/testsupport"
)

func TestRefreshUpdatesStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.Track(t, store, 1, "Advancing")
	testsupport.Track(t, store, 2, "Vanished")
	testsupport.Track(t, store, 3, "Stale")
	require.NoError(t, store.ApplyObservation(ctx, 3, queue.StatusConcatenator))

	backend := testsupport.NewFakeBackend(t)
	backend.AddRecord(queue.Record{ID: 1, Status: queue.StatusElevenLabs})
	backend.AddRecord(queue.Record{ID: 3, Status: queue.StatusStarted})
	client, err := api.NewClient(api.Config{BaseURL: backend.URL()})
	require.NoError(t, err)

	observations, err := pipeline.Refresh(ctx, store, client, pipeline.DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, observations, 3)
	require.Equal(t, 1, backend.Calls("GET /admin/queuer"), "listing is fetched once")

	first, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, queue.StatusElevenLabs, first.Status)

	vanished, err := store.Get(ctx, 2)
	require.NoError(t, err)
	require.True(t, vanished.Removed)

	stale, err := store.Get(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, queue.StatusConcatenator, stale.Status)

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestRefreshWithNothingPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	observations, err := pipeline.Refresh(context.Background(), store, &scriptedSource{}, pipeline.DefaultPolicy())
	require.NoError(t, err)
	require.Empty(t, observations)
}
