package testsupport

import (
	"context"
	"testing"

	"mantrify/internal/config"
	"mantrify/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Track records a submission for tests using the provided store.
func Track(t testing.TB, store *queue.Store, queueID int64, title string) *queue.Submission {
	t.Helper()

	sub, err := store.Track(context.Background(), queueID, title, "")
	if err != nil {
		t.Fatalf("store.Track: %v", err)
	}
	return sub
}
