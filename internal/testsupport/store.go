package testsupport

import (
	"context"
	"testing"

	"recoder/internal/config"
	"recoder/internal/history"
)

// MustOpenHistory opens the history store for cfg and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(context.Background(), cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustBeginRun inserts a run row for tests that record outcomes.
func MustBeginRun(t testing.TB, store *history.Store, id string, encoders ...string) {
	t.Helper()

	if err := store.BeginRun(context.Background(), history.Run{ID: id, Encoders: encoders}); err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
}
