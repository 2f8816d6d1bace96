package testsupport

import (
	"context"
	"testing"

	"wsideid/internal/config"
	"wsideid/internal/store"
	"wsideid/internal/workflow"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewItem inserts a minimal item in the given state for tests.
func NewItem(t testing.TB, st *store.Store, imageID string, state workflow.State) *store.Item {
	t.Helper()

	item, err := st.Insert(context.Background(), store.NewItemParams{
		ImageID: imageID,
		TokenID: "T0001",
		Name:    imageID + ".svs",
		State:   state,
	})
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return item
}
