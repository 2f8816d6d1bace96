package actions

import (
	"context"

	"wsideid/internal/store"
	"wsideid/internal/workflow"
)

// Item fetches one item by database id.
func (s *Service) Item(ctx context.Context, id int64) (*store.Item, error) {
	return s.store.GetByID(ctx, id)
}

// Items lists items, optionally filtered by state.
func (s *Service) Items(ctx context.Context, states ...workflow.State) ([]*store.Item, error) {
	return s.store.List(ctx, states...)
}

// NextItem returns the item most in need of reviewer attention, or nil.
func (s *Service) NextItem(ctx context.Context) (*store.Item, error) {
	return s.store.NextAttention(ctx)
}

// Counts aggregates item counts per workflow state.
func (s *Service) Counts(ctx context.Context) (map[workflow.State]int, error) {
	return s.store.CountsByState(ctx)
}

// RefileList returns the manifest identities an unfiled item could be
// refiled onto.
func (s *Service) RefileList(ctx context.Context) ([]*store.ManifestRow, error) {
	return s.store.UnattachedManifestRows(ctx)
}

// FolderState summarizes a token folder: the aggregate of its items' states.
func (s *Service) FolderState(ctx context.Context, tokenID string) (workflow.State, int, error) {
	items, err := s.store.ItemsByToken(ctx, tokenID)
	if err != nil {
		return "", 0, err
	}
	states := make([]workflow.State, 0, len(items))
	for _, item := range items {
		states = append(states, item.State)
	}
	return workflow.AggregateState(states), len(items), nil
}
