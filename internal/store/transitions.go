package store

import (
	"context"
	"fmt"
	"time"

	"wsideid/internal/services"
	"wsideid/internal/workflow"
)

// SideEffects carries the field changes a transition writes together with the
// state change. Nil pointers leave the stored value untouched.
type SideEffects struct {
	LedgerJSON    *string
	ProcessedJSON *string
	TokenID       *string
	ImageID       *string
	Name          *string
	ManifestJSON  *string
	ErrorMessage  *string
}

// Transition applies a workflow action to an item as a single atomic unit:
// it validates legality against the item's current state, then writes the new
// state plus side effects guarded by the version read. A concurrent change
// surfaces as a conflict; an illegal action surfaces as a transition error
// and leaves the item untouched.
func (s *Store) Transition(ctx context.Context, id int64, action workflow.Action, effects SideEffects) (*Item, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := workflow.Next(item.State, action)
	if err != nil {
		return nil, services.Wrap(services.ErrTransition, "workflow", string(action), err.Error(), nil)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	setters := "state = ?, version = version + 1, updated_at = ?"
	args := []any{string(next), timestamp}

	// Quarantining remembers the prior state for provenance; leaving
	// quarantine clears it.
	if next == workflow.StateQuarantine {
		setters += ", prior_state = ?"
		args = append(args, string(item.State))
	} else {
		setters += ", prior_state = NULL"
	}
	if next == workflow.StateFinished {
		setters += ", finished_at = ?"
		args = append(args, timestamp)
	}
	if effects.LedgerJSON != nil {
		setters += ", ledger_json = ?"
		args = append(args, *effects.LedgerJSON)
	}
	if effects.ProcessedJSON != nil {
		setters += ", processed_json = ?"
		args = append(args, *effects.ProcessedJSON)
	}
	if effects.TokenID != nil {
		setters += ", token_id = ?"
		args = append(args, *effects.TokenID)
	}
	if effects.ImageID != nil {
		setters += ", image_id = ?"
		args = append(args, *effects.ImageID)
	}
	if effects.Name != nil {
		setters += ", name = ?"
		args = append(args, *effects.Name)
	}
	if effects.ManifestJSON != nil {
		setters += ", manifest_json = ?"
		args = append(args, *effects.ManifestJSON)
	}
	if effects.ErrorMessage != nil {
		setters += ", error_message = ?"
		args = append(args, *effects.ErrorMessage)
	}

	args = append(args, id, string(item.State), item.Version)
	res, err := s.execWithRetry(ctx,
		`UPDATE items SET `+setters+` WHERE id = ? AND state = ? AND version = ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("transition rows: %w", err)
	}
	if affected == 0 {
		return nil, services.Wrap(services.ErrConflict, "workflow", string(action),
			fmt.Sprintf("item %d changed concurrently; refetch and retry", id), nil)
	}
	return s.GetByID(ctx, id)
}

// UpdateLedger writes a new serialized ledger guarded by the version the
// caller read. A stale version fails with a conflict and the caller must
// refetch and resubmit.
func (s *Store) UpdateLedger(ctx context.Context, id, version int64, ledgerJSON string) (*Item, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE items SET ledger_json = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		ledgerJSON, now, id, version)
	if err != nil {
		return nil, fmt.Errorf("update ledger: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update ledger rows: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, services.Wrap(services.ErrConflict, "ledger", "update",
			fmt.Sprintf("item %d was edited concurrently; refetch and resubmit", id), nil)
	}
	return s.GetByID(ctx, id)
}
