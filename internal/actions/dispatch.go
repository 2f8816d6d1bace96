package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"wsideid/internal/ledger"
	"wsideid/internal/manifest"
	"wsideid/internal/redact"
	"wsideid/internal/services"
	"wsideid/internal/store"
	"wsideid/internal/workflow"
)

// ItemRequest carries the arguments of a per-item action. Only the fields
// the action consumes are read.
type ItemRequest struct {
	ID int64
	// Identifier targets a manifest row (or bare token) for refile.
	Identifier string
	// Edits is the full replacement redaction ledger for process. Nil keeps
	// the item's current ledger.
	Edits *ledger.Ledger
	// Version, when non-zero, is the item version the edits were prepared
	// against. A concurrent change since then fails with a conflict and the
	// caller must refetch and resubmit.
	Version int64
	// Actor is recorded in the redaction provenance.
	Actor string
}

type itemHandler func(s *Service, ctx context.Context, req ItemRequest) (*store.Item, error)

// itemHandlers is the dispatch table for the per-item action surface. Every
// name maps to exactly one workflow transition (ocr is the exception: it
// records label text without changing state).
var itemHandlers = map[string]itemHandler{
	"quarantine":   transitionHandler(workflow.ActionQuarantine),
	"unquarantine": transitionHandler(workflow.ActionUnquarantine),
	"reject":       transitionHandler(workflow.ActionReject),
	"finish":       transitionHandler(workflow.ActionFinish),
	"process":      (*Service).process,
	"refile":       (*Service).refile,
	"ocr":          (*Service).scanLabel,
}

// ActionNames lists the dispatchable per-item actions, sorted.
func ActionNames() []string {
	names := make([]string, 0, len(itemHandlers))
	for name := range itemHandlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply dispatches a named per-item action.
func (s *Service) Apply(ctx context.Context, action string, req ItemRequest) (*store.Item, error) {
	handler, ok := itemHandlers[action]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "actions", "dispatch",
			fmt.Sprintf("unknown action %q", action), nil)
	}
	ctx = services.WithAction(services.WithItemID(ctx, req.ID), action)
	return handler(s, ctx, req)
}

func transitionHandler(action workflow.Action) itemHandler {
	return func(s *Service, ctx context.Context, req ItemRequest) (*store.Item, error) {
		return s.store.Transition(ctx, req.ID, action, store.SideEffects{})
	}
}

// process applies the reviewer's ledger edits and advances the item to
// processed, recording redaction provenance. The ledger write is guarded by
// the version the edits were prepared against, so a concurrent edit of the
// same item conflicts instead of being overwritten.
func (s *Service) process(ctx context.Context, req ItemRequest) (*store.Item, error) {
	item, err := s.store.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Next(item.State, workflow.ActionProcess); err != nil {
		return nil, services.Wrap(services.ErrTransition, "workflow",
			string(workflow.ActionProcess), err.Error(), nil)
	}

	led, err := item.Ledger()
	if err != nil {
		return nil, err
	}
	if req.Edits != nil {
		if err := s.validateEdits(item, req.Edits); err != nil {
			return nil, err
		}
		if err := led.ApplyEdits(req.Edits, s.policy); err != nil {
			return nil, err
		}
	}
	ledgerJSON, err := led.Encode()
	if err != nil {
		return nil, err
	}

	guard := item.Version
	if req.Version != 0 {
		guard = req.Version
	}
	if _, err := s.store.UpdateLedger(ctx, item.ID, guard, ledgerJSON); err != nil {
		return nil, err
	}

	metadata, images, area := led.Counts()
	processedJSON, err := store.EncodeProcessedInfo(store.ProcessedInfo{
		Time:         time.Now().UTC(),
		Actor:        req.Actor,
		OriginalSize: item.Size,
		RedactedSize: item.Size,
		Metadata:     metadata,
		Images:       images,
		Area:         area,
	})
	if err != nil {
		return nil, err
	}

	return s.store.Transition(ctx, item.ID, workflow.ActionProcess, store.SideEffects{
		ProcessedJSON: &processedJSON,
	})
}

// validateEdits rejects edits that target keys the pattern sets put out of
// the reviewer's reach: hidden keys are never shown, control keys are
// protected from redaction.
func (s *Service) validateEdits(item *store.Item, edits *ledger.Ledger) error {
	format := redact.ParseFormat(item.Format)
	for key := range edits.Metadata {
		if s.matcher.Hidden(format, key, "") {
			return services.Wrap(services.ErrValidation, "actions", "process",
				fmt.Sprintf("metadata key %q is hidden by policy", key), nil)
		}
		if s.matcher.Protected(format, key, "") {
			return services.Wrap(services.ErrValidation, "actions", "process",
				fmt.Sprintf("metadata key %q is protected from redaction", key), nil)
		}
	}
	return nil
}

// refile attaches an unfiled item to a manifest identity. The identifier may
// be an image identifier, a bare folder token from a token-only row, or a
// bare token with no manifest row at all (the identity is then synthesized).
func (s *Service) refile(ctx context.Context, req ItemRequest) (*store.Item, error) {
	if req.Identifier == "" {
		return nil, services.Wrap(services.ErrValidation, "actions", "refile", "identifier required", nil)
	}

	imageID := req.Identifier
	tokenID := req.Identifier
	var fields map[string]string

	row, err := s.resolveIdentifier(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}
	if row != nil {
		imageID = row.ImageID
		tokenID = row.TokenID
		fields = row.Fields
	} else {
		// No manifest row: accept a bare token and reserve the token-only
		// identity for it.
		imageID = manifest.TokenOnlyPrefix + req.Identifier
	}

	occupied, err := s.store.GetByImageID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if occupied != nil && occupied.ID != req.ID {
		return nil, services.Wrap(services.ErrValidation, "actions", "refile",
			fmt.Sprintf("identifier %q already has an item", req.Identifier), nil)
	}

	manifestJSON := ""
	if fields != nil {
		encoded, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		manifestJSON = string(encoded)
	}

	return s.store.Transition(ctx, req.ID, workflow.ActionRefile, store.SideEffects{
		TokenID:      &tokenID,
		ImageID:      &imageID,
		ManifestJSON: &manifestJSON,
	})
}

// resolveIdentifier finds the manifest row for a refile identifier, trying
// the image identifier first and then the token-only form.
func (s *Service) resolveIdentifier(ctx context.Context, identifier string) (*store.ManifestRow, error) {
	row, err := s.store.ManifestRowByImageID(ctx, identifier)
	if err != nil || row != nil {
		return row, err
	}
	return s.store.ManifestRowByImageID(ctx, manifest.TokenOnlyPrefix+identifier)
}

// scanLabel runs text recognition on the item's label and records the
// result. An empty recognition still marks the item scanned.
func (s *Service) scanLabel(ctx context.Context, req ItemRequest) (*store.Item, error) {
	item, err := s.store.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	text, err := s.ocr.RecognizeLabel(ctx, item.SourcePath)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetLabelText(ctx, item.ID, text); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, item.ID)
}
