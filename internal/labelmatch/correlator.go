package labelmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"wsideid/internal/config"
	"wsideid/internal/logging"
	"wsideid/internal/store"
	"wsideid/internal/workflow"
)

// Outcome accumulates the results of one correlation pass.
type Outcome struct {
	Matched   int
	Unmatched int
	Unscanned int
}

// Summary renders the counters for logs and CLI output.
func (o *Outcome) Summary() string {
	return fmt.Sprintf("matched %d, unmatched %d, unscanned %d", o.Matched, o.Unmatched, o.Unscanned)
}

// Correlator matches unfiled items to manifest rows by their recognized
// label text and refiles the ones it can place.
type Correlator struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

// NewCorrelator builds a label-text correlator.
func NewCorrelator(cfg *config.Config, st *store.Store, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Correlator{
		cfg:    cfg,
		store:  st,
		logger: logger.With(logging.String(logging.FieldComponent, "labelmatch")),
	}
}

// Run attempts to refile every scanned unfiled item. Items without a label
// scan are counted but left alone; the OCR action fills those in.
func (c *Correlator) Run(ctx context.Context) (*Outcome, error) {
	unfiled, err := c.store.List(ctx, workflow.StateUnfiled)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{}
	if len(unfiled) == 0 {
		return outcome, nil
	}

	rows, err := c.store.UnattachedManifestRows(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, NewCandidate(row, c.cfg.Import.TextAssociationColumns))
	}

	for _, item := range unfiled {
		if !item.LabelScanned() {
			outcome.Unscanned++
			continue
		}
		match := BestMatch(item.LabelWords(), candidates)
		if match == nil {
			outcome.Unmatched++
			continue
		}
		// match aliases a candidates element that the compaction below
		// overwrites, so take what we need from it first.
		matchedRow := match.Row
		if err := c.refile(ctx, item, matchedRow); err != nil {
			c.logger.Warn("refile after match failed",
				logging.Int64(logging.FieldItemID, item.ID),
				logging.String(logging.FieldImageID, matchedRow.ImageID),
				logging.Error(err))
			outcome.Unmatched++
			continue
		}
		outcome.Matched++

		// The consumed row cannot satisfy another item.
		remaining := candidates[:0]
		for _, candidate := range candidates {
			if candidate.Row.ImageID != matchedRow.ImageID {
				remaining = append(remaining, candidate)
			}
		}
		candidates = remaining
	}

	c.logger.Info("label correlation complete", logging.String("summary", outcome.Summary()))
	return outcome, nil
}

// refile attaches the item to the matched manifest row's identity.
func (c *Correlator) refile(ctx context.Context, item *store.Item, row *store.ManifestRow) error {
	fields, err := json.Marshal(row.Fields)
	if err != nil {
		return err
	}
	manifestJSON := string(fields)
	_, err = c.store.Transition(ctx, item.ID, workflow.ActionRefile, store.SideEffects{
		TokenID:      &row.TokenID,
		ImageID:      &row.ImageID,
		ManifestJSON: &manifestJSON,
	})
	return err
}
