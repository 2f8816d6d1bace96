package labelmatch_test

import (
	"context"
	"fmt"
	"testing"

	"wsideid/internal/labelmatch"
	"wsideid/internal/store"
	"wsideid/internal/testsupport"
	"wsideid/internal/workflow"
)

func TestRunRefilesMatchedItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Import.TextAssociationColumns = []string{"SurgPathNum"}
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.UpsertManifestRow(ctx, store.ManifestRow{
		ImageID: "IMG0001",
		TokenID: "T0001",
		Fields:  map[string]string{"SurgPathNum": "SP-11"},
	}); err != nil {
		t.Fatal(err)
	}

	item, err := st.Insert(ctx, store.NewItemParams{
		ImageID: "scan_0042",
		Name:    "scan_0042.svs",
		State:   workflow.StateUnfiled,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SetLabelText(ctx, item.ID, "SP-11 SMITH"); err != nil {
		t.Fatal(err)
	}

	outcome, err := labelmatch.NewCorrelator(cfg, st, nil).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Matched != 1 || outcome.Unmatched != 0 {
		t.Fatalf("unexpected outcome: %s", outcome.Summary())
	}

	refiled, err := st.GetByImageID(ctx, "IMG0001")
	if err != nil || refiled == nil {
		t.Fatalf("refiled item not found: %v", err)
	}
	if refiled.State != workflow.StateIngest || refiled.TokenID != "T0001" {
		t.Fatalf("unexpected refiled item: %+v", refiled)
	}
}

func TestRunLeavesUnscannedAndUnmatched(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.UpsertManifestRow(ctx, store.ManifestRow{ImageID: "IMG0001", TokenID: "T0001"}); err != nil {
		t.Fatal(err)
	}

	testsupport.NewItem(t, st, "scan_1", workflow.StateUnfiled)

	scanned, err := st.Insert(ctx, store.NewItemParams{
		ImageID: "scan_2",
		Name:    "scan_2.svs",
		State:   workflow.StateUnfiled,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SetLabelText(ctx, scanned.ID, "nothing recognizable"); err != nil {
		t.Fatal(err)
	}

	outcome, err := labelmatch.NewCorrelator(cfg, st, nil).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Matched != 0 || outcome.Unmatched != 1 || outcome.Unscanned != 1 {
		t.Fatalf("unexpected outcome: %s", outcome.Summary())
	}
}

func TestRunRefilesEveryMatchedItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rows := map[string]string{"IMG0001": "T0001", "IMG0002": "T0002"}
	for imageID, tokenID := range rows {
		if err := st.UpsertManifestRow(ctx, store.ManifestRow{ImageID: imageID, TokenID: tokenID}); err != nil {
			t.Fatal(err)
		}
	}
	for i, token := range []string{"T0001", "T0002"} {
		item, err := st.Insert(ctx, store.NewItemParams{
			ImageID: fmt.Sprintf("scan_%d", i),
			Name:    fmt.Sprintf("scan_%d.svs", i),
			State:   workflow.StateUnfiled,
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := st.SetLabelText(ctx, item.ID, token+" SMITH"); err != nil {
			t.Fatal(err)
		}
	}

	outcome, err := labelmatch.NewCorrelator(cfg, st, nil).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Matched != 2 || outcome.Unmatched != 0 {
		t.Fatalf("every item has a unique row: %s", outcome.Summary())
	}

	// Matches after the first run against the compacted candidate list; each
	// item must land on its own row.
	for imageID, tokenID := range rows {
		item, err := st.GetByImageID(ctx, imageID)
		if err != nil || item == nil {
			t.Fatalf("refiled item %s not found: %v", imageID, err)
		}
		if item.State != workflow.StateIngest || item.TokenID != tokenID {
			t.Fatalf("unexpected refiled item: %+v", item)
		}
	}
}

func TestRunConsumesRowsOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.UpsertManifestRow(ctx, store.ManifestRow{ImageID: "IMG0001", TokenID: "T0001"}); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"scan_1", "scan_2"} {
		item, err := st.Insert(ctx, store.NewItemParams{
			ImageID: id,
			Name:    id + ".svs",
			State:   workflow.StateUnfiled,
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := st.SetLabelText(ctx, item.ID, "T0001"); err != nil {
			t.Fatal(err)
		}
	}

	outcome, err := labelmatch.NewCorrelator(cfg, st, nil).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Matched != 1 || outcome.Unmatched != 1 {
		t.Fatalf("a manifest row may satisfy only one item: %s", outcome.Summary())
	}
}
