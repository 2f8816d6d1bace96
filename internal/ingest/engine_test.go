package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"wsideid/internal/config"
	"wsideid/internal/ingest"
	"wsideid/internal/services"
	"wsideid/internal/store"
	"wsideid/internal/testsupport"
	"wsideid/internal/workflow"
)

var tiffHeader = []byte{0x49, 0x49, 0x2a, 0x00}

func writeSlide(t *testing.T, dir, name, payload string) {
	t.Helper()
	data := append(append([]byte{}, tiffHeader...), []byte(payload)...)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newEngine(t *testing.T) (*ingest.Engine, *config.Config, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	return ingest.New(cfg, st, nil), cfg, st
}

func TestRunReconcilesFilesAgainstManifest(t *testing.T) {
	engine, cfg, st := newEngine(t)
	ctx := context.Background()

	writeManifest(t, cfg.Paths.ImportDir, "upload.csv",
		"TokenID,ImageID\nT0001,A\nT0001,B\n")
	writeSlide(t, cfg.Paths.ImportDir, "A.svs", "slide A")
	writeSlide(t, cfg.Paths.ImportDir, "C.svs", "slide C")

	outcome, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if outcome.Added != 1 || outcome.Missing != 1 || outcome.Unlisted != 1 {
		t.Fatalf("unexpected outcome: %s", outcome.Summary())
	}
	if outcome.Parsed != 1 || outcome.Unfiled != 1 {
		t.Fatalf("unexpected manifest accounting: %s", outcome.Summary())
	}
	if outcome.Report == "" {
		t.Fatal("expected an audit report")
	}
	if _, err := os.Stat(outcome.Report); err != nil {
		t.Fatalf("audit report missing: %v", err)
	}

	added, err := st.GetByImageID(ctx, "A")
	if err != nil || added == nil {
		t.Fatalf("item A not ingested: %v", err)
	}
	if added.State != workflow.StateIngest || added.TokenID != "T0001" {
		t.Fatalf("unexpected item A: %+v", added)
	}
	if _, err := os.Stat(added.SourcePath); err != nil {
		t.Fatalf("managed copy missing: %v", err)
	}

	unfiled, err := st.GetByImageID(ctx, "C")
	if err != nil || unfiled == nil {
		t.Fatalf("item C not ingested: %v", err)
	}
	if unfiled.State != workflow.StateUnfiled || unfiled.TokenID != "" {
		t.Fatalf("unexpected item C: %+v", unfiled)
	}
}

func TestRerunReportsPresent(t *testing.T) {
	engine, cfg, _ := newEngine(t)
	ctx := context.Background()

	writeManifest(t, cfg.Paths.ImportDir, "upload.csv", "TokenID,ImageID\nT0001,A\n")
	writeSlide(t, cfg.Paths.ImportDir, "A.svs", "slide A")

	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	outcome, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if outcome.Added != 0 || outcome.Present != 1 || outcome.Replaced != 0 {
		t.Fatalf("rerun must be idempotent: %s", outcome.Summary())
	}
}

func TestChangedContentReplacesAndResetsReview(t *testing.T) {
	engine, cfg, st := newEngine(t)
	ctx := context.Background()

	writeManifest(t, cfg.Paths.ImportDir, "upload.csv", "TokenID,ImageID\nT0001,A\n")
	writeSlide(t, cfg.Paths.ImportDir, "A.svs", "original scan")
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	item, err := st.GetByImageID(ctx, "A")
	if err != nil || item == nil {
		t.Fatalf("item A not found: %v", err)
	}
	if _, err := st.Transition(ctx, item.ID, workflow.ActionProcess, store.SideEffects{}); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	writeSlide(t, cfg.Paths.ImportDir, "A.svs", "rescanned with different content")
	outcome, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if outcome.Replaced != 1 {
		t.Fatalf("expected replaced, got %s", outcome.Summary())
	}

	replaced, err := st.GetByImageID(ctx, "A")
	if err != nil {
		t.Fatalf("GetByImageID failed: %v", err)
	}
	if replaced.State != workflow.StateIngest {
		t.Fatalf("replaced content must restart review, got %s", replaced.State)
	}
}

func TestDuplicateManifestRows(t *testing.T) {
	engine, cfg, _ := newEngine(t)
	ctx := context.Background()

	writeManifest(t, cfg.Paths.ImportDir, "upload.csv",
		"TokenID,ImageID\nT0001,A\nT0002,A\n")
	writeSlide(t, cfg.Paths.ImportDir, "A.svs", "slide A")

	outcome, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Duplicate != 1 || outcome.Added != 0 {
		t.Fatalf("ambiguous file must not be ingested: %s", outcome.Summary())
	}
}

func TestBadEntryTakesPrecedence(t *testing.T) {
	engine, cfg, _ := newEngine(t)
	ctx := context.Background()

	// The row for A is malformed, so A's file is unlisted rather than the
	// row counting as missing.
	writeManifest(t, cfg.Paths.ImportDir, "upload.csv",
		"TokenID,ImageID\nbad token,A\n")
	writeSlide(t, cfg.Paths.ImportDir, "A.svs", "slide A")

	outcome, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.BadEntry != 1 || outcome.Missing != 0 || outcome.Unlisted != 1 {
		t.Fatalf("unexpected outcome: %s", outcome.Summary())
	}
}

func TestUnreadableManifestCountsNotExcel(t *testing.T) {
	engine, cfg, _ := newEngine(t)
	ctx := context.Background()

	writeManifest(t, cfg.Paths.ImportDir, "upload.xls", "this is not a workbook")
	writeManifest(t, cfg.Paths.ImportDir, "columns.csv", "PatientName,Slide\nSmith,one\n")
	writeSlide(t, cfg.Paths.ImportDir, "A.svs", "slide A")

	outcome, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.NotExcel != 1 || outcome.BadFormat != 1 || outcome.Parsed != 0 {
		t.Fatalf("unexpected manifest accounting: %s", outcome.Summary())
	}
	if outcome.Unlisted != 1 {
		t.Fatalf("with no usable manifest all files are unlisted: %s", outcome.Summary())
	}
}

func TestUnusableFileCountsFailed(t *testing.T) {
	engine, cfg, st := newEngine(t)
	ctx := context.Background()

	writeManifest(t, cfg.Paths.ImportDir, "upload.csv", "TokenID,ImageID\nT0001,A\n")
	if err := os.WriteFile(filepath.Join(cfg.Paths.ImportDir, "A.svs"), []byte("not a tiff"), 0o644); err != nil {
		t.Fatal(err)
	}

	outcome, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Failed != 1 || outcome.Added != 0 {
		t.Fatalf("unexpected outcome: %s", outcome.Summary())
	}

	item, err := st.GetByImageID(ctx, "A")
	if err != nil {
		t.Fatalf("GetByImageID failed: %v", err)
	}
	if item != nil {
		t.Fatalf("unusable file must stay out of the workflow: %+v", item)
	}
}

func TestMissingImportDirIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if err := os.RemoveAll(cfg.Paths.ImportDir); err != nil {
		t.Fatal(err)
	}

	engine := ingest.New(cfg, st, nil)
	_, err := engine.Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !services.Fatal(err) {
		t.Fatal("import location unavailability must be fatal to the run")
	}
}
