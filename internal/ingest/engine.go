package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"wsideid/internal/config"
	"wsideid/internal/fileutil"
	"wsideid/internal/ledger"
	"wsideid/internal/logging"
	"wsideid/internal/manifest"
	"wsideid/internal/preflight"
	"wsideid/internal/redact"
	"wsideid/internal/services"
	"wsideid/internal/store"
	"wsideid/internal/workflow"
)

// Engine reconciles the import location against its manifests. Each run
// classifies every discovered file and every manifest row into exactly one
// outcome category and ingests new material into the workflow.
type Engine struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
	reader *manifest.Reader
	policy redact.Policy
}

// New builds an import engine.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		store:  st,
		logger: logger.With(logging.String(logging.FieldComponent, "ingest")),
		reader: manifest.NewReader(cfg.Import),
		policy: redact.PolicyFromConfig(cfg),
	}
}

// Run executes one import pass. Only total unavailability of the import
// location aborts the run; per-file and per-row problems are accumulated
// into the outcome and its audit report.
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	if check := preflight.CheckDirectoryAccess("Import directory", e.cfg.Paths.ImportDir); !check.Passed {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "preflight", check.Detail, nil)
	}

	lock := flock.New(filepath.Join(e.cfg.Paths.DataDir, "import.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "lock", "acquire import lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConflict, "ingest", "lock", "another import run is active", nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if err := os.MkdirAll(e.managedDir(), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "prepare",
			"create managed image directory", err)
	}

	scan, err := scanImport(e.cfg.Paths.ImportDir)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{}
	var report []reportRow

	rows := e.readManifests(ctx, scan.Manifests, outcome, &report)

	var mu sync.Mutex
	matched := map[string]bool{}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.Workflow.Parallelism)
	for _, file := range scan.Files {
		file := file
		group.Go(func() error {
			result := e.reconcileFile(groupCtx, file, rows)

			mu.Lock()
			defer mu.Unlock()
			switch result.category {
			case "added":
				outcome.Added++
				matched[file.ImageID()] = true
			case "present":
				outcome.Present++
				matched[file.ImageID()] = true
			case "replaced":
				outcome.Replaced++
				matched[file.ImageID()] = true
			case "duplicate":
				outcome.Duplicate++
			case "unlisted":
				outcome.Unlisted++
			case "failed":
				outcome.Failed++
			}
			if result.newUnfiled {
				outcome.Unfiled++
			}
			report = append(report, reportRow{
				Source:  file.Path,
				Subject: file.ImageID(),
				Outcome: result.category,
				Detail:  result.detail,
			})
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	e.recordMissing(ctx, rows, matched, outcome, &report)

	reportPath, err := writeReport(e.cfg.Paths.ReportsDir, report)
	if err != nil {
		e.logger.Warn("audit report not written", logging.Error(err))
	} else {
		outcome.Report = reportPath
	}

	e.logger.Info("import run complete",
		logging.Int("manifests", len(scan.Manifests)),
		logging.Int("files", len(scan.Files)),
		logging.String("summary", outcome.Summary()),
	)
	return outcome, nil
}

// readManifests parses every manifest, persists its rows, and indexes them by
// image identifier for reconciliation.
func (e *Engine) readManifests(ctx context.Context, paths []string, outcome *Outcome, report *[]reportRow) map[string][]manifest.Row {
	rows := map[string][]manifest.Row{}
	for _, path := range paths {
		sheet, err := e.reader.Parse(path)
		if err != nil {
			if errors.Is(err, manifest.ErrBadFormat) {
				outcome.BadFormat++
				*report = append(*report, reportRow{Source: path, Outcome: "badformat", Detail: err.Error()})
			} else {
				outcome.NotExcel++
				*report = append(*report, reportRow{Source: path, Outcome: "notexcel", Detail: err.Error()})
			}
			continue
		}
		outcome.Parsed++
		outcome.BadEntry += len(sheet.Bad)
		for _, bad := range sheet.Bad {
			*report = append(*report, reportRow{
				Source:  path,
				Subject: fmt.Sprintf("line %d", bad.Line),
				Outcome: "badentry",
				Detail:  bad.Reason,
			})
		}
		for _, row := range sheet.Rows {
			rows[row.ImageID] = append(rows[row.ImageID], row)
			if err := e.store.UpsertManifestRow(ctx, store.ManifestRow{
				ImageID: row.ImageID,
				TokenID: row.TokenID,
				Fields:  row.Fields,
				Source:  row.Source,
				Line:    row.Line,
			}); err != nil {
				e.logger.Warn("manifest row not persisted",
					logging.String(logging.FieldImageID, row.ImageID), logging.Error(err))
			}
		}
	}
	return rows
}

// fileResult is the classification of one discovered file.
type fileResult struct {
	category   string
	detail     string
	newUnfiled bool
}

func failure(err error) fileResult {
	return fileResult{category: "failed", detail: err.Error()}
}

// reconcileFile classifies one discovered file and applies its storage side
// effects. Problems never abort the run; they come back as the category.
func (e *Engine) reconcileFile(ctx context.Context, file DiscoveredFile, rows map[string][]manifest.Row) fileResult {
	if err := sniffSlide(file.Path); err != nil {
		return failure(err)
	}

	id := file.ImageID()
	matches := rows[id]
	if len(matches) > 1 {
		return fileResult{category: "duplicate", detail: fmt.Sprintf("matches %d manifest rows", len(matches))}
	}
	if len(matches) == 1 {
		return e.ingestMatched(ctx, file, matches[0])
	}
	return e.ingestUnlisted(ctx, file)
}

func (e *Engine) ingestMatched(ctx context.Context, file DiscoveredFile, row manifest.Row) fileResult {
	sum, err := fileutil.Checksum(file.Path)
	if err != nil {
		return failure(err)
	}
	existing, err := e.store.GetByImageID(ctx, row.ImageID)
	if err != nil {
		return failure(err)
	}

	if existing != nil {
		if existing.Size == file.Size && existing.Checksum == sum {
			return fileResult{category: "present"}
		}
		managed, ledgerJSON, err := e.copyManaged(file)
		if err != nil {
			return failure(err)
		}
		if err := e.store.ReplaceContent(ctx, existing.ID, managed, file.Size, sum,
			string(formatForName(file.Name)), ledgerJSON); err != nil {
			return failure(err)
		}
		return fileResult{category: "replaced", detail: "content differs from managed copy"}
	}

	managed, ledgerJSON, err := e.copyManaged(file)
	if err != nil {
		return failure(err)
	}
	fields, err := json.Marshal(row.Fields)
	if err != nil {
		return failure(err)
	}
	if _, err := e.store.Insert(ctx, store.NewItemParams{
		ImageID:      row.ImageID,
		TokenID:      row.TokenID,
		Name:         file.Name,
		SourcePath:   managed,
		Size:         file.Size,
		Checksum:     sum,
		State:        workflow.StateIngest,
		Format:       string(formatForName(file.Name)),
		LedgerJSON:   ledgerJSON,
		ManifestJSON: string(fields),
	}); err != nil {
		return failure(err)
	}
	return fileResult{category: "added"}
}

// ingestUnlisted files the image without a token so it can be refiled once a
// manifest names it or its label text identifies it.
func (e *Engine) ingestUnlisted(ctx context.Context, file DiscoveredFile) fileResult {
	existing, err := e.store.GetByImageID(ctx, file.ImageID())
	if err != nil {
		return failure(err)
	}
	if existing != nil {
		return fileResult{category: "unlisted", detail: "already managed"}
	}

	sum, err := fileutil.Checksum(file.Path)
	if err != nil {
		return failure(err)
	}
	managed, ledgerJSON, err := e.copyManaged(file)
	if err != nil {
		return failure(err)
	}
	if _, err := e.store.Insert(ctx, store.NewItemParams{
		ImageID:    file.ImageID(),
		Name:       file.Name,
		SourcePath: managed,
		Size:       file.Size,
		Checksum:   sum,
		State:      workflow.StateUnfiled,
		Format:     string(formatForName(file.Name)),
		LedgerJSON: ledgerJSON,
	}); err != nil {
		return failure(err)
	}
	return fileResult{category: "unlisted", detail: "refiling pending", newUnfiled: true}
}

// copyManaged copies the file into the managed image directory and produces
// the standard starting ledger for it.
func (e *Engine) copyManaged(file DiscoveredFile) (string, string, error) {
	managed := filepath.Join(e.managedDir(), file.Name)
	if err := fileutil.CopyFileVerified(file.Path, managed); err != nil {
		return "", "", err
	}
	ledgerJSON, err := ledger.Standard(e.policy).Encode()
	if err != nil {
		return "", "", err
	}
	return managed, ledgerJSON, nil
}

// recordMissing accounts for manifest rows that no discovered file satisfied.
// Token-only rows are reservations, not expectations, so they never count as
// missing.
func (e *Engine) recordMissing(ctx context.Context, rows map[string][]manifest.Row, matched map[string]bool, outcome *Outcome, report *[]reportRow) {
	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if matched[id] || rows[id][0].TokenOnly() {
			continue
		}
		existing, err := e.store.GetByImageID(ctx, id)
		if err != nil {
			e.logger.Warn("missing-row lookup failed",
				logging.String(logging.FieldImageID, id), logging.Error(err))
			continue
		}
		if existing != nil {
			continue
		}
		outcome.Missing++
		*report = append(*report, reportRow{
			Source:  rows[id][0].Source,
			Subject: id,
			Outcome: "missing",
			Detail:  "no file in import location",
		})
	}
}

func (e *Engine) managedDir() string {
	return filepath.Join(e.cfg.Paths.DataDir, "images")
}
