package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"wsideid/internal/config"
	"wsideid/internal/fileutil"
	"wsideid/internal/logging"
	"wsideid/internal/preflight"
	"wsideid/internal/services"
	"wsideid/internal/store"
	"wsideid/internal/workflow"
)

// Mode selects which finished items an export run considers.
type Mode string

const (
	// ModeRecent exports items finished since the last clean export run.
	ModeRecent Mode = "recent"
	// ModeAll exports every finished item.
	ModeAll Mode = "all"
)

// Outcome accumulates the per-item classifications of one export run.
type Outcome struct {
	Transferred int
	Present     int
	Different   int
	Quarantined int
	Rejected    int
	Failed      int

	// Report is the path of the export report written for this run, when one
	// was produced.
	Report string
}

// Clean reports whether the run finished without transfer failures.
func (o *Outcome) Clean() bool {
	return o.Failed == 0
}

// Summary renders the non-zero counters in a fixed order.
func (o *Outcome) Summary() string {
	parts := []string{}
	add := func(name string, count int) {
		if count > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", name, count))
		}
	}
	add("transferred", o.Transferred)
	add("present", o.Present)
	add("different", o.Different)
	add("quarantined", o.Quarantined)
	add("rejected", o.Rejected)
	add("failed", o.Failed)
	if len(parts) == 0 {
		return "nothing to export"
	}
	result := parts[0]
	for _, part := range parts[1:] {
		result += ", " + part
	}
	return result
}

// Engine copies approved items to the export location.
type Engine struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

// New builds an export engine.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		store:  st,
		logger: logger.With(logging.String(logging.FieldComponent, "export")),
	}
}

// Run executes one export pass. Transfer failures leave the item finished
// but unexported and keep the run from being recorded, so the next recent
// run retries it.
func (e *Engine) Run(ctx context.Context, mode Mode) (*Outcome, error) {
	if check := preflight.CheckDirectoryAccess("Export directory", e.cfg.Paths.ExportDir); !check.Passed {
		return nil, services.Wrap(services.ErrConfiguration, "export", "preflight", check.Detail, nil)
	}

	lock := flock.New(filepath.Join(e.cfg.Paths.DataDir, "export.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "export", "lock", "acquire export lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConflict, "export", "lock", "another export run is active", nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	selected, err := e.selectItems(ctx, mode)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{}
	var report []reportRow

	if mode == ModeAll {
		// Surface what "all" silently leaves behind.
		held, err := e.store.List(ctx, workflow.StateQuarantine)
		if err != nil {
			return nil, err
		}
		outcome.Quarantined = len(held)
		rejected, err := e.store.List(ctx, workflow.StateRejected)
		if err != nil {
			return nil, err
		}
		outcome.Rejected = len(rejected)
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.Workflow.Parallelism)
	for _, item := range selected {
		item := item
		group.Go(func() error {
			category, detail := e.transfer(groupCtx, item)

			mu.Lock()
			defer mu.Unlock()
			switch category {
			case "transferred":
				outcome.Transferred++
			case "present":
				outcome.Present++
			case "different":
				outcome.Different++
			case "failed":
				outcome.Failed++
			}
			report = append(report, e.reportRowFor(item, category, detail))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	reportPath, err := writeReport(e.cfg.Paths.ReportsDir, e.cfg.Export.ReportFields, report)
	if err != nil {
		e.logger.Warn("export report not written", logging.Error(err))
	} else {
		outcome.Report = reportPath
	}

	if outcome.Clean() {
		if err := e.store.RecordExportRun(ctx, time.Now().UTC()); err != nil {
			e.logger.Warn("export run not recorded", logging.Error(err))
		}
	}

	e.logger.Info("export run complete",
		logging.String("mode", string(mode)),
		logging.Int("selected", len(selected)),
		logging.String("summary", outcome.Summary()),
	)
	return outcome, nil
}

// selectItems returns the finished items in scope for the mode. Recent mode
// uses the last clean run's timestamp; with none recorded it behaves as all.
func (e *Engine) selectItems(ctx context.Context, mode Mode) ([]*store.Item, error) {
	finished, err := e.store.List(ctx, workflow.StateFinished)
	if err != nil {
		return nil, err
	}
	if mode != ModeRecent {
		return finished, nil
	}

	since, ok, err := e.store.LastExportRun(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return finished, nil
	}

	var selected []*store.Item
	for _, item := range finished {
		if item.FinishedAt != nil && item.FinishedAt.After(since) {
			selected = append(selected, item)
		}
	}
	return selected, nil
}

// transfer classifies one item against the export destination and copies it
// when absent.
func (e *Engine) transfer(ctx context.Context, item *store.Item) (string, string) {
	dest := filepath.Join(e.cfg.Paths.ExportDir, exportName(item))

	if info, err := os.Stat(dest); err == nil {
		if info.Size() == item.Size {
			return "present", ""
		}
		return "different", fmt.Sprintf("destination has %d bytes, item has %d", info.Size(), item.Size)
	} else if !os.IsNotExist(err) {
		return "failed", services.Wrap(services.ErrTransfer, "export", "stat", dest, err).Error()
	}

	if err := fileutil.CopyFileVerified(item.SourcePath, dest); err != nil {
		return "failed", services.Wrap(services.ErrTransfer, "export", "copy", dest, err).Error()
	}
	if err := e.store.MarkExported(ctx, item.ID, time.Now().UTC()); err != nil {
		e.logger.Warn("export stamp not recorded",
			logging.Int64(logging.FieldItemID, item.ID), logging.Error(err))
	}
	return "transferred", ""
}

// exportName derives the destination file name for an item.
func exportName(item *store.Item) string {
	return item.Name
}
