package actions

import (
	"context"
	"fmt"

	"wsideid/internal/exporter"
	"wsideid/internal/ingest"
	"wsideid/internal/jobs"
	"wsideid/internal/labelmatch"
	"wsideid/internal/logging"
	"wsideid/internal/workflow"
)

// Ingest runs one import reconciliation pass synchronously. With
// ocr_on_import enabled, label recognition and correlation follow the pass
// so unfiled items can find their manifest rows immediately.
func (s *Service) Ingest(ctx context.Context) (*ingest.Outcome, error) {
	outcome, err := s.ingest.Run(ctx)
	if err != nil {
		return nil, err
	}
	if s.cfg.Import.OCROnImport {
		if _, err := s.scanUnfiled(ctx); err != nil {
			s.logger.Warn("post-import label scan failed", logging.Error(err))
		} else if _, err := s.correlator.Run(ctx); err != nil {
			s.logger.Warn("post-import correlation failed", logging.Error(err))
		}
	}
	return outcome, nil
}

// IngestAsync launches Ingest as a job.
func (s *Service) IngestAsync(ctx context.Context) jobs.Job {
	return s.jobs.Launch(ctx, "ingest", func(jobCtx context.Context) (string, error) {
		outcome, err := s.Ingest(jobCtx)
		if err != nil {
			return "", err
		}
		return outcome.Summary(), nil
	})
}

// Export runs one export pass synchronously.
func (s *Service) Export(ctx context.Context, mode exporter.Mode) (*exporter.Outcome, error) {
	return s.exporter.Run(ctx, mode)
}

// ExportAsync launches Export as a job.
func (s *Service) ExportAsync(ctx context.Context, mode exporter.Mode) jobs.Job {
	kind := "export"
	if mode == exporter.ModeAll {
		kind = "exportall"
	}
	return s.jobs.Launch(ctx, kind, func(jobCtx context.Context) (string, error) {
		outcome, err := s.exporter.Run(jobCtx, mode)
		if err != nil {
			return "", err
		}
		return outcome.Summary(), nil
	})
}

// OCRAll launches label recognition over every unscanned unfiled item,
// followed by a correlation pass. It reports false when nothing is eligible.
func (s *Service) OCRAll(ctx context.Context) (jobs.Job, bool, error) {
	unfiled, err := s.store.List(ctx, workflow.StateUnfiled)
	if err != nil {
		return jobs.Job{}, false, err
	}
	eligible := 0
	for _, item := range unfiled {
		if !item.LabelScanned() {
			eligible++
		}
	}
	if eligible == 0 {
		return jobs.Job{}, false, nil
	}

	job := s.jobs.Launch(ctx, "ocrall", func(jobCtx context.Context) (string, error) {
		scanned, err := s.scanUnfiled(jobCtx)
		if err != nil {
			return "", err
		}
		outcome, err := s.correlator.Run(jobCtx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("scanned %d, %s", scanned, outcome.Summary()), nil
	})
	return job, true, nil
}

// scanUnfiled runs label recognition for unfiled items that have not been
// scanned yet. Recognition failures are recorded per item and do not abort
// the pass.
func (s *Service) scanUnfiled(ctx context.Context) (int, error) {
	unfiled, err := s.store.List(ctx, workflow.StateUnfiled)
	if err != nil {
		return 0, err
	}
	scanned := 0
	for _, item := range unfiled {
		if item.LabelScanned() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return scanned, err
		}
		text, err := s.ocr.RecognizeLabel(ctx, item.SourcePath)
		if err != nil {
			s.logger.Warn("label recognition failed",
				logging.Int64(logging.FieldItemID, item.ID), logging.Error(err))
			continue
		}
		if err := s.store.SetLabelText(ctx, item.ID, text); err != nil {
			return scanned, err
		}
		scanned++
	}
	return scanned, nil
}

// Correlate runs one label-text correlation pass synchronously.
func (s *Service) Correlate(ctx context.Context) (*labelmatch.Outcome, error) {
	return s.correlator.Run(ctx)
}

// BulkOutcome reports a bulk apply over an explicit id list. Failures are
// per-item and never abort the batch.
type BulkOutcome struct {
	Succeeded int
	Failed    map[int64]string
}

// BulkApply applies one action to each listed item independently.
func (s *Service) BulkApply(ctx context.Context, action string, ids []int64, actor string) *BulkOutcome {
	outcome := &BulkOutcome{Failed: map[int64]string{}}
	for _, id := range ids {
		if _, err := s.Apply(ctx, action, ItemRequest{ID: id, Actor: actor}); err != nil {
			outcome.Failed[id] = err.Error()
			continue
		}
		outcome.Succeeded++
	}
	return outcome
}
