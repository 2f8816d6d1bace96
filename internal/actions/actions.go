package actions

import (
	"log/slog"

	"wsideid/internal/config"
	"wsideid/internal/exporter"
	"wsideid/internal/ingest"
	"wsideid/internal/jobs"
	"wsideid/internal/labelmatch"
	"wsideid/internal/logging"
	"wsideid/internal/redact"
	"wsideid/internal/services/tesseract"
	"wsideid/internal/store"
)

// Service owns the action surface of the pipeline: batch operations, the
// per-item workflow actions, and the review queries. A presentation layer
// (CLI here) calls these and renders the structured outcomes.
type Service struct {
	cfg        *config.Config
	store      *store.Store
	logger     *slog.Logger
	jobs       *jobs.Manager
	matcher    *redact.Matcher
	policy     redact.Policy
	ingest     *ingest.Engine
	exporter   *exporter.Engine
	correlator *labelmatch.Correlator
	ocr        *tesseract.Service
}

// NewService wires the engines behind the action surface.
func NewService(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	matcher, err := redact.NewMatcher(cfg.Redaction)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:        cfg,
		store:      st,
		logger:     logger.With(logging.String(logging.FieldComponent, "actions")),
		jobs:       jobs.NewManager(logger),
		matcher:    matcher,
		policy:     redact.PolicyFromConfig(cfg),
		ingest:     ingest.New(cfg, st, logger),
		exporter:   exporter.New(cfg, st, logger),
		correlator: labelmatch.NewCorrelator(cfg, st, logger),
		ocr:        tesseract.NewService(cfg.OCR),
	}, nil
}

// Jobs exposes the job registry for status queries.
func (s *Service) Jobs() *jobs.Manager {
	return s.jobs
}

// OCRService exposes the recognizer, mainly so tests can stub the binary.
func (s *Service) OCRService() *tesseract.Service {
	return s.ocr
}
