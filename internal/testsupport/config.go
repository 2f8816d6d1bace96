package testsupport

import (
	"path/filepath"
	"testing"

	"wsideid/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ImportDir = filepath.Join(base, "import")
	cfg.Paths.ExportDir = filepath.Join(base, "export")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ReportsDir = filepath.Join(base, "data", "reports")
	cfg.Paths.LogDir = filepath.Join(base, "data", "logs")
	cfg.Workflow.Parallelism = 2

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAlwaysRedactLabel turns on the label redaction policy override.
func WithAlwaysRedactLabel() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Redaction.AlwaysRedactLabel = true
	}
}

// WithoutRequiredCategory relaxes the redaction category requirement.
func WithoutRequiredCategory() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Redaction.RequireRedactCategory = false
	}
}
