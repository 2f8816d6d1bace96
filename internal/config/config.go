package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ImportDir  string `toml:"import_dir"`
	ExportDir  string `toml:"export_dir"`
	DataDir    string `toml:"data_dir"`
	ReportsDir string `toml:"reports_dir"`
	LogDir     string `toml:"log_dir"`
}

// PatternPair couples a metadata key pattern with an optional value pattern.
// When Value is set, a key match only counts if the key's value also matches.
type PatternPair struct {
	Key   string `toml:"key"`
	Value string `toml:"value"`
}

// Redaction contains the redaction policy settings.
type Redaction struct {
	// RedactMacroSquare redacts only the fixed corner square of the macro
	// image instead of the whole image.
	RedactMacroSquare bool `toml:"redact_macro_square"`
	// AlwaysRedactLabel forces the label image to be redacted regardless of
	// reviewer input.
	AlwaysRedactLabel bool `toml:"always_redact_label"`
	// EditMetadata allows reviewers to supply literal replacement values.
	EditMetadata bool `toml:"edit_metadata"`
	// RequireRedactCategory requires reviewers to pick a reason category for
	// every redaction.
	RequireRedactCategory bool `toml:"require_redact_category"`

	HideMetadataKeys          []PatternPair            `toml:"hide_metadata_keys"`
	HideMetadataKeysFormat    map[string][]PatternPair `toml:"hide_metadata_keys_format"`
	NoRedactControlKeys       []PatternPair            `toml:"no_redact_control_keys"`
	NoRedactControlKeysFormat map[string][]PatternPair `toml:"no_redact_control_keys_format"`
}

// Import contains manifest and intake settings.
type Import struct {
	FolderNameField        string   `toml:"folder_name_field"`
	ImageNameField         string   `toml:"image_name_field"`
	ValidateImageIDField   bool     `toml:"validate_image_id_field"`
	TextAssociationColumns []string `toml:"import_text_association_columns"`
	OCROnImport            bool     `toml:"ocr_on_import"`
}

// Export contains export report settings.
type Export struct {
	ReportFields []string `toml:"upload_metadata_for_export_report"`
}

// OCR contains configuration for the external text recognizer.
type OCR struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains batch execution settings.
type Workflow struct {
	Parallelism int `toml:"parallelism"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the de-identification
// pipeline.
//
// Configuration sections by subsystem:
//   - Paths: import/export locations and local data directories
//   - Redaction: policy toggles plus the hide / no-redact-control pattern sets
//   - Import: manifest field names and label-text association columns
//   - Export: audit report field list
//   - OCR: external text recognizer settings
//   - Workflow: batch parallelism
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Redaction Redaction `toml:"redaction"`
	Import    Import    `toml:"import"`
	Export    Export    `toml:"export"`
	OCR       OCR       `toml:"ocr"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/wsideid/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("wsideid.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.ImportDir, err = expandPath(c.Paths.ImportDir); err != nil {
		return fmt.Errorf("paths.import_dir: %w", err)
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ReportsDir) == "" {
		c.Paths.ReportsDir = filepath.Join(c.Paths.DataDir, "reports")
	}
	if c.Paths.ReportsDir, err = expandPath(c.Paths.ReportsDir); err != nil {
		return fmt.Errorf("paths.reports_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Import.FolderNameField) == "" {
		c.Import.FolderNameField = defaultFolderNameField
	}
	if strings.TrimSpace(c.Import.ImageNameField) == "" {
		c.Import.ImageNameField = defaultImageNameField
	}
	if strings.TrimSpace(c.OCR.Binary) == "" {
		c.OCR.Binary = defaultOCRBinary
	}
	if c.OCR.TimeoutSeconds <= 0 {
		c.OCR.TimeoutSeconds = defaultOCRTimeoutSeconds
	}
	if c.Workflow.Parallelism <= 0 {
		c.Workflow.Parallelism = defaultWorkflowParallelism
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// EnsureDirectories creates the local directories the pipeline writes to.
// ImportDir and ExportDir are external locations and are only created on a
// best-effort basis so a detached share does not block startup.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ReportsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range []string{c.Paths.ImportDir, c.Paths.ExportDir} {
		if strings.TrimSpace(dir) != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
	}
	return nil
}

// DatabasePath returns the location of the item database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "wsideid.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
