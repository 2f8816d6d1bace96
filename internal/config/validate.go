package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRedaction(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ImportDir) == "" {
		return errors.New("paths.import_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		return errors.New("paths.export_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateRedaction() error {
	sets := map[string][]PatternPair{
		"redaction.hide_metadata_keys":     c.Redaction.HideMetadataKeys,
		"redaction.no_redact_control_keys": c.Redaction.NoRedactControlKeys,
	}
	for format, pairs := range c.Redaction.HideMetadataKeysFormat {
		sets["redaction.hide_metadata_keys_format."+format] = pairs
	}
	for format, pairs := range c.Redaction.NoRedactControlKeysFormat {
		sets["redaction.no_redact_control_keys_format."+format] = pairs
	}
	for name, pairs := range sets {
		for i, pair := range pairs {
			if strings.TrimSpace(pair.Key) == "" {
				return fmt.Errorf("%s[%d]: key pattern must be set", name, i)
			}
			if _, err := regexp.Compile(pair.Key); err != nil {
				return fmt.Errorf("%s[%d]: key pattern: %w", name, i, err)
			}
			if pair.Value != "" {
				if _, err := regexp.Compile(pair.Value); err != nil {
					return fmt.Errorf("%s[%d]: value pattern: %w", name, i, err)
				}
			}
		}
	}
	return nil
}

func (c *Config) validateImport() error {
	if strings.TrimSpace(c.Import.ImageNameField) == "" {
		return errors.New("import.image_name_field must be set")
	}
	if strings.TrimSpace(c.Import.FolderNameField) == "" {
		return errors.New("import.folder_name_field must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
