package config

const (
	defaultImportDir           = "~/wsideid/import"
	defaultExportDir           = "~/wsideid/export"
	defaultDataDir             = "~/.local/share/wsideid"
	defaultFolderNameField     = "TokenID"
	defaultImageNameField      = "ImageID"
	defaultOCRBinary           = "tesseract"
	defaultOCRTimeoutSeconds   = 120
	defaultWorkflowParallelism = 4
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults. The base
// pattern sets mirror the metadata fields that commonly carry identifying
// information in vendor headers.
func Default() Config {
	return Config{
		Paths: Paths{
			ImportDir: defaultImportDir,
			ExportDir: defaultExportDir,
			DataDir:   defaultDataDir,
		},
		Redaction: Redaction{
			RedactMacroSquare:     false,
			AlwaysRedactLabel:     false,
			EditMetadata:          false,
			RequireRedactCategory: true,
			HideMetadataKeys: []PatternPair{
				{Key: `^internal;openslide;comment$`},
				{Key: `^internal;tiff;(software|datetime)`},
			},
			HideMetadataKeysFormat: map[string][]PatternPair{
				"aperio": {
					{Key: `^internal;openslide;(aperio|tiff)\.(Date|Time|Time Zone)$`},
				},
				"hamamatsu": {
					{Key: `^internal;openslide;hamamatsu\.(Created|Updated)$`},
				},
			},
			NoRedactControlKeys: []PatternPair{
				{Key: `^internal;aperio_version$`},
				{Key: `^internal;openslide;openslide\.(level|mpp|objective|vendor)`},
				{Key: `^internal;openslide;tiff\.(XResolution|YResolution|ResolutionUnit)$`,
					Value: `^\d+(\.\d+)?$`},
			},
			NoRedactControlKeysFormat: map[string][]PatternPair{},
		},
		Import: Import{
			FolderNameField:        defaultFolderNameField,
			ImageNameField:         defaultImageNameField,
			ValidateImageIDField:   true,
			TextAssociationColumns: []string{"TokenID", "Surg_case_no", "First_name", "Last_name"},
		},
		Export: Export{
			ReportFields: []string{"TokenID", "Proc_Seq", "Proc_Type", "Spec_Site", "Slide_ID"},
		},
		OCR: OCR{
			Binary:         defaultOCRBinary,
			TimeoutSeconds: defaultOCRTimeoutSeconds,
		},
		Workflow: Workflow{
			Parallelism: defaultWorkflowParallelism,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
