package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"wsideid/internal/config"
	"wsideid/internal/services"
)

// TokenOnlyPrefix marks synthetic image identifiers for manifest rows that
// carry a token but no image name. Such rows reserve the token so label-text
// correlation can refile scanned images onto it later.
const TokenOnlyPrefix = "wsi_deidTokenOnly"

var (
	// ErrNotSpreadsheet reports a file that could not be read as a manifest at all.
	ErrNotSpreadsheet = errors.New("not a spreadsheet")
	// ErrBadFormat reports a readable file whose header lacks the required columns.
	ErrBadFormat = errors.New("required columns missing")
)

var (
	tokenIDPattern = regexp.MustCompile(`^\w+$`)
	imageIDPattern = regexp.MustCompile(`^\w[\w.-]*$`)
)

// Row is one parsed manifest record. Fields holds every header column so the
// export report and label-text association can reach past the identifier pair.
type Row struct {
	ImageID string
	TokenID string
	Fields  map[string]string
	Source  string
	Line    int
}

// TokenOnly reports whether the row reserves a token without naming an image.
func (r Row) TokenOnly() bool {
	return strings.HasPrefix(r.ImageID, TokenOnlyPrefix)
}

// BadEntry is a data row rejected during parsing.
type BadEntry struct {
	Line   int
	Reason string
}

// Sheet is the parsed content of one manifest file.
type Sheet struct {
	Path    string
	Headers []string
	Rows    []Row
	Bad     []BadEntry
}

// Reader parses manifest files against the configured field names.
type Reader struct {
	folderField string
	imageField  string
	validateID  bool
}

// NewReader builds a Reader from the import configuration.
func NewReader(cfg config.Import) *Reader {
	return &Reader{
		folderField: cfg.FolderNameField,
		imageField:  cfg.ImageNameField,
		validateID:  cfg.ValidateImageIDField,
	}
}

// IsManifestFile reports whether the file name looks like an import manifest.
func IsManifestFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls", ".csv":
		return true
	}
	return false
}

// Parse reads the manifest at path. Parse failures are tagged with either
// ErrNotSpreadsheet or ErrBadFormat underneath the parse marker so callers
// can report them as distinct outcome counters.
func (r *Reader) Parse(path string) (*Sheet, error) {
	var (
		grid [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		grid, err = readCSV(path)
	case ".xlsx", ".xls":
		grid, err = readWorkbook(path)
	default:
		err = fmt.Errorf("%w: unsupported extension %q", ErrNotSpreadsheet, filepath.Ext(path))
	}
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "manifest", "parse", path, err)
	}
	return r.assemble(path, grid)
}

// assemble scans for the header row and classifies every data row beneath it.
// The header is the first row that carries both configured identifier columns;
// leading banner rows above it are ignored.
func (r *Reader) assemble(path string, grid [][]string) (*Sheet, error) {
	headerIdx := -1
	var headers []string
	for i, row := range grid {
		if containsField(row, r.folderField) && containsField(row, r.imageField) {
			headerIdx = i
			headers = trimCells(row)
			break
		}
	}
	if headerIdx < 0 {
		return nil, services.Wrap(services.ErrParse, "manifest", "parse", path,
			fmt.Errorf("%w: need %q and %q", ErrBadFormat, r.folderField, r.imageField))
	}

	sheet := &Sheet{Path: path, Headers: headers}
	for i := headerIdx + 1; i < len(grid); i++ {
		line := i + 1
		cells := trimCells(grid[i])
		if emptyRow(cells) {
			continue
		}
		fields := make(map[string]string, len(headers))
		for col, name := range headers {
			if name == "" {
				continue
			}
			if col < len(cells) {
				fields[name] = cells[col]
			} else {
				fields[name] = ""
			}
		}
		row, reason := r.buildRow(path, line, fields)
		if reason != "" {
			sheet.Bad = append(sheet.Bad, BadEntry{Line: line, Reason: reason})
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func (r *Reader) buildRow(path string, line int, fields map[string]string) (Row, string) {
	tokenID := fields[r.folderField]
	imageID := fields[r.imageField]

	if tokenID == "" {
		return Row{}, fmt.Sprintf("missing %s", r.folderField)
	}
	if !tokenIDPattern.MatchString(tokenID) {
		return Row{}, fmt.Sprintf("invalid %s %q", r.folderField, tokenID)
	}
	if imageID == "" {
		imageID = TokenOnlyPrefix + tokenID
	} else if r.validateID && !imageIDPattern.MatchString(imageID) {
		return Row{}, fmt.Sprintf("invalid %s %q", r.imageField, imageID)
	}

	return Row{
		ImageID: imageID,
		TokenID: tokenID,
		Fields:  fields,
		Source:  path,
		Line:    line,
	}, ""
}

func containsField(row []string, field string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) == field {
			return true
		}
	}
	return false
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func emptyRow(cells []string) bool {
	for _, cell := range cells {
		if cell != "" {
			return false
		}
	}
	return true
}
