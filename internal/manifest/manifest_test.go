package manifest_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"wsideid/internal/manifest"
	"wsideid/internal/services"
	"wsideid/internal/testsupport"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newReader(t *testing.T) *manifest.Reader {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Import.ValidateImageIDField = true
	return manifest.NewReader(cfg.Import)
}

func TestParseCSV(t *testing.T) {
	path := writeCSV(t, "upload.csv",
		"TokenID,ImageID,SurgPathNum\n"+
			"T0001,IMG0001,SP-1\n"+
			"T0002,IMG0002,SP-2\n")

	sheet, err := newReader(t).Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(sheet.Rows) != 2 || len(sheet.Bad) != 0 {
		t.Fatalf("unexpected sheet: %+v", sheet)
	}
	first := sheet.Rows[0]
	if first.ImageID != "IMG0001" || first.TokenID != "T0001" || first.Line != 2 {
		t.Fatalf("unexpected row: %+v", first)
	}
	if first.Fields["SurgPathNum"] != "SP-1" {
		t.Fatalf("extra columns must be preserved: %+v", first.Fields)
	}
}

func TestHeaderMayFollowBannerRows(t *testing.T) {
	path := writeCSV(t, "upload.csv",
		"Study upload,,\n"+
			",,\n"+
			"TokenID,ImageID,Notes\n"+
			"T0001,IMG0001,ok\n")

	sheet, err := newReader(t).Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(sheet.Rows) != 1 || sheet.Rows[0].ImageID != "IMG0001" {
		t.Fatalf("unexpected sheet: %+v", sheet)
	}
}

func TestTokenOnlyRows(t *testing.T) {
	path := writeCSV(t, "upload.csv",
		"TokenID,ImageID\n"+
			"T0009,\n")

	sheet, err := newReader(t).Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(sheet.Rows) != 1 {
		t.Fatalf("expected one row, got %+v", sheet)
	}
	row := sheet.Rows[0]
	if !row.TokenOnly() {
		t.Fatalf("row should be token-only: %+v", row)
	}
	if row.ImageID != manifest.TokenOnlyPrefix+"T0009" {
		t.Fatalf("unexpected synthetic image id: %q", row.ImageID)
	}
}

func TestBadEntriesCollectedIndividually(t *testing.T) {
	path := writeCSV(t, "upload.csv",
		"TokenID,ImageID\n"+
			",IMG0001\n"+
			"bad token,IMG0002\n"+
			"T0003,has spaces\n"+
			"T0004,IMG0004\n")

	sheet, err := newReader(t).Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(sheet.Rows) != 1 || sheet.Rows[0].ImageID != "IMG0004" {
		t.Fatalf("expected one good row, got %+v", sheet.Rows)
	}
	if len(sheet.Bad) != 3 {
		t.Fatalf("expected three bad entries, got %+v", sheet.Bad)
	}
	if sheet.Bad[0].Line != 2 {
		t.Fatalf("bad entries must carry line numbers: %+v", sheet.Bad[0])
	}
}

func TestMissingColumnsIsBadFormat(t *testing.T) {
	path := writeCSV(t, "upload.csv",
		"PatientName,Slide\n"+
			"Smith,one\n")

	_, err := newReader(t).Parse(path)
	if !errors.Is(err, services.ErrParse) || !errors.Is(err, manifest.ErrBadFormat) {
		t.Fatalf("expected bad-format parse error, got %v", err)
	}
}

func TestUnsupportedExtensionIsNotSpreadsheet(t *testing.T) {
	path := writeCSV(t, "upload.txt", "TokenID,ImageID\n")

	_, err := newReader(t).Parse(path)
	if !errors.Is(err, services.ErrParse) || !errors.Is(err, manifest.ErrNotSpreadsheet) {
		t.Fatalf("expected not-a-spreadsheet parse error, got %v", err)
	}
}

func TestIsManifestFile(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"upload.xlsx", true},
		{"upload.XLSX", true},
		{"upload.csv", true},
		{"upload.xls", true},
		{"IMG0001.svs", false},
		{"notes.txt", false},
	}
	for _, tc := range cases {
		if got := manifest.IsManifestFile(tc.name); got != tc.want {
			t.Errorf("IsManifestFile(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
