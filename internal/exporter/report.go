package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"wsideid/internal/store"
)

// reportRow is one line of the export report.
type reportRow struct {
	ImageID string
	TokenID string
	Outcome string
	Detail  string
	Fields  map[string]string
}

func (e *Engine) reportRowFor(item *store.Item, category, detail string) reportRow {
	return reportRow{
		ImageID: item.ImageID,
		TokenID: item.TokenID,
		Outcome: category,
		Detail:  detail,
		Fields:  item.ManifestFields(),
	}
}

// writeReport renders the export report. The configured report fields are
// appended as extra columns, pulled from each item's manifest record.
func writeReport(dir string, fields []string, rows []reportRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	sorted := make([]reportRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ImageID < sorted[j].ImageID
	})

	path := filepath.Join(dir, fmt.Sprintf("export-%s.csv", time.Now().UTC().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	header := append([]string{"image_id", "token_id", "outcome", "detail"}, fields...)
	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return "", err
	}
	for _, row := range sorted {
		record := []string{row.ImageID, row.TokenID, row.Outcome, row.Detail}
		for _, field := range fields {
			record = append(record, row.Fields[field])
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return path, f.Close()
}
