package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// writeReport renders the audit report for one import run. Rows are sorted
// so repeated runs over the same material produce comparable reports.
func writeReport(dir string, rows []reportRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	sorted := make([]reportRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Subject != sorted[j].Subject {
			return sorted[i].Subject < sorted[j].Subject
		}
		return sorted[i].Source < sorted[j].Source
	})

	path := filepath.Join(dir, fmt.Sprintf("import-%s.csv", time.Now().UTC().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"source", "subject", "outcome", "detail"}); err != nil {
		return "", err
	}
	for _, row := range sorted {
		if err := writer.Write([]string{row.Source, row.Subject, row.Outcome, row.Detail}); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return path, f.Close()
}
