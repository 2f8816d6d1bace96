package ingest

import (
	"fmt"
	"strings"
)

// Outcome accumulates the per-category counters of one import run. Every
// discovered file and every manifest row lands in exactly one category.
type Outcome struct {
	Added     int
	Present   int
	Replaced  int
	Duplicate int
	Missing   int
	Unlisted  int
	BadEntry  int
	Unfiled   int
	Failed    int
	Parsed    int
	NotExcel  int
	BadFormat int

	// Report is the path of the audit report written for this run, when one
	// was produced.
	Report string
}

// Summary renders the non-zero counters in a fixed order for logs and CLI
// output.
func (o *Outcome) Summary() string {
	parts := []string{}
	add := func(name string, count int) {
		if count > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", name, count))
		}
	}
	add("added", o.Added)
	add("present", o.Present)
	add("replaced", o.Replaced)
	add("duplicate", o.Duplicate)
	add("missing", o.Missing)
	add("unlisted", o.Unlisted)
	add("badentry", o.BadEntry)
	add("unfiled", o.Unfiled)
	add("failed", o.Failed)
	add("parsed", o.Parsed)
	add("notexcel", o.NotExcel)
	add("badformat", o.BadFormat)
	if len(parts) == 0 {
		return "nothing to import"
	}
	return strings.Join(parts, ", ")
}

// reportRow is one line of the audit report.
type reportRow struct {
	Source  string
	Subject string
	Outcome string
	Detail  string
}
