package store

import (
	"encoding/json"
	"strings"
	"time"

	"wsideid/internal/ledger"
	"wsideid/internal/workflow"
)

// Item represents a managed image persisted in SQLite. State changes go
// through Transition and ledger changes through UpdateLedger; Version backs
// the optimistic concurrency check on both.
type Item struct {
	ID            int64
	ImageID       string
	TokenID       string
	Name          string
	SourcePath    string
	Size          int64
	Checksum      string
	State         workflow.State
	PriorState    workflow.State
	Format        string
	LedgerJSON    string
	ManifestJSON  string
	LabelText     *string
	ProcessedJSON string
	ErrorMessage  string
	Version       int64
	FinishedAt    *time.Time
	ExportedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Ledger decodes the item's redaction ledger.
func (i *Item) Ledger() (*ledger.Ledger, error) {
	return ledger.Parse(i.LedgerJSON)
}

// ManifestFields decodes the manifest row fields captured at ingest.
func (i *Item) ManifestFields() map[string]string {
	fields := map[string]string{}
	if i.ManifestJSON == "" {
		return fields
	}
	if err := json.Unmarshal([]byte(i.ManifestJSON), &fields); err != nil {
		return map[string]string{}
	}
	return fields
}

// LabelScanned reports whether label-text recognition has run for the item.
// An empty result still counts as scanned.
func (i *Item) LabelScanned() bool {
	return i.LabelText != nil
}

// LabelWords returns the recognized label words, if any.
func (i *Item) LabelWords() []string {
	if i.LabelText == nil || *i.LabelText == "" {
		return nil
	}
	return strings.Fields(*i.LabelText)
}

// ProcessedInfo records provenance captured when redaction is applied.
type ProcessedInfo struct {
	Time         time.Time `json:"time"`
	Actor        string    `json:"actor,omitempty"`
	OriginalSize int64     `json:"originalSize"`
	RedactedSize int64     `json:"redactedSize"`
	Metadata     int       `json:"metadata"`
	Images       int       `json:"images"`
	Area         int       `json:"area"`
}

// EncodeProcessedInfo serializes provenance for storage on the item.
func EncodeProcessedInfo(info ProcessedInfo) (string, error) {
	data, err := json.Marshal(info)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
