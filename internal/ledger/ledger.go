package ledger

import (
	"encoding/json"
	"fmt"
	"strings"

	"wsideid/internal/redact"
	"wsideid/internal/services"
)

// WholeSlideKey is the reserved area key for the main slide region.
const WholeSlideKey = "_wsi"

// Region is an opaque geojson-style polygon. The core never interprets its
// geometry, it only stores and round-trips it.
type Region = json.RawMessage

// MetadataEntry records the redaction decision for one metadata key.
// A non-nil Value means "replace with this literal" instead of blank/remove.
type MetadataEntry struct {
	Reason   string  `json:"reason"`
	Category string  `json:"category"`
	Value    *string `json:"value,omitempty"`
}

// ImageEntry records the redaction decision for one auxiliary image.
// Square limits macro redaction to the fixed corner square; Geojson limits
// redaction to a polygon region.
type ImageEntry struct {
	Reason   string `json:"reason"`
	Category string `json:"category"`
	Square   bool   `json:"square,omitempty"`
	Geojson  Region `json:"geojson,omitempty"`
}

// AreaEntry records a polygon region of the main slide to black out.
type AreaEntry struct {
	Reason   string `json:"reason"`
	Category string `json:"category"`
	Geojson  Region `json:"geojson"`
}

// Ledger is the durable per-item record of redaction decisions. Presence of
// a key means "redact"; absence is the only representation of "keep".
type Ledger struct {
	Metadata map[string]MetadataEntry `json:"metadata"`
	Images   map[string]ImageEntry    `json:"images"`
	Area     map[string]AreaEntry     `json:"area"`
}

// New returns an empty ledger with all maps allocated.
func New() *Ledger {
	return &Ledger{
		Metadata: map[string]MetadataEntry{},
		Images:   map[string]ImageEntry{},
		Area:     map[string]AreaEntry{},
	}
}

// Standard returns the initial ledger for a freshly ingested item, seeded
// with the policy-driven image redactions.
func Standard(policy redact.Policy) *Ledger {
	l := New()
	if policy.AlwaysRedactLabel {
		l.Images[redact.ImageLabel] = ImageEntry{Reason: redact.DefaultReason, Category: redact.DefaultReason}
	}
	if policy.RedactMacroSquare {
		l.Images[redact.ImageMacro] = ImageEntry{Reason: redact.DefaultReason, Category: redact.DefaultReason, Square: true}
	}
	return l
}

// Parse decodes a serialized ledger. An empty payload yields an empty ledger.
func Parse(raw string) (*Ledger, error) {
	l := New()
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return l, nil
	}
	if err := json.Unmarshal([]byte(trimmed), l); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if l.Metadata == nil {
		l.Metadata = map[string]MetadataEntry{}
	}
	if l.Images == nil {
		l.Images = map[string]ImageEntry{}
	}
	if l.Area == nil {
		l.Area = map[string]AreaEntry{}
	}
	return l, nil
}

// Encode serializes the ledger for storage.
func (l *Ledger) Encode() (string, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("encode ledger: %w", err)
	}
	return string(data), nil
}

// ApplyEdits replaces the ledger's decisions with the submitted ones after
// normalizing each entry against the policy. The submission is the full
// desired state: keys absent from it become "keep".
func (l *Ledger) ApplyEdits(edits *Ledger, policy redact.Policy) error {
	if edits == nil {
		return services.Wrap(services.ErrValidation, "ledger", "apply edits", "no edits submitted", nil)
	}

	metadata := make(map[string]MetadataEntry, len(edits.Metadata))
	for key, entry := range edits.Metadata {
		reason, category, err := normalizeReason(entry.Reason, entry.Category, policy, "metadata key "+key)
		if err != nil {
			return err
		}
		if entry.Value != nil && !policy.EditMetadata {
			return services.Wrap(services.ErrValidation, "ledger", "apply edits",
				fmt.Sprintf("metadata key %s: replacement values are disabled", key), nil)
		}
		metadata[key] = MetadataEntry{Reason: reason, Category: category, Value: entry.Value}
	}

	images := make(map[string]ImageEntry, len(edits.Images))
	for name, entry := range edits.Images {
		reason, category, err := normalizeReason(entry.Reason, entry.Category, policy, "image "+name)
		if err != nil {
			return err
		}
		if entry.Square && name != redact.ImageMacro {
			return services.Wrap(services.ErrValidation, "ledger", "apply edits",
				fmt.Sprintf("image %s: corner-square redaction applies only to the macro image", name), nil)
		}
		images[name] = ImageEntry{Reason: reason, Category: category, Square: entry.Square, Geojson: entry.Geojson}
	}

	area := make(map[string]AreaEntry, len(edits.Area))
	for key, entry := range edits.Area {
		if key != WholeSlideKey {
			return services.Wrap(services.ErrValidation, "ledger", "apply edits",
				fmt.Sprintf("area key %s: only the whole-slide region is supported", key), nil)
		}
		if len(entry.Geojson) == 0 {
			return services.Wrap(services.ErrValidation, "ledger", "apply edits",
				"whole-slide redaction requires a region", nil)
		}
		reason, category, err := normalizeReason(entry.Reason, entry.Category, policy, "whole-slide area")
		if err != nil {
			return err
		}
		area[key] = AreaEntry{Reason: reason, Category: category, Geojson: entry.Geojson}
	}

	l.Metadata = metadata
	l.Images = images
	l.Area = area
	return nil
}

// MetadataRedacted reports whether the key is currently classified redacted.
func (l *Ledger) MetadataRedacted(key string) bool {
	_, ok := l.Metadata[key]
	return ok
}

// ImageRedacted reports whether the named auxiliary image is redacted,
// including the policy override for the label image.
func (l *Ledger) ImageRedacted(name string, policy redact.Policy) bool {
	if name == redact.ImageLabel && policy.AlwaysRedactLabel {
		return true
	}
	_, ok := l.Images[name]
	return ok
}

// HasAreaRedaction reports whether a whole-slide region is marked for
// blackout.
func (l *Ledger) HasAreaRedaction() bool {
	_, ok := l.Area[WholeSlideKey]
	return ok
}

// Counts returns the number of decisions per section.
func (l *Ledger) Counts() (metadata, images, area int) {
	return len(l.Metadata), len(l.Images), len(l.Area)
}

func normalizeReason(reason, category string, policy redact.Policy, subject string) (string, string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		if policy.RequireRedactCategory {
			return "", "", services.Wrap(services.ErrValidation, "ledger", "apply edits",
				subject+": a redaction reason is required", nil)
		}
		reason = redact.DefaultReason
	}
	if category = strings.TrimSpace(category); category == "" {
		category = reason
	}
	return reason, category, nil
}
