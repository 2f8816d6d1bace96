package redact

import "wsideid/internal/config"

// Auxiliary image names with policy-specific handling.
const (
	ImageLabel = "label"
	ImageMacro = "macro"
)

// DefaultReason is assigned when a reviewer redacts without picking a
// category and the policy does not require one.
const DefaultReason = "No_Reason_Collected"

// Policy captures the site-configurable redaction behaviour consulted by the
// ledger and the review surface.
type Policy struct {
	// RedactMacroSquare limits macro-image redaction to the fixed corner
	// square instead of the whole image.
	RedactMacroSquare bool
	// AlwaysRedactLabel classifies the label image as redacted even without
	// a ledger entry.
	AlwaysRedactLabel bool
	// EditMetadata permits literal replacement values in metadata edits.
	EditMetadata bool
	// RequireRedactCategory rejects edits that carry no reason category.
	RequireRedactCategory bool
}

// PolicyFromConfig extracts the redaction policy from loaded configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return Policy{RequireRedactCategory: true}
	}
	return Policy{
		RedactMacroSquare:     cfg.Redaction.RedactMacroSquare,
		AlwaysRedactLabel:     cfg.Redaction.AlwaysRedactLabel,
		EditMetadata:          cfg.Redaction.EditMetadata,
		RequireRedactCategory: cfg.Redaction.RequireRedactCategory,
	}
}
