package redact

import (
	"fmt"
	"regexp"
	"strings"

	"wsideid/internal/config"
)

// Format identifies the vendor flavor of a slide's metadata. Format-specific
// pattern sets are consulted alongside the base sets.
type Format string

const (
	FormatAperio    Format = "aperio"
	FormatHamamatsu Format = "hamamatsu"
	FormatPhilips   Format = "philips"
	FormatOMETiff   Format = "ometiff"
	FormatNone      Format = "none"
)

// vendorKey is the metadata key consulted for format detection.
const vendorKey = "internal;openslide;openslide.vendor"

// DetectFormat maps slide metadata to a known vendor format.
func DetectFormat(meta map[string]string) Format {
	switch strings.ToLower(strings.TrimSpace(meta[vendorKey])) {
	case "aperio":
		return FormatAperio
	case "hamamatsu":
		return FormatHamamatsu
	case "philips":
		return FormatPhilips
	}
	for key := range meta {
		if strings.Contains(key, ";xml;OME.") {
			return FormatOMETiff
		}
	}
	return FormatNone
}

// ParseFormat converts a stored format string back into a Format.
func ParseFormat(value string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatAperio:
		return FormatAperio
	case FormatHamamatsu:
		return FormatHamamatsu
	case FormatPhilips:
		return FormatPhilips
	case FormatOMETiff:
		return FormatOMETiff
	default:
		return FormatNone
	}
}

type rule struct {
	key   *regexp.Regexp
	value *regexp.Regexp
}

// RuleSet is an ordered list of key patterns with optional paired value
// patterns. Evaluation respects declaration order.
type RuleSet struct {
	rules []rule
}

// CompileRules builds a RuleSet from configured pattern pairs.
func CompileRules(pairs []config.PatternPair) (RuleSet, error) {
	set := RuleSet{rules: make([]rule, 0, len(pairs))}
	for i, pair := range pairs {
		keyRE, err := regexp.Compile(pair.Key)
		if err != nil {
			return RuleSet{}, fmt.Errorf("pattern %d key: %w", i, err)
		}
		r := rule{key: keyRE}
		if pair.Value != "" {
			valueRE, err := regexp.Compile(pair.Value)
			if err != nil {
				return RuleSet{}, fmt.Errorf("pattern %d value: %w", i, err)
			}
			r.value = valueRE
		}
		set.rules = append(set.rules, r)
	}
	return set, nil
}

// Matches evaluates key (and its value) against the set. The first rule whose
// key pattern matches decides the outcome, except that a failed paired value
// pattern is treated as a miss and evaluation continues with later rules.
func (s RuleSet) Matches(key, value string) bool {
	for _, r := range s.rules {
		if !r.key.MatchString(key) {
			continue
		}
		if r.value != nil && !r.value.MatchString(value) {
			continue
		}
		return true
	}
	return false
}

// Decision classifies how a metadata key is presented during review.
type Decision int

const (
	// DecisionRedactable keys are shown with a redaction control.
	DecisionRedactable Decision = iota
	// DecisionHidden keys are never shown or redactable.
	DecisionHidden
	// DecisionProtected keys are shown but their redaction control is
	// suppressed (operationally required metadata).
	DecisionProtected
)

func (d Decision) String() string {
	switch d {
	case DecisionHidden:
		return "hidden"
	case DecisionProtected:
		return "protected"
	default:
		return "redactable"
	}
}

// Matcher evaluates metadata keys against the configured hide and
// no-redact-control pattern sets.
type Matcher struct {
	hideBase      RuleSet
	protectBase   RuleSet
	hideFormat    map[Format]RuleSet
	protectFormat map[Format]RuleSet
}

// NewMatcher compiles all configured pattern sets.
func NewMatcher(cfg config.Redaction) (*Matcher, error) {
	m := &Matcher{
		hideFormat:    make(map[Format]RuleSet),
		protectFormat: make(map[Format]RuleSet),
	}
	var err error
	if m.hideBase, err = CompileRules(cfg.HideMetadataKeys); err != nil {
		return nil, fmt.Errorf("hide_metadata_keys: %w", err)
	}
	if m.protectBase, err = CompileRules(cfg.NoRedactControlKeys); err != nil {
		return nil, fmt.Errorf("no_redact_control_keys: %w", err)
	}
	for format, pairs := range cfg.HideMetadataKeysFormat {
		set, err := CompileRules(pairs)
		if err != nil {
			return nil, fmt.Errorf("hide_metadata_keys_format.%s: %w", format, err)
		}
		m.hideFormat[ParseFormat(format)] = set
	}
	for format, pairs := range cfg.NoRedactControlKeysFormat {
		set, err := CompileRules(pairs)
		if err != nil {
			return nil, fmt.Errorf("no_redact_control_keys_format.%s: %w", format, err)
		}
		m.protectFormat[ParseFormat(format)] = set
	}
	return m, nil
}

// Classify decides how a metadata key is presented for the given format.
// Hidden takes precedence over protected. The base set is consulted first,
// then the format-specific set.
func (m *Matcher) Classify(format Format, key, value string) Decision {
	if m.Hidden(format, key, value) {
		return DecisionHidden
	}
	if m.Protected(format, key, value) {
		return DecisionProtected
	}
	return DecisionRedactable
}

// Hidden reports whether the key is withheld from review entirely.
func (m *Matcher) Hidden(format Format, key, value string) bool {
	if m.hideBase.Matches(key, value) {
		return true
	}
	return m.hideFormat[format].Matches(key, value)
}

// Protected reports whether the key's redaction control is suppressed.
func (m *Matcher) Protected(format Format, key, value string) bool {
	if m.protectBase.Matches(key, value) {
		return true
	}
	return m.protectFormat[format].Matches(key, value)
}
