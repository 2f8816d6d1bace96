package redact_test

import (
	"testing"

	"wsideid/internal/config"
	"wsideid/internal/redact"
)

func TestRuleSetFirstMatchWins(t *testing.T) {
	set, err := redact.CompileRules([]config.PatternPair{
		{Key: `^tiff;date`},
		{Key: `^tiff;`},
	})
	if err != nil {
		t.Fatalf("CompileRules failed: %v", err)
	}
	if !set.Matches("tiff;datetime", "2021:01:01") {
		t.Fatal("expected first pattern to match")
	}
	if !set.Matches("tiff;software", "scanner") {
		t.Fatal("expected second pattern to match")
	}
	if set.Matches("openslide;comment", "") {
		t.Fatal("unexpected match")
	}
}

func TestRuleSetValuePatternFallsThrough(t *testing.T) {
	// The first rule requires a numeric value; a non-numeric value must fall
	// through to the general second rule rather than ending evaluation.
	set, err := redact.CompileRules([]config.PatternPair{
		{Key: `^tiff;resolution$`, Value: `^\d+$`},
		{Key: `^tiff;`},
	})
	if err != nil {
		t.Fatalf("CompileRules failed: %v", err)
	}
	if !set.Matches("tiff;resolution", "300") {
		t.Fatal("numeric value should match the first rule")
	}
	if !set.Matches("tiff;resolution", "unknown") {
		t.Fatal("failed value pattern should fall through to the next rule")
	}

	strict, err := redact.CompileRules([]config.PatternPair{
		{Key: `^tiff;resolution$`, Value: `^\d+$`},
	})
	if err != nil {
		t.Fatalf("CompileRules failed: %v", err)
	}
	if strict.Matches("tiff;resolution", "unknown") {
		t.Fatal("with no later rule the failed value pattern is a miss")
	}
}

func TestMatcherConsultsBaseAndFormatSets(t *testing.T) {
	m, err := redact.NewMatcher(config.Redaction{
		HideMetadataKeys: []config.PatternPair{{Key: `^internal;comment$`}},
		HideMetadataKeysFormat: map[string][]config.PatternPair{
			"aperio": {{Key: `^internal;aperio\.Date$`}},
		},
		NoRedactControlKeys: []config.PatternPair{{Key: `^internal;level_count$`}},
	})
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	cases := []struct {
		name   string
		format redact.Format
		key    string
		want   redact.Decision
	}{
		{"base hide applies to all formats", redact.FormatNone, "internal;comment", redact.DecisionHidden},
		{"format hide applies for its format", redact.FormatAperio, "internal;aperio.Date", redact.DecisionHidden},
		{"format hide does not leak to other formats", redact.FormatHamamatsu, "internal;aperio.Date", redact.DecisionRedactable},
		{"protected key", redact.FormatNone, "internal;level_count", redact.DecisionProtected},
		{"unmatched key is redactable", redact.FormatNone, "internal;description", redact.DecisionRedactable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.Classify(tc.format, tc.key, ""); got != tc.want {
				t.Fatalf("Classify(%s, %s) = %s, want %s", tc.format, tc.key, got, tc.want)
			}
		})
	}
}

func TestHiddenTakesPrecedenceOverProtected(t *testing.T) {
	m, err := redact.NewMatcher(config.Redaction{
		HideMetadataKeys:    []config.PatternPair{{Key: `^internal;secret$`}},
		NoRedactControlKeys: []config.PatternPair{{Key: `^internal;`}},
	})
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}
	if got := m.Classify(redact.FormatNone, "internal;secret", ""); got != redact.DecisionHidden {
		t.Fatalf("expected hidden, got %s", got)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		meta map[string]string
		want redact.Format
	}{
		{"aperio vendor", map[string]string{"internal;openslide;openslide.vendor": "aperio"}, redact.FormatAperio},
		{"hamamatsu vendor", map[string]string{"internal;openslide;openslide.vendor": "hamamatsu"}, redact.FormatHamamatsu},
		{"ome xml keys", map[string]string{"internal;xml;OME.Image.Pixels": "x"}, redact.FormatOMETiff},
		{"unknown", map[string]string{"internal;tiff;software": "x"}, redact.FormatNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := redact.DetectFormat(tc.meta); got != tc.want {
				t.Fatalf("DetectFormat = %s, want %s", got, tc.want)
			}
		})
	}
}
