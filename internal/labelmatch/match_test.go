package labelmatch

import (
	"testing"

	"wsideid/internal/store"
)

func candidate(imageID string, words ...string) Candidate {
	return Candidate{Row: &store.ManifestRow{ImageID: imageID}, Words: NormalizeWords(words)}
}

func TestBestMatchPicksUniqueBest(t *testing.T) {
	candidates := []Candidate{
		candidate("IMG1", "T0001", "SP-11"),
		candidate("IMG2", "T0002", "SP-22"),
	}

	match := BestMatch([]string{"T0002", "SP-22", "noise"}, candidates)
	if match == nil || match.Row.ImageID != "IMG2" {
		t.Fatalf("unexpected match: %+v", match)
	}
}

func TestBestMatchIsCaseInsensitive(t *testing.T) {
	candidates := []Candidate{candidate("IMG1", "ab123", "sp-11")}

	match := BestMatch([]string{"AB123"}, candidates)
	if match == nil || match.Row.ImageID != "IMG1" {
		t.Fatalf("case folding must apply: %+v", match)
	}
}

func TestBestMatchRejectsTies(t *testing.T) {
	candidates := []Candidate{
		candidate("IMG1", "T0001", "smith"),
		candidate("IMG2", "T0002", "smith"),
	}

	if match := BestMatch([]string{"smith"}, candidates); match != nil {
		t.Fatalf("ambiguous label must not match, got %+v", match)
	}
}

func TestBestMatchPrefersMoreMatchedWords(t *testing.T) {
	candidates := []Candidate{
		candidate("IMG1", "T0001", "smith"),
		candidate("IMG2", "T0002", "smith"),
	}

	match := BestMatch([]string{"smith", "T0002"}, candidates)
	if match == nil || match.Row.ImageID != "IMG2" {
		t.Fatalf("extra matched word must break the tie: %+v", match)
	}
}

func TestBestMatchIgnoresSingleCharacterNoise(t *testing.T) {
	candidates := []Candidate{candidate("IMG1", "T0001")}

	if match := BestMatch([]string{"a", "b", "c"}, candidates); match != nil {
		t.Fatalf("single-character words are noise, got %+v", match)
	}
}

func TestNewCandidateFallsBackToIdentifiers(t *testing.T) {
	row := &store.ManifestRow{
		ImageID: "IMG1",
		TokenID: "T0001",
		Fields:  map[string]string{"SurgPathNum": "SP-11 ABC"},
	}

	withColumns := NewCandidate(row, []string{"SurgPathNum"})
	if len(withColumns.Words) != 2 {
		t.Fatalf("expected association-column words, got %v", withColumns.Words)
	}

	fallback := NewCandidate(row, nil)
	if len(fallback.Words) != 2 || fallback.Words[0] != "t0001" {
		t.Fatalf("expected identifier fallback, got %v", fallback.Words)
	}
}
