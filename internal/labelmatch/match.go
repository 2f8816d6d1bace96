package labelmatch

import (
	"strings"

	"golang.org/x/text/cases"

	"wsideid/internal/store"
)

// Candidate is one manifest row considered for association, with its
// association-column values broken into normalized words.
type Candidate struct {
	Row   *store.ManifestRow
	Words []string
}

var folder = cases.Fold()

// NormalizeWords case-folds and filters recognized words. Single characters
// are discarded; OCR noise produces too many of them to be useful.
func NormalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, word := range words {
		word = folder.String(strings.TrimSpace(word))
		if len(word) > 1 {
			out = append(out, word)
		}
	}
	return out
}

// NewCandidate builds a candidate from a manifest row using the given
// association columns. With no columns configured, the identifier pair is
// used.
func NewCandidate(row *store.ManifestRow, columns []string) Candidate {
	var words []string
	if len(columns) == 0 {
		words = []string{row.TokenID, row.ImageID}
	} else {
		for _, column := range columns {
			words = append(words, strings.Fields(row.Fields[column])...)
		}
	}
	return Candidate{Row: row, Words: NormalizeWords(words)}
}

// BestMatch finds the single candidate sharing the most words with the label
// text. The required match count starts at the full label word count and
// relaxes one word at a time; at each level a unique candidate wins and a tie
// is ambiguous, which aborts the search rather than guessing.
func BestMatch(labelWords []string, candidates []Candidate) *Candidate {
	normalized := NormalizeWords(labelWords)
	if len(normalized) == 0 {
		return nil
	}
	labelSet := map[string]bool{}
	for _, word := range normalized {
		labelSet[word] = true
	}

	counts := make([]int, len(candidates))
	for i, candidate := range candidates {
		seen := map[string]bool{}
		for _, word := range candidate.Words {
			if labelSet[word] && !seen[word] {
				seen[word] = true
				counts[i]++
			}
		}
	}

	for minimum := len(labelSet); minimum >= 1; minimum-- {
		matched := -1
		for i := range candidates {
			if counts[i] < minimum {
				continue
			}
			if matched >= 0 {
				return nil
			}
			matched = i
		}
		if matched >= 0 {
			return &candidates[matched]
		}
	}
	return nil
}
