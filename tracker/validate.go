package tracker

import (
	"log"
	"strings"
)

// ValidateBlock turns one instrument's sanitized output into exactly
// expectedSteps grammar-valid step lines.
//
// Short blocks are padded with rests and long blocks truncated (both logged).
// A line that fails the grammar is replaced with a rest — never with a tie,
// which would fabricate continuation the model never produced. Failures at
// this level are always repaired silently; only section-level incompleteness
// is escalated by the pipeline.
func ValidateBlock(instrument, text string, expectedSteps int) string {
	lines := strings.Split(text, "\n")

	if len(lines) < expectedSteps {
		log.Printf("⚠️  %s: expected %d lines, got %d, padding with rests", instrument, expectedSteps, len(lines))
		for len(lines) < expectedSteps {
			lines = append(lines, Rest)
		}
	} else if len(lines) > expectedSteps {
		log.Printf("⚠️  %s: expected %d lines, got %d, truncating", instrument, expectedSteps, len(lines))
		lines = lines[:expectedSteps]
	}

	validated := make([]string, expectedSteps)
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			validated[i] = Rest
			continue
		}
		if _, err := ParseStep(line); err != nil {
			log.Printf("⚠️  %s line %d: %v — replacing with rest", instrument, i+1, err)
			validated[i] = Rest
			continue
		}
		validated[i] = line
	}
	return strings.Join(validated, "\n")
}

// SanitizeAndValidate is the full raw-text → canonical-block transform used
// by every generation strategy.
func SanitizeAndValidate(instrument, raw string, expectedSteps int) string {
	return ValidateBlock(instrument, Sanitize(raw), expectedSteps)
}

// HasMeaningfulContent reports whether a validated block contains at least
// one non-rest line. The retry policy uses it to detect a degenerate
// all-rests result.
func HasMeaningfulContent(block string) bool {
	for _, line := range strings.Split(block, "\n") {
		if s := strings.TrimSpace(line); s != "" && s != Rest {
			return true
		}
	}
	return false
}
