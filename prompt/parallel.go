package prompt

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
)

// instrumentProfile carries the musical identity text for one player's
// dedicated call. The model doesn't compose a quartet — it inhabits one
// chair and reacts to what it hears in the context.
type instrumentProfile struct {
	identity    string
	noteRange   string
	character   string
	formatNotes string
}

var instrumentProfiles = map[string]instrumentProfile{
	"BASS": {
		identity:  "You are the bass player in a jazz quartet.",
		noteRange: "E1 to G2",
		character: "You anchor the harmony. Walk lines, lock with the drums, outline the changes. " +
			"Not every beat needs a note — space is part of the groove. " +
			"Roots, fifths, chromatic approaches.",
	},
	"DRUMS": {
		identity:  "You are the drummer in a jazz quartet.",
		noteRange: "C2=kick, D2=snare, F#2=closed-hat, Bb2=open-hat, Eb3=ride",
		character: "You keep time and shape the feel. The ride cymbal is your voice — " +
			"kick and snare are punctuation, not a beat machine. " +
			"Swing. Ghost notes, accents, space.",
		formatNotes: "Use multiple notes for layering (e.g. C2:90,F#2:60 for kick + hat).",
	},
	"PIANO": {
		identity:  "You are the piano player in a jazz quartet.",
		noteRange: "C3 to C5",
		character: "You comp for the soloist. Leave space. Rhythmic variety in your voicings. " +
			"Stabs, shells, the occasional run.",
		formatNotes: "Use chords: NOTE:VEL,NOTE:VEL,NOTE:VEL. Shell voicings beat full chords.",
	},
	"SAX": {
		identity:  "You are the saxophone player in a jazz quartet.",
		noteRange: "A3 to F5",
		character: "You carry the melody and improvise. Breathe — real phrases have shape. " +
			"Use motifs and develop them. Silence matters as much as notes.",
	},
}

// ParallelPromptBuilder builds per-instrument prompts for the fan-out
// strategy, where each instrument gets its own independent model call.
type ParallelPromptBuilder struct {
	Config config.RuntimeConfig
}

// NewParallelPromptBuilder creates a per-instrument prompt builder.
func NewParallelPromptBuilder(cfg config.RuntimeConfig) *ParallelPromptBuilder {
	return &ParallelPromptBuilder{Config: cfg}
}

// SystemPrompt builds the identity + format block for one instrument's call.
func (b *ParallelPromptBuilder) SystemPrompt(instrument string) string {
	profile := instrumentProfiles[instrument]
	steps := b.Config.StepsPerSection()

	lines := []string{
		profile.identity,
		"",
		profile.character,
		"",
		fmt.Sprintf("You are improvising %d bars at %d BPM on a 16th-note grid.",
			b.Config.BarsPerSection, b.Config.Tempo),
		"",
		"OUTPUT FORMAT:",
		fmt.Sprintf("Write exactly %d lines, one per 16th-note step.", steps),
		`Each line: NOTE:VELOCITY (e.g. "C2:80"), "." for a rest, or "^" to tie.`,
		fmt.Sprintf("Range: %s. Velocity 0-127 (60-90 typical).", profile.noteRange),
	}
	if profile.formatNotes != "" {
		lines = append(lines, "", profile.formatNotes)
	}
	lines = append(lines, "", "Output ONLY the step lines. No explanations, no headers.")
	return strings.Join(lines, "\n")
}

// UserPrompt is the shared context block sent with each of the four calls.
func (b *ParallelPromptBuilder) UserPrompt(previousContext, direction string) string {
	var parts []string
	if previousContext != "" {
		parts = append(parts,
			"Here is what the quartet just played:",
			"",
			previousContext,
			"",
			"Continue from here. React to what you heard — continue it, contrast it, or take it somewhere new.")
	} else {
		parts = append(parts, "This is the first section. Set the tone.")
	}
	if direction != "" {
		parts = append(parts, "", "Direction:", direction)
	}
	parts = append(parts, "", "Play your part now.")
	return strings.Join(parts, "\n")
}
