package prompt

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
)

// InterleavedPromptBuilder builds the beat-by-beat prompt. Instruments are
// written interleaved, one beat at a time, so each part can react to what
// the others played on the previous beat.
type InterleavedPromptBuilder struct {
	Config config.RuntimeConfig
}

// NewInterleavedPromptBuilder creates a beat-interleaved prompt builder.
func NewInterleavedPromptBuilder(cfg config.RuntimeConfig) *InterleavedPromptBuilder {
	return &InterleavedPromptBuilder{Config: cfg}
}

// Beats is the number of [BEAT n] blocks the model must produce.
func (b *InterleavedPromptBuilder) Beats() int {
	return b.Config.StepsPerSection() / 4
}

// SystemPrompt ignores the instrument: the whole band shares one call.
func (b *InterleavedPromptBuilder) SystemPrompt(string) string {
	return strings.Join([]string{
		fmt.Sprintf("You are a jazz quartet improvising %d bars together.", b.Config.BarsPerSection),
		fmt.Sprintf("Tempo: %d BPM, 16th-note grid, 4/4 time.", b.Config.Tempo),
		"",
		"You will write the music BEAT BY BEAT, with all 4 instruments on each beat.",
		"This lets each instrument HEAR and REACT to what the others just played.",
		"",
		"FORMAT: Each beat starts with [BEAT n] and has 4 lines, one per instrument.",
		"Each line: instrument name, a colon, then 4 space-separated steps",
		"(the 4 sixteenth notes of that beat).",
		"",
		"STEP NOTATION:",
		"  Note: NOTE:VELOCITY (e.g. C2:80). Chord: NOTE:VEL,NOTE:VEL. Rest: . Tie: ^",
		"",
		"RANGES:",
		"  BASS: E1-G2. DRUMS: C2=kick, D2=snare, F#2=closed-hat, Bb2=open-hat, Eb3=ride.",
		"  PIANO: C3-C5. SAX: A3-F5. Velocity 0-127 (60-90 typical).",
		"",
		"EXAMPLE (one beat):",
		"[BEAT 1]",
		"BASS: C2:80 . . .",
		"DRUMS: C2:90,F#2:60 F#2:60 F#2:60 D2:80",
		"PIANO: C3:70,E3:65,G3:68 . . .",
		"SAX: G4:75 . . .",
		"",
		fmt.Sprintf("Generate exactly %d beats. Output ONLY the tracker data.", b.Beats()),
	}, "\n")
}

// UserPrompt appends continuity context and direction.
func (b *InterleavedPromptBuilder) UserPrompt(previousContext, direction string) string {
	var parts []string
	if previousContext != "" {
		parts = append(parts,
			"WHAT JUST HAPPENED (previous section):",
			previousContext,
			"",
			"Continue the conversation from here.")
	} else {
		parts = append(parts, "This is the first section. Set the tone.")
	}
	if direction != "" {
		parts = append(parts, "", "DIRECTION:", direction)
	}
	parts = append(parts, "", "Begin:")
	return strings.Join(parts, "\n")
}
