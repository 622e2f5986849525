package prompt

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
)

// Builder produces the prompts a generation strategy sends to the model.
// Each strategy has its own builder; all of them share the runtime config
// so step counts and tempo stay consistent with what the parser expects.
type Builder interface {
	// SystemPrompt is the role/format instruction block.
	SystemPrompt(instrument string) string
	// UserPrompt carries continuity context and optional direction.
	UserPrompt(previousContext, direction string) string
}

// QuartetPromptBuilder builds the single-call batched prompt: the model
// writes all four instruments in one response, split by header lines.
type QuartetPromptBuilder struct {
	Config config.RuntimeConfig
}

// NewQuartetPromptBuilder creates a batched prompt builder.
func NewQuartetPromptBuilder(cfg config.RuntimeConfig) *QuartetPromptBuilder {
	return &QuartetPromptBuilder{Config: cfg}
}

// SystemPrompt ignores the instrument: one call covers the whole band.
func (b *QuartetPromptBuilder) SystemPrompt(string) string {
	steps := b.Config.StepsPerSection()
	return strings.Join([]string{
		"You are a jazz quartet (bass, drums, piano, sax) improvising together.",
		fmt.Sprintf("Tempo: %d BPM, 16th-note grid, %d bars.", b.Config.Tempo, b.Config.BarsPerSection),
		"",
		"OUTPUT FORMAT:",
		"Write four blocks, each starting with the instrument name alone on a line:",
		"BASS, DRUMS, PIANO, SAX — in that order, separated by blank lines.",
		fmt.Sprintf("Each block has exactly %d lines, one per 16th-note step.", steps),
		"Each line: NOTE:VELOCITY (e.g. C2:80), a chord NOTE:VEL,NOTE:VEL,",
		"a single period '.' for a rest, or '^' to tie the previous note.",
		"",
		"RANGES:",
		"BASS: E1-G2. DRUMS: C2=kick, D2=snare, F#2=closed-hat, Bb2=open-hat, Eb3=ride.",
		"PIANO: C3-C5, shell voicings. SAX: A3-F5, melody.",
		"Velocity 0-127, 60-90 typical.",
		"",
		"Leave space. Not every instrument plays every step.",
		"Output ONLY the tracker data, no explanations.",
	}, "\n")
}

// UserPrompt appends the history tail and any user direction.
func (b *QuartetPromptBuilder) UserPrompt(previousContext, direction string) string {
	var parts []string
	if previousContext != "" {
		parts = append(parts,
			"Here is what the quartet just played:",
			"",
			previousContext,
			"",
			"Continue from here. Develop the ideas, do not repeat them.")
	} else {
		parts = append(parts, "This is the first section. Set the tone.")
	}
	if direction != "" {
		parts = append(parts, "", "Direction:", direction)
	}
	parts = append(parts, "", "Play now.")
	return strings.Join(parts, "\n")
}
