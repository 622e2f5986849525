package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
)

func TestQuartetSystemPromptNamesStepCount(t *testing.T) {
	cfg := config.Default() // 32 steps
	b := NewQuartetPromptBuilder(cfg)
	sys := b.SystemPrompt("")

	for _, want := range []string{"BASS", "DRUMS", "PIANO", "SAX", "exactly 32 lines"} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestParallelSystemPromptPerInstrument(t *testing.T) {
	b := NewParallelPromptBuilder(config.Default())

	tests := []struct {
		instrument string
		marker     string
	}{
		{"BASS", "bass player"},
		{"DRUMS", "drummer"},
		{"PIANO", "piano player"},
		{"SAX", "saxophone player"},
	}
	for _, tt := range tests {
		sys := b.SystemPrompt(tt.instrument)
		if !strings.Contains(sys, tt.marker) {
			t.Errorf("%s system prompt missing %q", tt.instrument, tt.marker)
		}
		if !strings.Contains(sys, "exactly 32 lines") {
			t.Errorf("%s system prompt missing step count", tt.instrument)
		}
	}
}

func TestUserPromptCarriesContextAndDirection(t *testing.T) {
	builders := []Builder{
		NewQuartetPromptBuilder(config.Default()),
		NewParallelPromptBuilder(config.Default()),
		NewInterleavedPromptBuilder(config.Default()),
	}

	for i, b := range builders {
		first := b.UserPrompt("", "")
		if !strings.Contains(first, "first section") {
			t.Errorf("builder %d: empty context should produce the opening prompt", i)
		}

		followup := b.UserPrompt("BASS\nC2:80", "play a shuffle")
		if !strings.Contains(followup, "C2:80") {
			t.Errorf("builder %d: user prompt drops the history tail", i)
		}
		if !strings.Contains(followup, "play a shuffle") {
			t.Errorf("builder %d: user prompt drops the direction", i)
		}
	}
}

func TestInterleavedBeats(t *testing.T) {
	b := NewInterleavedPromptBuilder(config.Default()) // 32 steps
	if got := b.Beats(); got != 8 {
		t.Errorf("Beats() = %d, expected 8", got)
	}
	if !strings.Contains(b.SystemPrompt(""), fmt.Sprintf("exactly %d beats", 8)) {
		t.Error("system prompt missing beat count")
	}
}
