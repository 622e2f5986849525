package tracker

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Grammar literals.
const (
	Rest = "."
	Tie  = "^"
)

// FormatStep renders a step back to its canonical grammar line.
func FormatStep(step Step) string {
	switch {
	case step.IsTie:
		return Tie
	case step.IsRest || len(step.Notes) == 0:
		return Rest
	}
	parts := make([]string, len(step.Notes))
	for i, n := range step.Notes {
		parts[i] = fmt.Sprintf("%s:%d", MIDIToNote(n.Pitch), n.Velocity)
	}
	return strings.Join(parts, ",")
}

// FormatTracks renders tracks as tracker text: instrument blocks in quartet
// order, separated by blank lines.
func FormatTracks(tracks map[string]InstrumentTrack) string {
	var blocks []string
	for _, inst := range Instruments {
		tr, ok := tracks[inst]
		if !ok {
			continue
		}
		lines := make([]string, 0, len(tr.Steps)+1)
		lines = append(lines, inst)
		for _, step := range tr.Steps {
			lines = append(lines, FormatStep(step))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// SaveTracks writes tracks as a tracker text file, optionally preceded by
// "# key: value" metadata comment lines.
func SaveTracks(tracks map[string]InstrumentTrack, path string, metadata map[string]string) error {
	var b strings.Builder
	if len(metadata) > 0 {
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "# %s: %s\n", k, metadata[k])
		}
		b.WriteString("\n")
	}
	b.WriteString(FormatTracks(tracks))
	b.WriteString("\n")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// LoadFile reads a tracker text file, skipping "# key: value" metadata
// comment lines, and parses it.
func LoadFile(path string) (map[string]InstrumentTrack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tracker file: %w", err)
	}
	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		kept = append(kept, line)
	}
	return Parse(strings.Join(kept, "\n"))
}
