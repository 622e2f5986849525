package tracker

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
)

// noteOffsets maps note names to semitone offsets within an octave,
// including enharmonic equivalents (Cb=B, Fb=E, E#=F, B#=C).
var noteOffsets = map[string]int{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3,
	"E": 4, "Fb": 4, "E#": 5, "F": 5, "F#": 6, "Gb": 6,
	"G": 7, "G#": 8, "Ab": 8, "A": 9, "A#": 10, "Bb": 10,
	"B": 11, "Cb": 11, "B#": 0,
}

var (
	noteNameRe    = regexp.MustCompile(`^([A-G][#b]?)(-?\d+)$`)
	indexPrefixRe = regexp.MustCompile(`^\d+\.?\s+`)
)

// LineError reports a per-line grammar failure. The validator uses the
// instrument and 1-based line number to decide remediation.
type LineError struct {
	Instrument string
	Line       int
	Err        error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s track, line %d: %v", e.Instrument, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// NoteToMIDI converts a note name to a MIDI number.
// Examples: C4 -> 60, A#3 -> 58, Gb5 -> 78, Cb4 -> 59 (B3), B#3 -> 60 (C4).
func NoteToMIDI(name string) (uint8, error) {
	m := noteNameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("invalid note name: %q", name)
	}
	note := m[1]
	octave, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("invalid octave in %q", name)
	}

	// Enharmonics that cross the octave boundary: Cb4 = B3, B#3 = C4.
	switch note {
	case "Cb":
		octave--
	case "B#":
		octave++
	}

	// Middle C (C4) = 60.
	midi := (octave+1)*12 + noteOffsets[note]
	if midi < 0 || midi > 127 {
		return 0, fmt.Errorf("note %s out of MIDI range (0-127): %d", name, midi)
	}
	return uint8(midi), nil
}

// MIDIToNote converts a MIDI number back to its canonical sharp spelling.
func MIDIToNote(midi uint8) string {
	names := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	return fmt.Sprintf("%s%d", names[midi%12], int(midi)/12-1)
}

// StripIndexPrefix removes a leading "<digits>[.]<space>" line number that
// models often prepend, e.g. "3 C2:80" or "3. C2:80".
func StripIndexPrefix(line string) string {
	return indexPrefixRe.ReplaceAllString(line, "")
}

// ParseStep parses a single step line (index prefix already stripped):
// "." rest, "^" tie, or a comma-separated NOTE:VELOCITY list.
// Velocities outside [0,127] are clamped with a logged warning, never an error.
func ParseStep(line string) (Step, error) {
	entry := strings.TrimSpace(line)
	// Common model mistakes: trailing punctuation after the last entry.
	entry = strings.TrimRight(entry, ".,;")
	entry = strings.TrimSpace(entry)

	if entry == "" {
		return RestStep(), nil
	}
	if entry == "^" {
		return TieStep(), nil
	}

	var notes []Note
	for _, part := range strings.Split(entry, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue // trailing comma
		}
		pitchStr, velStr, ok := strings.Cut(part, ":")
		if !ok {
			return Step{}, fmt.Errorf("invalid note format (expected NOTE:VELOCITY): %q", part)
		}
		pitch, err := NoteToMIDI(strings.TrimSpace(pitchStr))
		if err != nil {
			return Step{}, err
		}
		vel, err := parseVelocity(strings.TrimSpace(velStr))
		if err != nil {
			return Step{}, err
		}
		notes = append(notes, Note{Pitch: pitch, Velocity: vel})
	}

	if len(notes) == 0 {
		return RestStep(), nil
	}
	return NoteStep(notes...), nil
}

// parseVelocity reads the leading integer of a velocity field, tolerating
// trailing junk, and clamps it into MIDI range.
func parseVelocity(s string) (uint8, error) {
	end := 0
	if end < len(s) && s[end] == '-' {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	digits := s[:end]
	if digits == "" || digits == "-" {
		return 0, fmt.Errorf("no valid velocity found in %q", s)
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("no valid velocity found in %q", s)
	}
	switch {
	case v < 0:
		log.Printf("⚠️  velocity %d below range, clamping to 0", v)
		return 0, nil
	case v > 127:
		log.Printf("⚠️  velocity %d above range, clamping to 127", v)
		return 127, nil
	}
	return uint8(v), nil
}

// ParseTrack parses the step lines of one instrument. Blank lines are
// skipped; index prefixes are stripped. Failures are reported as *LineError
// with the 1-based line number within the instrument block.
func ParseTrack(instrument string, lines []string) (InstrumentTrack, error) {
	var steps []Step
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		line = StripIndexPrefix(line)
		step, err := ParseStep(line)
		if err != nil {
			return InstrumentTrack{}, &LineError{Instrument: instrument, Line: i + 1, Err: err}
		}
		steps = append(steps, step)
	}
	return InstrumentTrack{Instrument: instrument, Steps: steps}, nil
}

// Parse parses full tracker text into per-instrument tracks.
//
// The document is a sequence of instrument blocks: a header line that is
// exactly BASS, DRUMS, PIANO, or SAX on its own, followed by one line per
// step. Note data before any header is a structural error.
func Parse(text string) (map[string]InstrumentTrack, error) {
	tracks := make(map[string]InstrumentTrack)
	current := ""
	var currentLines []string

	flush := func() error {
		if current == "" || len(currentLines) == 0 {
			return nil
		}
		tr, err := ParseTrack(current, currentLines)
		if err != nil {
			return err
		}
		tracks[current] = tr
		return nil
	}

	for _, raw := range strings.Split(strings.TrimSpace(text), "\n") {
		line := strings.TrimSpace(raw)
		if IsInstrument(line) {
			if err := flush(); err != nil {
				return nil, err
			}
			current = line
			currentLines = currentLines[:0]
			continue
		}
		if line == "" {
			continue
		}
		if current == "" {
			return nil, fmt.Errorf("found note data before instrument header: %q", line)
		}
		currentLines = append(currentLines, line)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return tracks, nil
}
