package config

import "time"

// NoteMode controls how long a sounding step rings.
type NoteMode string

const (
	// NoteModeTrigger ends every sounding step at the next step boundary.
	NoteModeTrigger NoteMode = "trigger"
	// NoteModeSustain holds notes until an explicit rest or a new note step.
	NoteModeSustain NoteMode = "sustain"
)

// RuntimeConfig is the single immutable configuration value shared by every
// component. It is built once at startup; the With* methods return modified
// copies and never mutate in place.
type RuntimeConfig struct {
	Tempo          int     // BPM
	StepsPerBar    int     // fixed 16th-note grid: 16 in 4/4
	BarsPerSection int     // bars generated per LLM call
	SwingEnabled   bool    // delay off-beat steps for a long-short feel
	SwingRatio     float64 // 0.5 = straight, 0.67 = 2:1 jazz swing
	NoteMode       NoteMode
	TicksPerBeat   int // MIDI resolution

	// Channels maps instrument name to MIDI channel (0-based).
	Channels map[string]uint8
	// Programs maps instrument name to GM program number. Drums have none.
	Programs map[string]uint8

	// Hardware adaptation, applied at conversion time.
	TranslateDrumNotes bool
	DrumNoteMap        map[uint8]uint8 // many-to-one; unmapped pitches pass through
	MelodicOctaveShift int             // whole octaves, result clamped to [0,127]
	SendProgramChanges bool
}

// Default returns the runtime configuration the original quartet ships with:
// 120 BPM swing on a 16th-note grid, two bars per section, General MIDI
// channel and program assignments.
func Default() RuntimeConfig {
	return RuntimeConfig{
		Tempo:          120,
		StepsPerBar:    16,
		BarsPerSection: 2,
		SwingEnabled:   true,
		SwingRatio:     0.67,
		NoteMode:       NoteModeTrigger,
		TicksPerBeat:   480,
		Channels: map[string]uint8{
			"BASS":  0,
			"DRUMS": 9, // GM drum channel (10 in 1-indexed)
			"PIANO": 1,
			"SAX":   2,
		},
		Programs: map[string]uint8{
			"PIANO": 0,  // Acoustic Grand Piano
			"BASS":  33, // Electric Bass (Finger)
			"SAX":   65, // Alto Sax
		},
		TranslateDrumNotes: false,
		DrumNoteMap:        nil,
		MelodicOctaveShift: 0,
		SendProgramChanges: true,
	}
}

// StepsPerSection is the exact step-line count every instrument must produce.
func (c RuntimeConfig) StepsPerSection() int {
	return c.StepsPerBar * c.BarsPerSection
}

// TicksPerStep is the MIDI tick length of one grid step (16th notes: 4 per beat).
func (c RuntimeConfig) TicksPerStep() int {
	return c.TicksPerBeat / 4
}

// StepDuration is the straight (unswung) wall-clock length of one step.
func (c RuntimeConfig) StepDuration() time.Duration {
	beat := time.Minute / time.Duration(c.Tempo)
	return beat / 4
}

// SectionDuration is the wall-clock length of one full section.
func (c RuntimeConfig) SectionDuration() time.Duration {
	return time.Duration(c.StepsPerSection()) * c.StepDuration()
}

// Channel returns the MIDI channel for an instrument (0 when unmapped).
func (c RuntimeConfig) Channel(instrument string) uint8 {
	return c.Channels[instrument]
}

// WithTempo returns a copy with a new tempo.
func (c RuntimeConfig) WithTempo(bpm int) RuntimeConfig {
	c.Tempo = bpm
	return c
}

// WithSwing returns a copy with swing toggled and the given ratio.
func (c RuntimeConfig) WithSwing(enabled bool, ratio float64) RuntimeConfig {
	c.SwingEnabled = enabled
	c.SwingRatio = ratio
	return c
}

// WithNoteMode returns a copy with a new note duration mode.
func (c RuntimeConfig) WithNoteMode(mode NoteMode) RuntimeConfig {
	c.NoteMode = mode
	return c
}

// WithDrumTranslation returns a copy with the drum pitch translation table.
// The map is copied so later edits to the argument cannot leak in.
func (c RuntimeConfig) WithDrumTranslation(enabled bool, noteMap map[uint8]uint8) RuntimeConfig {
	c.TranslateDrumNotes = enabled
	if noteMap != nil {
		m := make(map[uint8]uint8, len(noteMap))
		for k, v := range noteMap {
			m[k] = v
		}
		c.DrumNoteMap = m
	}
	return c
}

// WithMelodicOctaveShift returns a copy shifting melodic instruments by whole octaves.
func (c RuntimeConfig) WithMelodicOctaveShift(octaves int) RuntimeConfig {
	c.MelodicOctaveShift = octaves
	return c
}

// WithProgramChanges returns a copy with program-change emission toggled.
func (c RuntimeConfig) WithProgramChanges(enabled bool) RuntimeConfig {
	c.SendProgramChanges = enabled
	return c
}

// WithBarsPerSection returns a copy with a new section length in bars.
func (c RuntimeConfig) WithBarsPerSection(bars int) RuntimeConfig {
	c.BarsPerSection = bars
	return c
}
