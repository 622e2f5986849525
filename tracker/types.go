package tracker

// Instruments lists the quartet in generation order. Headers in tracker text
// must match these names exactly.
var Instruments = []string{"BASS", "DRUMS", "PIANO", "SAX"}

// IsInstrument reports whether name is one of the four quartet headers.
func IsInstrument(name string) bool {
	for _, inst := range Instruments {
		if inst == name {
			return true
		}
	}
	return false
}

// Note is a single pitch with velocity, both in MIDI range [0,127].
type Note struct {
	Pitch    uint8
	Velocity uint8
}

// Step is one slot on the fixed 16th-note grid. Exactly one of the three
// states holds: rest (no notes), tie (continue previous notes), or a
// non-empty note list.
type Step struct {
	Notes  []Note
	IsRest bool
	IsTie  bool
}

// RestStep returns a rest step.
func RestStep() Step { return Step{IsRest: true} }

// TieStep returns a tie step.
func TieStep() Step { return Step{IsTie: true} }

// NoteStep returns a sounding step with the given notes.
func NoteStep(notes ...Note) Step { return Step{Notes: notes} }

// InstrumentTrack is the full step sequence for one instrument within a
// section. All tracks of a section have identical length.
type InstrumentTrack struct {
	Instrument string
	Steps      []Step
}

// Section is one generated multi-instrument unit. It is immutable once
// produced by the pipeline and consumed exactly once by playback or export.
type Section struct {
	Tracks  map[string]InstrumentTrack
	RawText map[string]string
}

// Steps returns the step count of the section (tracks are equal length).
func (s *Section) Steps() int {
	for _, tr := range s.Tracks {
		return len(tr.Steps)
	}
	return 0
}

// Concatenate joins multiple sections into one long track set, instrument by
// instrument, in quartet order. Used by the offline export path.
func Concatenate(sections []*Section) map[string]InstrumentTrack {
	combined := make(map[string]InstrumentTrack)
	for _, inst := range Instruments {
		var steps []Step
		for _, sec := range sections {
			if tr, ok := sec.Tracks[inst]; ok {
				steps = append(steps, tr.Steps...)
			}
		}
		if len(steps) > 0 {
			combined[inst] = InstrumentTrack{Instrument: inst, Steps: steps}
		}
	}
	return combined
}
