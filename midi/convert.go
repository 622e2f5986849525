package midi

import (
	"math"
	"sort"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
	"github.com/Conceptual-Machines/infinite-quartet-go/tracker"
)

// TimedEvent is a MIDI message at a monotonic offset from playback start.
type TimedEvent struct {
	At  time.Duration
	Msg gomidi.Message
}

// tickEvent is the tick-domain form shared by live conversion and SMF export.
// priority orders program changes before note events at the same tick.
type tickEvent struct {
	tick     int
	priority int
	msg      gomidi.Message
}

// StepTick returns the tick position of step i. Steps form on-beat/off-beat
// pairs; with swing enabled the off-beat member is delayed by swingRatio of
// the pair duration. Pure in i, so the same index always lands on the same
// tick.
func StepTick(cfg config.RuntimeConfig, i int) int {
	tps := cfg.TicksPerStep()
	if !cfg.SwingEnabled {
		return i * tps
	}
	pairDur := 2 * tps
	base := (i / 2) * pairDur
	if i%2 == 0 {
		return base
	}
	return base + int(math.Round(float64(pairDur)*cfg.SwingRatio))
}

// tickTime converts a tick position to a wall-clock offset. The division
// happens after the multiply so exact step boundaries stay exact.
func tickTime(cfg config.RuntimeConfig, tick int) time.Duration {
	return time.Duration(tick) * time.Minute / time.Duration(cfg.Tempo*cfg.TicksPerBeat)
}

// adaptPitch applies the hardware adaptation: drum pitches go through the
// translation table (unmapped values pass through), melodic pitches shift by
// whole octaves clamped to MIDI range.
func adaptPitch(cfg config.RuntimeConfig, instrument string, pitch uint8) uint8 {
	if instrument == "DRUMS" {
		if cfg.TranslateDrumNotes {
			if mapped, ok := cfg.DrumNoteMap[pitch]; ok {
				return mapped
			}
		}
		return pitch
	}
	if cfg.MelodicOctaveShift != 0 {
		shifted := int(pitch) + 12*cfg.MelodicOctaveShift
		if shifted < 0 {
			shifted = 0
		} else if shifted > 127 {
			shifted = 127
		}
		return uint8(shifted)
	}
	return pitch
}

// adaptStep adapts a step's pitches and collapses duplicates, keeping the
// loudest velocity per pitch. A repeated chord entry, or a drum translation
// mapping two input pitches onto one output, would otherwise open two
// note-ons on the same pitch.
func adaptStep(cfg config.RuntimeConfig, instrument string, notes []tracker.Note) []tracker.Note {
	adapted := make([]tracker.Note, 0, len(notes))
	index := make(map[uint8]int, len(notes))
	for _, n := range notes {
		pitch := adaptPitch(cfg, instrument, n.Pitch)
		if i, ok := index[pitch]; ok {
			if n.Velocity > adapted[i].Velocity {
				adapted[i].Velocity = n.Velocity
			}
			continue
		}
		index[pitch] = len(adapted)
		adapted = append(adapted, tracker.Note{Pitch: pitch, Velocity: n.Velocity})
	}
	return adapted
}

// trackTickEvents runs the note lifecycle state machine over one track.
//
// NOTE steps close whatever is sounding and open the new notes; in sustain
// mode an identical note set keeps ringing instead of retriggering. TIE steps
// emit nothing. REST steps close. Anything still sounding at the end of the
// track is force-closed at the final boundary.
func trackTickEvents(cfg config.RuntimeConfig, tr tracker.InstrumentTrack, includeProgram bool) []tickEvent {
	ch := cfg.Channel(tr.Instrument)
	var events []tickEvent

	if includeProgram {
		if prog, ok := cfg.Programs[tr.Instrument]; ok {
			events = append(events, tickEvent{tick: 0, priority: 0, msg: gomidi.ProgramChange(ch, prog)})
		}
	}

	var active []tracker.Note // pitches already adapted
	closeActive := func(tick int) {
		for _, n := range active {
			events = append(events, tickEvent{tick: tick, priority: 1, msg: gomidi.NoteOff(ch, n.Pitch)})
		}
		active = nil
	}

	for i, step := range tr.Steps {
		switch {
		case step.IsTie:
			// existing notes keep sounding
		case step.IsRest:
			closeActive(StepTick(cfg, i))
		default:
			adapted := adaptStep(cfg, tr.Instrument, step.Notes)
			if cfg.NoteMode == config.NoteModeSustain && sameNotes(active, adapted) {
				continue
			}
			tick := StepTick(cfg, i)
			closeActive(tick)
			for _, n := range adapted {
				events = append(events, tickEvent{tick: tick, priority: 1, msg: gomidi.NoteOn(ch, n.Pitch, n.Velocity)})
			}
			active = adapted
		}
	}
	closeActive(len(tr.Steps) * cfg.TicksPerStep())
	return events
}

func sameNotes(a, b []tracker.Note) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Converter turns sections into timed events. Program changes are emitted at
// most once per instrument over the converter's lifetime, so one converter
// should span a whole playback session.
type Converter struct {
	cfg          config.RuntimeConfig
	sentPrograms map[string]bool
}

// NewConverter creates a converter for one playback session.
func NewConverter(cfg config.RuntimeConfig) *Converter {
	return &Converter{cfg: cfg, sentPrograms: make(map[string]bool)}
}

// ConvertTrack converts one instrument track. Event times are relative to the
// section start.
func (c *Converter) ConvertTrack(tr tracker.InstrumentTrack) []TimedEvent {
	includeProgram := c.cfg.SendProgramChanges && !c.sentPrograms[tr.Instrument]
	if includeProgram {
		c.sentPrograms[tr.Instrument] = true
	}
	ticks := trackTickEvents(c.cfg, tr, includeProgram)

	out := make([]TimedEvent, len(ticks))
	for i, ev := range ticks {
		out[i] = TimedEvent{At: tickTime(c.cfg, ev.tick), Msg: ev.msg}
	}
	return out
}

// ConvertSection converts all tracks of a section and merges them into one
// ascending stream, program changes first at equal times.
func (c *Converter) ConvertSection(sec *tracker.Section) []TimedEvent {
	var merged []tickEvent
	for _, inst := range tracker.Instruments {
		tr, ok := sec.Tracks[inst]
		if !ok {
			continue
		}
		includeProgram := c.cfg.SendProgramChanges && !c.sentPrograms[inst]
		if includeProgram {
			c.sentPrograms[inst] = true
		}
		merged = append(merged, trackTickEvents(c.cfg, tr, includeProgram)...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].tick != merged[j].tick {
			return merged[i].tick < merged[j].tick
		}
		return merged[i].priority < merged[j].priority
	})

	out := make([]TimedEvent, len(merged))
	for i, ev := range merged {
		out[i] = TimedEvent{At: tickTime(c.cfg, ev.tick), Msg: ev.msg}
	}
	return out
}
