package midi

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
	"github.com/Conceptual-Machines/infinite-quartet-go/tracker"
)

// WriteSMF saves tracks as a type-1 standard MIDI file: one tempo track plus
// one track per instrument in quartet order. The file is meant to be portable,
// so hardware adaptation (drum translation, octave shift) is not applied and
// program changes are always written.
func WriteSMF(tracks map[string]tracker.InstrumentTrack, cfg config.RuntimeConfig, path string) error {
	exportCfg := cfg
	exportCfg.TranslateDrumNotes = false
	exportCfg.MelodicOctaveShift = 0

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(cfg.TicksPerBeat)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(float64(cfg.Tempo)))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return fmt.Errorf("add tempo track: %w", err)
	}

	for _, inst := range tracker.Instruments {
		tr, ok := tracks[inst]
		if !ok {
			continue
		}
		events := trackTickEvents(exportCfg, tr, true)
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].tick != events[j].tick {
				return events[i].tick < events[j].tick
			}
			return events[i].priority < events[j].priority
		})

		var track smf.Track
		track.Add(0, smf.MetaTrackSequenceName(inst))
		last := 0
		for _, ev := range events {
			track.Add(uint32(ev.tick-last), ev.msg)
			last = ev.tick
		}
		end := len(tr.Steps) * cfg.TicksPerStep()
		if end < last {
			end = last
		}
		track.Close(uint32(end - last))
		if err := sm.Add(track); err != nil {
			return fmt.Errorf("add %s track: %w", inst, err)
		}
	}

	if err := sm.WriteFile(path); err != nil {
		return fmt.Errorf("write MIDI file: %w", err)
	}
	return nil
}
