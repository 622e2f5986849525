package config

import (
	"testing"
	"time"
)

func TestDerivedValues(t *testing.T) {
	cfg := Default()

	if got := cfg.StepsPerSection(); got != 32 {
		t.Errorf("StepsPerSection = %d, expected 32 (16 steps x 2 bars)", got)
	}
	if got := cfg.TicksPerStep(); got != 120 {
		t.Errorf("TicksPerStep = %d, expected 120 (480/4)", got)
	}
	if got := cfg.StepDuration(); got != 125*time.Millisecond {
		t.Errorf("StepDuration = %v, expected 125ms at 120 BPM", got)
	}
	if got := cfg.SectionDuration(); got != 4*time.Second {
		t.Errorf("SectionDuration = %v, expected 4s (32 steps x 125ms)", got)
	}
}

func TestChannelAssignments(t *testing.T) {
	cfg := Default()
	if got := cfg.Channel("DRUMS"); got != 9 {
		t.Errorf("DRUMS channel = %d, expected 9 (GM drum channel)", got)
	}
	if got := cfg.Channel("BASS"); got != 0 {
		t.Errorf("BASS channel = %d, expected 0", got)
	}
	if _, ok := cfg.Programs["DRUMS"]; ok {
		t.Error("DRUMS must not have a program assignment")
	}
}

func TestWithMethodsDoNotMutate(t *testing.T) {
	base := Default()
	modified := base.WithTempo(200).WithSwing(false, 0.5).WithNoteMode(NoteModeSustain)

	if base.Tempo != 120 || !base.SwingEnabled || base.NoteMode != NoteModeTrigger {
		t.Errorf("base config mutated: %+v", base)
	}
	if modified.Tempo != 200 || modified.SwingEnabled || modified.NoteMode != NoteModeSustain {
		t.Errorf("modified config wrong: %+v", modified)
	}
}

func TestWithDrumTranslationCopiesMap(t *testing.T) {
	noteMap := map[uint8]uint8{42: 57}
	cfg := Default().WithDrumTranslation(true, noteMap)

	noteMap[42] = 0
	if got := cfg.DrumNoteMap[42]; got != 57 {
		t.Errorf("DrumNoteMap shares caller's map: got %d, expected 57", got)
	}
}
