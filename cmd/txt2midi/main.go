package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
	"github.com/Conceptual-Machines/infinite-quartet-go/midi"
	"github.com/Conceptual-Machines/infinite-quartet-go/tracker"
)

var (
	outPath    = flag.String("out", "", "output .mid path (default: first input with .mid extension)")
	tempo      = flag.Int("tempo", 120, "tempo in BPM")
	noSwing    = flag.Bool("no-swing", false, "disable swing timing")
	swingRatio = flag.Float64("swing-ratio", 0.67, "swing ratio (0.5 = straight, 0.67 = 2:1)")
	noteMode   = flag.String("note-mode", "trigger", "note duration mode: trigger|sustain")
)

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: txt2midi [flags] file.txt [file.txt ...]\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(flag.Args()); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// run loads every tracker text file, concatenates them in argument order and
// writes one standard MIDI file.
func run(paths []string) error {
	cfg := config.Default().
		WithTempo(*tempo).
		WithSwing(!*noSwing, *swingRatio).
		WithNoteMode(config.NoteMode(*noteMode))

	var sections []*tracker.Section
	for _, path := range paths {
		tracks, err := tracker.LoadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		sections = append(sections, &tracker.Section{Tracks: tracks})
		log.Printf("✅ loaded %s", path)
	}

	combined := tracker.Concatenate(sections)
	if len(combined) == 0 {
		return fmt.Errorf("no instrument tracks found in input")
	}

	out := *outPath
	if out == "" {
		out = strings.TrimSuffix(paths[0], ".txt") + ".mid"
	}
	if err := midi.WriteSMF(combined, cfg, out); err != nil {
		return err
	}
	log.Printf("✅ wrote %s", out)
	return nil
}
