package midi

import (
	"fmt"
	"log"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/Conceptual-Machines/infinite-quartet-go/config"
)

// Sink is where realtime MIDI messages go.
type Sink interface {
	Send(msg gomidi.Message) error
	Close() error
}

// PortSink sends to a real or virtual MIDI output port.
type PortSink struct {
	name string
	port drivers.Out
	send func(gomidi.Message) error
}

// OpenPort opens the named system MIDI output. An empty name picks the first
// available port.
func OpenPort(name string) (*PortSink, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("init MIDI driver: %w", err)
	}

	var port drivers.Out
	if name == "" {
		outs, err := drv.Outs()
		if err != nil || len(outs) == 0 {
			return nil, fmt.Errorf("no MIDI output ports available: %v", err)
		}
		port = outs[0]
	} else {
		port, err = gomidi.FindOutPort(name)
		if err != nil {
			return nil, fmt.Errorf("find MIDI output %q: %w", name, err)
		}
	}

	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open MIDI output %q: %w", port.String(), err)
	}
	log.Printf("✅ MIDI output: %s", port.String())
	return &PortSink{name: port.String(), port: port, send: send}, nil
}

// OpenVirtual creates a virtual MIDI output other applications can connect to.
func OpenVirtual(name string) (*PortSink, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("init MIDI driver: %w", err)
	}
	port, err := drv.OpenVirtualOut(name)
	if err != nil {
		return nil, fmt.Errorf("open virtual MIDI output %q: %w", name, err)
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("attach to virtual output %q: %w", name, err)
	}
	log.Printf("✅ virtual MIDI output: %s", name)
	return &PortSink{name: name, port: port, send: send}, nil
}

// Name returns the port name.
func (s *PortSink) Name() string { return s.name }

// Send writes one message to the port.
func (s *PortSink) Send(msg gomidi.Message) error { return s.send(msg) }

// Close releases the port and the driver.
func (s *PortSink) Close() error {
	if s.port != nil {
		s.port.Close()
	}
	gomidi.CloseDriver()
	return nil
}

// SilenceAll sends All Notes Off on every configured channel. Used on stop
// and on panic paths so no hardware note is left ringing.
func SilenceAll(sink Sink, cfg config.RuntimeConfig) {
	for inst, ch := range cfg.Channels {
		if err := sink.Send(gomidi.ControlChange(ch, gomidi.AllNotesOff, gomidi.Off)); err != nil {
			log.Printf("⚠️  all-notes-off failed for %s: %v", inst, err)
		}
	}
}
