// Package smfcheck inspects a Standard MIDI File produced by the converter.
// It reads the file back through two independent MIDI readers and a plain
// tempo scan, so a broken file is caught before it is handed to a player.
package smfcheck

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrMismatch is returned when the readers disagree about the file.
var ErrMismatch = errors.New("MIDI file check failed")

// Report summarises one SMF.
type Report struct {
	Format     uint16
	Tracks     int
	Resolution uint16 // ticks per quarter note
	NoteStarts int
	NoteEnds   int
	Events     int
	Length     time.Duration // playing time as computed by the synthesizer's sequencer
	Tempos     []TempoEvent
}

// Check parses data and returns its report. It fails when data is not a
// format 0 single track file with metric timing, when its notes do not pair
// up, or when the readers disagree on the division.
func Check(data []byte) (*Report, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	r := &Report{Format: s.Format(), Tracks: len(s.Tracks)}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: time format %v is not metric", ErrMismatch, s.TimeFormat)
	}
	r.Resolution = mt.Resolution()

	for _, track := range s.Tracks {
		for _, ev := range track {
			r.Events++
			var ch, key, vel uint8
			switch {
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				r.NoteStarts++
			case ev.Message.GetNoteEnd(&ch, &key):
				r.NoteEnds++
			}
		}
	}

	midi, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load MIDI into sequencer: %w", err)
	}
	r.Length = midi.GetLength()

	tempos, ppq, err := TempoMap(data)
	if err != nil {
		return nil, err
	}
	r.Tempos = tempos

	switch {
	case r.Format != 0:
		return r, fmt.Errorf("%w: format %d, want 0", ErrMismatch, r.Format)
	case r.Tracks != 1:
		return r, fmt.Errorf("%w: %d tracks, want 1", ErrMismatch, r.Tracks)
	case int(r.Resolution) != ppq:
		return r, fmt.Errorf("%w: division %d, tempo scan found %d", ErrMismatch, r.Resolution, ppq)
	case r.NoteStarts != r.NoteEnds:
		return r, fmt.Errorf("%w: %d notes started, %d ended", ErrMismatch, r.NoteStarts, r.NoteEnds)
	}
	return r, nil
}

// Tempo returns the tempo in effect at tick 0 in microseconds per quarter
// note.
func (r *Report) Tempo() int {
	if len(r.Tempos) == 0 {
		return DefaultMicrosPerBeat
	}
	return r.Tempos[0].MicrosPerBeat
}
