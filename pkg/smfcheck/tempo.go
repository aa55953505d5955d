package smfcheck

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zurustar/xmi2mid/pkg/vlq"
)

// DefaultMicrosPerBeat is the SMF tempo when a file sets none (120 BPM).
const DefaultMicrosPerBeat = 500000

// TempoEvent represents a tempo change in a MIDI file.
type TempoEvent struct {
	Tick          int // MIDI tick position
	MicrosPerBeat int // Microseconds per quarter note
}

// TempoMap extracts all tempo events and the division from SMF data. The
// first entry is always at tick 0; a default one is inserted when the file
// starts without a tempo. SMPTE divisions are reported as 0.
func TempoMap(data []byte) ([]TempoEvent, int, error) {
	if len(data) < 14 || string(data[0:4]) != "MThd" {
		return nil, 0, fmt.Errorf("%w: no MThd header", ErrMismatch)
	}
	headerLen := int(binary.BigEndian.Uint32(data[4:8]))
	if headerLen < 6 || 8+headerLen > len(data) {
		return nil, 0, fmt.Errorf("%w: MThd length %d", ErrMismatch, headerLen)
	}

	ppq := 0
	if division := int(binary.BigEndian.Uint16(data[12:14])); division&0x8000 == 0 {
		ppq = division
	}

	var events []TempoEvent
	offset := 8 + headerLen
	for offset+8 <= len(data) && string(data[offset:offset+4]) == "MTrk" {
		trackLen := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
		trackEnd := offset + 8 + trackLen
		if trackEnd > len(data) {
			return nil, 0, fmt.Errorf("%w: track at %d runs past the end", ErrMismatch, offset)
		}
		found, err := scanTrack(data[offset+8 : trackEnd])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: track at %d: %v", ErrMismatch, offset, err)
		}
		events = append(events, found...)
		offset = trackEnd
	}

	// Ensure we have at least one tempo event at tick 0
	if len(events) == 0 || events[0].Tick > 0 {
		events = append([]TempoEvent{{Tick: 0, MicrosPerBeat: DefaultMicrosPerBeat}}, events...)
	}
	return events, ppq, nil
}

func scanTrack(track []byte) ([]TempoEvent, error) {
	var events []TempoEvent
	r := bytes.NewReader(track)
	tick := 0
	lastStatus := byte(0)

	for r.Len() > 0 {
		delta, _, err := vlq.Read(r)
		if err != nil {
			return nil, err
		}
		tick += int(delta)

		status, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		// Running status
		if status < 0x80 {
			if lastStatus == 0 {
				return nil, fmt.Errorf("data byte 0x%02x without status", status)
			}
			if err := r.UnreadByte(); err != nil {
				return nil, err
			}
			status = lastStatus
		} else if status < 0xF0 {
			lastStatus = status
		}

		skip := 0
		switch {
		case status == 0xFF:
			metaType, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			length, _, err := vlq.Read(r)
			if err != nil {
				return nil, err
			}
			if int(length) > r.Len() {
				return nil, fmt.Errorf("meta 0x%02x of %d bytes runs past the track", metaType, length)
			}
			if metaType == 0x51 && length == 3 {
				var b [3]byte
				if _, err := r.Read(b[:]); err != nil {
					return nil, err
				}
				events = append(events, TempoEvent{Tick: tick, MicrosPerBeat: int(b[0])<<16 | int(b[1])<<8 | int(b[2])})
				continue
			}
			skip = int(length)
		case status == 0xF0 || status == 0xF7:
			length, _, err := vlq.Read(r)
			if err != nil {
				return nil, err
			}
			skip = int(length)
		case status >= 0xC0 && status < 0xE0:
			skip = 1
		default:
			skip = 2
		}
		if skip > r.Len() {
			return nil, fmt.Errorf("event 0x%02x runs past the track", status)
		}
		if _, err := r.Seek(int64(skip), io.SeekCurrent); err != nil {
			return nil, err
		}
	}
	return events, nil
}
