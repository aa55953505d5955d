package xmidi

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/zurustar/xmi2mid/pkg/datasource"
	"github.com/zurustar/xmi2mid/pkg/vlq"
)

const (
	// tickScale converts XMIDI ticks to output ticks.
	tickScale = 3
	// defaultTempo is used for tracks without a set-tempo meta event.
	defaultTempo = 500000
	// timingDivisor turns a scaled tempo into the SMF division.
	timingDivisor = 25000
)

// trackDecoder turns one EVNT chunk into an event list.
type trackDecoder struct {
	r        *datasource.Stream
	list     *eventList
	time     uint32
	tempo    uint32
	tempoSet bool
}

// decodeTrack decodes the event data of one track. data must hold exactly
// the EVNT payload. It returns the event list and the division derived from
// the first tempo event.
func decodeTrack(data []byte) (*eventList, uint16, error) {
	d := &trackDecoder{
		r:     datasource.NewBuffer(data),
		list:  newEventList(),
		tempo: defaultTempo * tickScale,
	}
	if err := d.run(); err != nil {
		return nil, 0, err
	}
	timing := d.tempo / timingDivisor
	if timing == 0 {
		return nil, 0, fmt.Errorf("%w: tempo %d gives unusable division %d", ErrInvalidFormat, d.tempo/tickScale, timing)
	}
	return d.list, uint16(timing), nil
}

func (d *trackDecoder) run() error {
	for {
		if err := d.readDelta(); err != nil {
			return d.truncated(err)
		}
		status, err := d.r.ReadByte()
		if err != nil {
			return d.truncated(err)
		}

		switch status >> 4 {
		case NoteOn:
			err = d.convertNote(status)
		case NoteOff, Aftertouch, Controller, PitchWheel:
			// Bank select (controller 0) lands here too: two data bytes and
			// never a duration.
			err = d.convertEvent(status, 2)
		case ProgramChange, ChannelPressure:
			err = d.convertEvent(status, 1)
		case System:
			var end bool
			end, err = d.convertSystem(status)
			if err == nil && end {
				return nil
			}
		default:
			return fmt.Errorf("%w: expected status byte at offset %d, got 0x%02x", ErrInvalidFormat, d.r.Pos()-1, status)
		}
		if err != nil {
			return d.truncated(err)
		}
	}
}

// readDelta advances the time cursor. A rest longer than one four byte
// delta continues in the next run of bytes below 0x80.
func (d *trackDecoder) readDelta() error {
	for {
		delta, n, err := vlq.ReadDelta(d.r)
		if err != nil {
			return err
		}
		if d.time, err = d.later(delta); err != nil {
			return err
		}
		if n < vlq.MaxBytes {
			return nil
		}
	}
}

// later returns the output time ticks XMIDI ticks after the current one.
func (d *trackDecoder) later(ticks uint32) (uint32, error) {
	t := uint64(d.time) + uint64(ticks)*tickScale
	if t > math.MaxUint32 {
		return 0, fmt.Errorf("%w: event time past %d ticks", ErrInvalidFormat, uint32(math.MaxUint32))
	}
	return uint32(t), nil
}

func (d *trackDecoder) convertEvent(status byte, n int) error {
	ev := Event{Time: d.time, Status: status}
	for i := 0; i < n; i++ {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		ev.Data[i] = b
	}
	d.list.insert(ev)
	return nil
}

// convertNote stores a Note-On and schedules its release. XMIDI stores the
// note length after the velocity instead of a separate Note-Off; the release
// is written as a zero velocity Note-On so running status covers it.
func (d *trackDecoder) convertNote(status byte) error {
	if err := d.convertEvent(status, 2); err != nil {
		return err
	}
	key := d.list.events[d.list.cursor].Data[0]

	duration, _, err := vlq.Read(d.r)
	if err != nil {
		return err
	}

	end, err := d.later(duration)
	if err != nil {
		return err
	}

	// The release is placed ahead of the stream; the cursor must stay on
	// the Note-On for the next event read from the track.
	cursor := d.list.cursor
	d.list.insert(Event{
		Time:   end,
		Status: status,
		Data:   [2]byte{key, 0},
	})
	d.list.cursor = cursor
	return nil
}

// convertSystem reads a meta or system exclusive message. It reports true
// once the end-of-track meta event has been stored.
func (d *trackDecoder) convertSystem(status byte) (bool, error) {
	ev := Event{Time: d.time, Status: status}
	if status == StatusMeta {
		typ, err := d.r.ReadByte()
		if err != nil {
			return false, err
		}
		ev.Data[0] = typ
	}

	length, _, err := vlq.Read(d.r)
	if err != nil {
		return false, err
	}
	if int64(length) > d.r.Size()-d.r.Pos() {
		return false, io.ErrUnexpectedEOF
	}
	if length > 0 {
		if ev.Payload, err = d.r.ReadBytes(int(length)); err != nil {
			return false, err
		}
	}

	if status == StatusMeta && ev.Data[0] == MetaTempo {
		if d.tempoSet {
			// Only the first tempo survives; later ones would fight the
			// division derived from it.
			return false, nil
		}
		if len(ev.Payload) >= 3 {
			d.tempo = (uint32(ev.Payload[0])<<16 | uint32(ev.Payload[1])<<8 | uint32(ev.Payload[2])) * tickScale
			d.tempoSet = true
		}
	}

	d.list.insert(ev)
	return ev.IsEndOfTrack(), nil
}

func (d *trackDecoder) truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: data ran out at offset %d", ErrTruncatedTrack, d.r.Pos())
	}
	return err
}
