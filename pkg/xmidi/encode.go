package xmidi

import (
	"fmt"
	"io"

	"github.com/zurustar/xmi2mid/pkg/datasource"
	"github.com/zurustar/xmi2mid/pkg/vlq"
)

// emitter receives the encoded track. The counting emitter lets the encoder
// size a track without a sink.
type emitter interface {
	io.ByteWriter
	write(p []byte) error
}

type counter struct{ n int }

func (c *counter) WriteByte(byte) error { c.n++; return nil }

func (c *counter) write(p []byte) error { c.n += len(p); return nil }

type sinkEmitter struct {
	sink datasource.Sink
	n    int
}

func (s *sinkEmitter) WriteByte(b byte) error {
	if err := s.sink.WriteByte(b); err != nil {
		return err
	}
	s.n++
	return nil
}

func (s *sinkEmitter) write(p []byte) error {
	n, err := s.sink.Write(p)
	s.n += n
	return err
}

var trackTag = []byte("MTrk")

// measure returns the encoded size of the MTrk chunk for l, header included.
// It fails wherever write would, for example on a delta too large to encode.
func measure(l *eventList) (int, error) {
	c := &counter{}
	if err := encodeTrack(c, l); err != nil {
		return c.n, err
	}
	return c.n, nil
}

// write encodes l as an MTrk chunk at the sink's position and returns the
// number of bytes written.
func write(sink datasource.Sink, l *eventList) (int, error) {
	start := sink.Pos()
	e := &sinkEmitter{sink: sink}
	if err := encodeTrack(e, l); err != nil {
		return e.n, err
	}
	end := sink.Pos()

	if _, err := sink.Seek(start+int64(len(trackTag)), io.SeekStart); err != nil {
		return e.n, err
	}
	if err := sink.WriteUint32BE(uint32(e.n - len(trackTag) - 4)); err != nil {
		return e.n, fmt.Errorf("failed to patch track length: %w", err)
	}
	if _, err := sink.Seek(end, io.SeekStart); err != nil {
		return e.n, err
	}
	return e.n, nil
}

// encodeTrack emits the chunk header with a zero length placeholder, then
// every event up to and including the first end-of-track.
func encodeTrack(e emitter, l *eventList) error {
	if err := e.write(trackTag); err != nil {
		return err
	}
	if err := e.write([]byte{0, 0, 0, 0}); err != nil {
		return err
	}

	var (
		err        error
		last       uint32
		lastStatus byte
	)
	l.each(func(ev *Event) bool {
		delta := uint32(0)
		// Events inserted behind the cursor can sit before their predecessor.
		if ev.Time > last {
			delta = ev.Time - last
		}
		last = ev.Time

		if _, err = vlq.Write(e, delta); err != nil {
			return false
		}
		if ev.Status != lastStatus || ev.Status >= 0xF0 {
			if err = e.WriteByte(ev.Status); err != nil {
				return false
			}
		}
		lastStatus = ev.Status

		switch {
		case ev.Kind() != System:
			err = e.write(ev.Data[:dataLen(ev.Status)])
		case ev.IsMeta():
			if err = e.WriteByte(ev.Data[0]); err != nil {
				return false
			}
			err = writePayload(e, ev.Payload)
		default:
			err = writePayload(e, ev.Payload)
		}
		return err == nil && !ev.IsEndOfTrack()
	})
	return err
}

func writePayload(e emitter, p []byte) error {
	if _, err := vlq.Write(e, uint32(len(p))); err != nil {
		return err
	}
	return e.write(p)
}
