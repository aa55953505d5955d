// Package xmidi converts XMIDI (extended MIDI, as shipped with many DOS era
// games) into Standard MIDI Files.
//
// An XMIDI file holds one or more tracks, each a separate sequence. Decode
// reads the whole container up front; Retrieve then renders any single track
// as a format 0 SMF:
//
//	c, err := xmidi.Read(f)
//	if err != nil {
//		return err
//	}
//	data, err := c.MIDI(0)
//
// Every converted track is first repaired so that each channel starts with
// an explicit bank select, volume, pan and program change.
package xmidi

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/zurustar/xmi2mid/pkg/datasource"
)

// headerSize is the size of the MThd chunk written ahead of the track.
const headerSize = 14

// Track is one decoded sequence.
type Track struct {
	mu     sync.Mutex
	list   *eventList
	timing uint16
	fixed  bool
}

// Timing returns the SMF division derived from the track's tempo.
func (t *Track) Timing() uint16 { return t.timing }

// Events returns a copy of the track's events in playing order. Once the
// track has been retrieved the copy includes the setup events added by
// repair.
func (t *Track) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.list.snapshot()
}

// Fixed reports whether repair has run on the track.
func (t *Track) Fixed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fixed
}

// Container holds every track of one XMIDI file.
type Container struct {
	tracks []*Track
	log    *slog.Logger
}

// Decode reads an XMIDI container from src. src is left positioned after the
// last track read.
func Decode(src datasource.Source) (*Container, error) {
	log := slog.Default()
	c := &chunkCursor{src: src, log: log}

	count, err := c.readContainer()
	if err != nil {
		return nil, err
	}
	log.Debug("XMIDI container", "tracks", count)

	tracks, err := c.readTracks(count)
	if err != nil {
		return nil, err
	}
	return &Container{tracks: tracks, log: log}, nil
}

// Read loads all of r into memory and decodes it.
func Read(r io.Reader) (*Container, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to read XMIDI data: %w", err)
	}
	return Decode(datasource.NewBuffer(buf.Bytes()))
}

// TrackCount returns the number of tracks.
func (c *Container) TrackCount() int { return len(c.tracks) }

// Track returns track i, or nil if i is out of range.
func (c *Container) Track(i int) *Track {
	if i < 0 || i >= len(c.tracks) {
		return nil
	}
	return c.tracks[i]
}

func (c *Container) track(index int) (*Track, error) {
	if len(c.tracks) == 0 {
		c.log.Warn("no tracks to retrieve")
		return nil, ErrNoTracks
	}
	if index < 0 || index >= len(c.tracks) {
		c.log.Warn("track index out of range", "track", index, "tracks", len(c.tracks))
		return nil, fmt.Errorf("%w: %d of %d", ErrTrackIndex, index, len(c.tracks))
	}
	return c.tracks[index], nil
}

// Retrieve renders track index as a format 0 SMF. With a nil sink nothing is
// written and the size the file would have is returned. Otherwise the file is
// written at the sink's position and the number of bytes written returned.
// Both report the same size for the same track.
func (c *Container) Retrieve(index int, sink datasource.Sink) (int, error) {
	t, err := c.track(index)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.fixed {
		var added int
		t.list, added = repair(t.list)
		t.fixed = true
		c.log.Debug("repaired track", "track", index, "added", added)
	}

	if sink == nil {
		n, err := measure(t.list)
		if err != nil {
			return 0, fmt.Errorf("failed to measure track %d: %w", index, err)
		}
		return headerSize + n, nil
	}

	if err := writeHeader(sink, t.timing); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	n, err := write(sink, t.list)
	if err != nil {
		return headerSize + n, fmt.Errorf("failed to write track %d: %w", index, err)
	}
	return headerSize + n, nil
}

// MIDI returns track index as a complete SMF, sized ahead of time so the
// buffer is allocated once.
func (c *Container) MIDI(index int) ([]byte, error) {
	size, err := c.Retrieve(index, nil)
	if err != nil {
		return nil, err
	}
	buf := datasource.NewBufferSize(size)
	if _, err := c.Retrieve(index, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(sink datasource.Sink, timing uint16) error {
	if _, err := sink.Write([]byte("MThd")); err != nil {
		return err
	}
	for _, v := range []uint16{0, 6, 0, 1, timing} {
		if err := sink.WriteUint16BE(v); err != nil {
			return err
		}
	}
	return nil
}
