package xmidi

import "errors"

// ErrInvalidFormat is returned when the container structure is not a
// recognised XMIDI file. No partial container is ever returned with it.
var ErrInvalidFormat = errors.New("invalid XMIDI file format")

// ErrTruncatedTrack is returned when a track's event data ends before its
// end-of-track meta event.
var ErrTruncatedTrack = errors.New("XMIDI track ended without end-of-track event")

// ErrNoTracks is returned by Retrieve on a container holding no tracks.
var ErrNoTracks = errors.New("no tracks available")

// ErrTrackIndex is returned by Retrieve for an out-of-range track index.
var ErrTrackIndex = errors.New("track index out of range")
