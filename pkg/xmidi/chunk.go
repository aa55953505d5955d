package xmidi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zurustar/xmi2mid/pkg/datasource"
)

// Chunk tags of the XMIDI container.
const (
	tagForm = "FORM"
	tagXDIR = "XDIR"
	tagXMID = "XMID"
	tagINFO = "INFO"
	tagCAT  = "CAT "
	tagEVNT = "EVNT"
)

// chunkCursor walks IFF style chunks: a four byte tag, a big-endian length
// and a body padded to an even size.
type chunkCursor struct {
	src datasource.Source
	log *slog.Logger
}

func (c *chunkCursor) readTag() (string, error) {
	b, err := c.src.ReadBytes(4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *chunkCursor) readLength() (int64, error) {
	n, err := c.src.ReadUint32BE()
	return int64(n), err
}

// readHeader reads a tag and its length.
func (c *chunkCursor) readHeader() (string, int64, error) {
	tag, err := c.readTag()
	if err != nil {
		return "", 0, err
	}
	length, err := c.readLength()
	if err != nil {
		return "", 0, err
	}
	return tag, length, nil
}

// skipPadded skips a chunk body of the given length plus its pad byte.
func (c *chunkCursor) skipPadded(length int64) error {
	return c.src.Skip(padded(length))
}

func (c *chunkCursor) remaining() int64 {
	return c.src.Size() - c.src.Pos()
}

func (c *chunkCursor) seek(pos int64) error {
	_, err := c.src.Seek(pos, io.SeekStart)
	return err
}

func padded(length int64) int64 {
	return (length + 1) &^ 1
}

func formatError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidFormat}, args...)...)
}

// readContainer checks the outer FORM and returns the declared track count,
// leaving the cursor at the first track chunk group.
func (c *chunkCursor) readContainer() (int, error) {
	tag, formLen, err := c.readHeader()
	if err != nil {
		return 0, formatError("reading FORM header: %v", err)
	}
	if tag != tagForm {
		return 0, formatError("file starts with %q, want %q", tag, tagForm)
	}
	start := c.src.Pos()

	typ, err := c.readTag()
	if err != nil {
		return 0, formatError("reading FORM type: %v", err)
	}
	switch typ {
	case tagXMID:
		c.log.Warn("XMIDI has no XDIR chunk, assuming a single track")
		return 1, nil
	case tagXDIR:
	default:
		return 0, formatError("FORM type %q is neither %q nor %q", typ, tagXMID, tagXDIR)
	}

	count, err := c.readTrackCount(start + formLen)
	if err != nil {
		return 0, err
	}

	if err := c.seek(start + padded(formLen)); err != nil {
		return 0, formatError("seeking past XDIR: %v", err)
	}
	tag, _, err = c.readHeader()
	if err != nil {
		return 0, formatError("reading CAT header: %v", err)
	}
	if tag != tagCAT {
		return 0, formatError("found %q after XDIR, want %q", tag, tagCAT)
	}
	typ, err = c.readTag()
	if err != nil {
		return 0, formatError("reading CAT type: %v", err)
	}
	if typ != tagXMID {
		return 0, formatError("CAT type %q, want %q", typ, tagXMID)
	}
	return count, nil
}

// readTrackCount scans the XDIR form for its INFO chunk.
func (c *chunkCursor) readTrackCount(end int64) (int, error) {
	for c.src.Pos() < end {
		tag, length, err := c.readHeader()
		if err != nil {
			break
		}
		if tag != tagINFO {
			c.log.Debug("skipping XDIR chunk", "tag", tag, "length", length)
			if err := c.skipPadded(length); err != nil {
				return 0, formatError("skipping %q: %v", tag, err)
			}
			continue
		}
		if length < 2 {
			return 0, formatError("INFO chunk is %d bytes, need 2", length)
		}
		count, err := c.src.ReadUint16LE()
		if err != nil {
			return 0, formatError("reading track count: %v", err)
		}
		if count == 0 {
			break
		}
		return int(count), nil
	}
	return 0, formatError("XDIR has no usable INFO chunk")
}

// nextTrack finds the next EVNT chunk, unwrapping a FORM around its group
// and skipping anything else. It returns the chunk body and leaves the
// cursor after its padding.
func (c *chunkCursor) nextTrack() ([]byte, error) {
	for c.remaining() > 0 {
		tag, length, err := c.readHeader()
		if err != nil {
			return nil, err
		}
		if tag == tagForm {
			if err := c.src.Skip(4); err != nil {
				return nil, err
			}
			if tag, length, err = c.readHeader(); err != nil {
				return nil, err
			}
		}
		if tag != tagEVNT {
			c.log.Debug("skipping chunk", "tag", tag, "length", length)
			if err := c.skipPadded(length); err != nil {
				return nil, err
			}
			continue
		}

		begin := c.src.Pos()
		if length > c.remaining() {
			return nil, fmt.Errorf("%w: EVNT chunk of %d bytes, %d left", ErrTruncatedTrack, length, c.remaining())
		}
		data, err := c.src.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		if err := c.seek(begin + padded(length)); err != nil {
			return nil, err
		}
		return data, nil
	}
	return nil, io.EOF
}

// readTracks decodes count tracks and fails unless exactly that many EVNT
// chunks follow.
func (c *chunkCursor) readTracks(count int) ([]*Track, error) {
	tracks := make([]*Track, 0, count)
	for len(tracks) < count {
		data, err := c.nextTrack()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
		list, timing, err := decodeTrack(data)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", len(tracks), err)
		}
		c.log.Debug("decoded track", "track", len(tracks), "events", list.len(), "timing", timing)
		tracks = append(tracks, &Track{list: list, timing: timing})
	}
	if len(tracks) != count {
		return nil, formatError("declared %d tracks, found %d", count, len(tracks))
	}
	if _, err := c.nextTrack(); err == nil || errors.Is(err, ErrTruncatedTrack) {
		return nil, formatError("declared %d tracks, found more", count)
	} else if !errors.Is(err, io.EOF) {
		c.log.Debug("ignoring trailing data", "error", err)
	}
	return tracks, nil
}
