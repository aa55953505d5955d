// Package datasource provides the random-access byte stream the XMIDI
// converter reads from and writes to. A Stream is backed either by memory or
// by an open file; both support endian-aware integer access, absolute and
// relative seeking, and single byte push-back for the XMIDI delta decoder.
package datasource

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrInvalidSeek is returned when a seek or skip would leave the stream.
var ErrInvalidSeek = errors.New("seek outside stream")

// Source is the read side of a Stream.
type Source interface {
	io.Reader
	io.ByteScanner
	io.Seeker
	ReadUint8() (uint8, error)
	ReadUint16LE() (uint16, error)
	ReadUint16BE() (uint16, error)
	ReadUint32LE() (uint32, error)
	ReadUint32BE() (uint32, error)
	ReadBytes(n int) ([]byte, error)
	Skip(delta int64) error
	Pos() int64
	Size() int64
}

// Sink is the write side of a Stream.
type Sink interface {
	io.Writer
	io.ByteWriter
	io.Seeker
	WriteUint8(v uint8) error
	WriteUint16LE(v uint16) error
	WriteUint16BE(v uint16) error
	WriteUint32LE(v uint32) error
	WriteUint32BE(v uint32) error
	Pos() int64
}

// backing is the storage a Stream positions itself over.
type backing interface {
	io.ReaderAt
	io.WriterAt
	Size() int64
}

// Stream is a positioned view over memory or a file. It is not safe for
// concurrent use.
type Stream struct {
	store  backing
	pos    int64
	closer io.Closer
}

var (
	_ Source = (*Stream)(nil)
	_ Sink   = (*Stream)(nil)
)

// NewBuffer returns a memory-backed stream positioned at the start of data.
// Writes past the end grow the buffer.
func NewBuffer(data []byte) *Stream {
	return &Stream{store: &memory{data: data}}
}

// NewBufferSize returns an empty memory-backed stream with room for n bytes.
func NewBufferSize(n int) *Stream {
	return &Stream{store: &memory{data: make([]byte, 0, n)}}
}

// OpenFile opens the named file for reading.
func OpenFile(name string) (*Stream, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return newFileStream(f)
}

// CreateFile creates or truncates the named file for writing.
func CreateFile(name string) (*Stream, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return newFileStream(f)
}

func newFileStream(f *os.File) (*Stream, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", f.Name(), err)
	}
	return &Stream{store: &file{f: f, size: info.Size()}, closer: f}, nil
}

// Close releases the underlying file, if any.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// Bytes returns the contents of a memory-backed stream, or nil for files.
func (s *Stream) Bytes() []byte {
	if m, ok := s.store.(*memory); ok {
		return m.data
	}
	return nil
}

// Pos returns the current offset.
func (s *Stream) Pos() int64 { return s.pos }

// Size returns the total length of the stream.
func (s *Stream) Size() int64 { return s.store.Size() }

// Seek implements io.Seeker. Positions past the end are allowed for writing.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = s.store.Size() + offset
	default:
		return s.pos, fmt.Errorf("%w: bad whence %d", ErrInvalidSeek, whence)
	}
	if abs < 0 {
		return s.pos, fmt.Errorf("%w: offset %d", ErrInvalidSeek, abs)
	}
	s.pos = abs
	return abs, nil
}

// Skip moves the position by delta bytes; delta may be negative.
func (s *Stream) Skip(delta int64) error {
	_, err := s.Seek(delta, io.SeekCurrent)
	return err
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if s.pos >= s.store.Size() {
		return 0, io.EOF
	}
	n, err := s.store.ReadAt(p, s.pos)
	s.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ReadByte implements io.ByteReader.
func (s *Stream) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := s.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// UnreadByte implements io.ByteScanner by stepping back one byte.
func (s *Stream) UnreadByte() error {
	if s.pos == 0 {
		return fmt.Errorf("%w: unread at start", ErrInvalidSeek)
	}
	s.pos--
	return nil
}

// ReadBytes reads exactly n bytes.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := s.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *Stream) readFull(buf []byte) (int, error) {
	n, err := io.ReadFull(s, buf)
	if err == io.EOF && len(buf) > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func (s *Stream) ReadUint8() (uint8, error) {
	b, err := s.ReadByte()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return b, err
}

func (s *Stream) ReadUint16LE() (uint16, error) {
	var b [2]byte
	if _, err := s.readFull(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func (s *Stream) ReadUint16BE() (uint16, error) {
	var b [2]byte
	if _, err := s.readFull(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func (s *Stream) ReadUint32LE() (uint32, error) {
	var b [4]byte
	if _, err := s.readFull(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (s *Stream) ReadUint32BE() (uint32, error) {
	var b [4]byte
	if _, err := s.readFull(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	n, err := s.store.WriteAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

// WriteByte implements io.ByteWriter.
func (s *Stream) WriteByte(b byte) error {
	_, err := s.Write([]byte{b})
	return err
}

func (s *Stream) WriteUint8(v uint8) error {
	return s.WriteByte(v)
}

func (s *Stream) WriteUint16LE(v uint16) error {
	_, err := s.Write(binary.LittleEndian.AppendUint16(nil, v))
	return err
}

func (s *Stream) WriteUint16BE(v uint16) error {
	_, err := s.Write(binary.BigEndian.AppendUint16(nil, v))
	return err
}

func (s *Stream) WriteUint32LE(v uint32) error {
	_, err := s.Write(binary.LittleEndian.AppendUint32(nil, v))
	return err
}

func (s *Stream) WriteUint32BE(v uint32) error {
	_, err := s.Write(binary.BigEndian.AppendUint32(nil, v))
	return err
}

// memory is a growable in-memory backing.
type memory struct {
	data []byte
}

func (m *memory) Size() int64 { return int64(len(m.data)) }

func (m *memory) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memory) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		if end <= int64(cap(m.data)) {
			m.data = m.data[:end]
		} else {
			grown := make([]byte, end, max(end, 2*int64(cap(m.data))))
			copy(grown, m.data)
			m.data = grown
		}
	}
	return copy(m.data[off:], p), nil
}

// file is an *os.File backing; size is tracked so Size needs no syscall.
type file struct {
	f    *os.File
	size int64
}

func (f *file) Size() int64 { return f.size }

func (f *file) ReadAt(p []byte, off int64) (int, error) {
	return f.f.ReadAt(p, off)
}

func (f *file) WriteAt(p []byte, off int64) (int, error) {
	n, err := f.f.WriteAt(p, off)
	if end := off + int64(n); end > f.size {
		f.size = end
	}
	return n, err
}
