// Package vlq implements the two variable-length integer encodings found in
// XMIDI files: the standard MIDI variable-length quantity and the additive
// delta-time form XMIDI uses between events.
package vlq

import (
	"errors"
	"io"
)

// MaxValue is the largest value a four byte quantity can hold.
const MaxValue = 0x0fffffff

// MaxBytes is the longest encoding either format reads or writes.
const MaxBytes = 4

// ErrOverflow is returned when a value does not fit in four 7-bit groups.
var ErrOverflow = errors.New("value too large for variable-length quantity")

// Read decodes a standard MIDI variable-length quantity from r. Each byte
// contributes its low 7 bits, most significant group first. Reading stops at
// the first byte with the high bit clear, or after four bytes.
//
// The returned count is the number of bytes consumed. io.EOF is returned
// unchanged when it occurs on the first byte, later EOFs become
// io.ErrUnexpectedEOF.
func Read(r io.ByteReader) (uint32, int, error) {
	var value uint32
	for i := 0; i < MaxBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return value, i, err
		}
		value = value<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return value, MaxBytes, nil
}

// ReadDelta decodes an XMIDI delta time. Bytes with the high bit clear are
// summed, not shifted, so a run of 0x7f bytes accumulates time. The first
// byte with the high bit set is a status byte and is pushed back onto r, so
// the caller reads it next. At most four bytes are consumed.
func ReadDelta(r io.ByteScanner) (uint32, int, error) {
	var value uint32
	for i := 0; i < MaxBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return value, i, err
		}
		if b&0x80 != 0 {
			if err := r.UnreadByte(); err != nil {
				return value, i, err
			}
			return value, i, nil
		}
		value += uint32(b)
	}
	return value, MaxBytes, nil
}

// Len returns the number of bytes Write produces for v.
func Len(v uint32) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// Write encodes v as a standard MIDI variable-length quantity, most
// significant group first. When w is nil nothing is written and only the
// byte count is returned, which lets callers size a buffer before filling it.
func Write(w io.ByteWriter, v uint32) (int, error) {
	if v > MaxValue {
		return 0, ErrOverflow
	}
	n := Len(v)
	if w == nil {
		return n, nil
	}
	for i := n - 1; i >= 0; i-- {
		b := byte(v>>(7*uint(i))) & 0x7f
		if i != 0 {
			b |= 0x80
		}
		if err := w.WriteByte(b); err != nil {
			return n - 1 - i, err
		}
	}
	return n, nil
}
