package xmidi

import (
	"encoding/binary"
)

// Helpers assembling XMIDI files byte by byte.

func chunk(tag string, body []byte) []byte {
	out := append([]byte(tag), binary.BigEndian.AppendUint32(nil, uint32(len(body)))...)
	out = append(out, body...)
	if len(body)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func form(typ string, chunks ...[]byte) []byte {
	body := []byte(typ)
	for _, c := range chunks {
		body = append(body, c...)
	}
	return chunk(tagForm, body)
}

func cat(typ string, chunks ...[]byte) []byte {
	body := []byte(typ)
	for _, c := range chunks {
		body = append(body, c...)
	}
	return chunk(tagCAT, body)
}

func info(count uint16) []byte {
	return chunk(tagINFO, binary.LittleEndian.AppendUint16(nil, count))
}

// xdir builds a conformant multi-track file declaring count tracks, each
// event stream wrapped in its own FORM XMID.
func xdir(count uint16, tracks ...[]byte) []byte {
	var forms [][]byte
	for _, tr := range tracks {
		forms = append(forms, form(tagXMID, chunk(tagEVNT, tr)))
	}
	out := form(tagXDIR, info(count))
	return append(out, cat(tagXMID, forms...)...)
}

// Track body pieces.
var (
	tempo500k  = []byte{0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}
	endOfTrack = []byte{0xFF, 0x2F, 0x00}
)

func track(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
