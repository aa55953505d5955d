// Package inspect renders decoded XMIDI events as text for the -dump and
// -list modes of the command.
package inspect

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/zurustar/xmi2mid/pkg/xmidi"
)

var (
	// KindName names channel message kinds by status nibble.
	KindName = map[byte]string{
		xmidi.NoteOff:         "NoteOff",
		xmidi.NoteOn:          "NoteOn",
		xmidi.Aftertouch:      "Aftertouch",
		xmidi.Controller:      "Control",
		xmidi.ProgramChange:   "Program",
		xmidi.ChannelPressure: "Pressure",
		xmidi.PitchWheel:      "PitchBend",
	}
	// MetaName names meta event types.
	MetaName = map[byte]string{
		0x00: "Sequence",
		0x01: "Text",
		0x02: "Copyright",
		0x03: "Name",
		0x04: "Instrument",
		0x05: "Lyric",
		0x06: "Marker",
		0x07: "CuePoint",
		0x20: "ChannelPrefix",
		0x21: "PortNumber",
		0x2F: "EndOfTrack",
		0x51: "Tempo",
		0x54: "SMPTEOffset",
		0x58: "TimeSignature",
		0x59: "KeySignature",
		0x7F: "Sequencer",
	}
	// ControlName names controller numbers, including the XMIDI
	// specific ones from 110 to 119.
	ControlName = map[byte]string{
		0:   "Bank Select",
		1:   "Modulation Wheel",
		2:   "Breath Controller",
		4:   "Foot Controller",
		5:   "Portamento Time",
		6:   "Data Entry",
		7:   "Channel Volume",
		8:   "Balance",
		10:  "Pan",
		11:  "Expression Controller",
		32:  "Bank Select LSB",
		64:  "Sustain On/Off",
		65:  "Portamento On/Off",
		66:  "Sostenuto On/Off",
		67:  "Soft Pedal On/Off",
		91:  "Effects 1 Depth",
		93:  "Effects 3 Depth",
		100: "Registered Parameter Number 1",
		101: "Registered Parameter Number 2",
		110: "XMIDI Channel Lock",
		111: "XMIDI Channel Lock Protect",
		112: "XMIDI Voice Protect",
		113: "XMIDI Timbre Protect",
		114: "XMIDI Patch Bank Select",
		115: "XMIDI Indirect Controller Prefix",
		116: "XMIDI For Loop",
		117: "XMIDI Next/Break",
		118: "XMIDI Clear Beat/Bar Count",
		119: "XMIDI Callback Trigger",
		120: "All Sound Off",
		121: "Reset All Controllers",
		123: "All Notes Off",
	}
	// NoteName holds the pitch classes starting at C.
	NoteName = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
)

// Format returns a one line description of ev.
func Format(ev *xmidi.Event) string {
	s := fmt.Sprintf("%8d 0x%02X", ev.Time, ev.Status)
	if ev.Kind() != xmidi.System {
		s += fmt.Sprintf(" ch%02d %s", ev.Channel()+1, kindName(ev.Kind()))
	}

	switch ev.Kind() {
	case xmidi.NoteOn, xmidi.NoteOff:
		s += " " + Note(ev.Data[0])
		if ev.Data[1] > 0 {
			s += fmt.Sprintf(":%d", ev.Data[1])
		} else {
			s += " off"
		}
	case xmidi.Aftertouch:
		s += fmt.Sprintf(" %s %d", Note(ev.Data[0]), ev.Data[1])
	case xmidi.Controller:
		s += fmt.Sprintf(" %s %d", controlName(ev.Data[0]), ev.Data[1])
	case xmidi.ProgramChange, xmidi.ChannelPressure:
		s += fmt.Sprintf(" %d", ev.Data[0])
	case xmidi.PitchWheel:
		s += fmt.Sprintf(" %d", (int(ev.Data[1])<<7|int(ev.Data[0]))-0x2000)
	case xmidi.System:
		s += " " + formatSystem(ev)
	}
	return s
}

func formatSystem(ev *xmidi.Event) string {
	if !ev.IsMeta() {
		return fmt.Sprintf("SysEx % X", ev.Payload)
	}
	s := metaName(ev.Data[0])
	switch ev.Data[0] {
	case 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07:
		s += fmt.Sprintf(" <%s>", DecodeText(ev.Payload))
	case xmidi.MetaTempo:
		if len(ev.Payload) == 3 {
			us := int(ev.Payload[0])<<16 | int(ev.Payload[1])<<8 | int(ev.Payload[2])
			s += fmt.Sprintf(" %dus", us)
			if us > 0 {
				s += fmt.Sprintf(" (%.2f BPM)", 60000000/float64(us))
			}
		}
	case xmidi.MetaEndOfTrack:
	default:
		if len(ev.Payload) > 0 {
			s += fmt.Sprintf(" % X", ev.Payload)
		}
	}
	return s
}

// Note names a MIDI key with its octave, middle C being C4.
func Note(key byte) string {
	return fmt.Sprintf("%s%d", NoteName[key%12], int(key)/12-1)
}

func kindName(k byte) string {
	if v, ok := KindName[k]; ok {
		return v
	}
	return fmt.Sprintf("Kind0x%x", k)
}

func metaName(t byte) string {
	if v, ok := MetaName[t]; ok {
		return v
	}
	return fmt.Sprintf("Meta0x%02x", t)
}

func controlName(c byte) string {
	if v, ok := ControlName[c]; ok {
		return v
	}
	return fmt.Sprintf("Control%d", c)
}

// DecodeText turns a text meta payload into a printable string. Payloads
// that are not valid UTF-8 are taken as Shift_JIS, which is what Japanese
// releases of XMIDI games store.
func DecodeText(data []byte) string {
	data = bytes.TrimSpace(bytes.TrimRight(data, "\x00"))
	if utf8.Valid(data) {
		return string(data)
	}
	reader := transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder())
	out, err := io.ReadAll(reader)
	if err != nil {
		// 変換に失敗した場合はエスケープして返す
		return strings.Trim(fmt.Sprintf("%q", data), `"`)
	}
	return string(out)
}

// Dump writes one Format line per event.
func Dump(w io.Writer, events []xmidi.Event) error {
	for i := range events {
		if _, err := fmt.Fprintln(w, Format(&events[i])); err != nil {
			return err
		}
	}
	return nil
}
