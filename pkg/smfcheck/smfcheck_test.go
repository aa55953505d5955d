package smfcheck

import (
	"errors"
	"testing"
)

func smf0(division uint16, body ...byte) []byte {
	out := []byte{'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 1, byte(division >> 8), byte(division)}
	n := len(body)
	out = append(out, 'M', 'T', 'r', 'k', byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(out, body...)
}

var oneNote = []byte{
	0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20,
	0x00, 0xC0, 0x05,
	0x00, 0x90, 0x3C, 0x40,
	0x3C, 0x3C, 0x00, // running status release after 60 ticks
	0x00, 0xFF, 0x2F, 0x00,
}

func TestCheck(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		r, err := Check(smf0(60, oneNote...))
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if r.Format != 0 || r.Tracks != 1 || r.Resolution != 60 {
			t.Errorf("report = %+v", r)
		}
		if r.NoteStarts != 1 || r.NoteEnds != 1 {
			t.Errorf("notes = %d/%d, want 1/1", r.NoteStarts, r.NoteEnds)
		}
		if r.Tempo() != 500000 {
			t.Errorf("Tempo() = %d, want 500000", r.Tempo())
		}
		if r.Length <= 0 {
			t.Errorf("Length = %v, want positive", r.Length)
		}
	})

	t.Run("unpaired note", func(t *testing.T) {
		body := []byte{0x00, 0x90, 0x3C, 0x40, 0x10, 0xFF, 0x2F, 0x00}
		if _, err := Check(smf0(60, body...)); !errors.Is(err, ErrMismatch) {
			t.Errorf("expected ErrMismatch, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := Check([]byte("not a midi file")); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestTempoMap(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    []TempoEvent
		wantPPQ int
	}{
		{
			name:    "tempo at zero",
			data:    smf0(60, oneNote...),
			want:    []TempoEvent{{0, 500000}},
			wantPPQ: 60,
		},
		{
			name:    "no tempo gets the default",
			data:    smf0(96, 0x00, 0xC0, 0x01, 0x00, 0xFF, 0x2F, 0x00),
			want:    []TempoEvent{{0, 500000}},
			wantPPQ: 96,
		},
		{
			name: "late tempo is preceded by the default",
			data: smf0(96,
				0x00, 0xC0, 0x01,
				0x81, 0x00, 0xFF, 0x51, 0x03, 0x0F, 0x42, 0x40,
				0x00, 0xFF, 0x2F, 0x00),
			want:    []TempoEvent{{0, 500000}, {128, 1000000}},
			wantPPQ: 96,
		},
		{
			name:    "SMPTE division",
			data:    smf0(0xE728, 0x00, 0xFF, 0x2F, 0x00),
			want:    []TempoEvent{{0, 500000}},
			wantPPQ: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ppq, err := TempoMap(tt.data)
			if err != nil {
				t.Fatalf("TempoMap failed: %v", err)
			}
			if ppq != tt.wantPPQ {
				t.Errorf("ppq = %d, want %d", ppq, tt.wantPPQ)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTempoMapErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short", []byte("MThd")},
		{"wrong magic", []byte("RIFF\x00\x00\x00\x06\x00\x00\x00\x01\x00\x60")},
		{"track past end", append(smf0(60, 0x00, 0xFF, 0x2F, 0x00)[:18], 0, 0, 0, 0x40)},
		{"meta past track", smf0(60, 0x00, 0xFF, 0x01, 0x10, 'a')},
		{"data without status", smf0(60, 0x00, 0x3C, 0x40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := TempoMap(tt.data); !errors.Is(err, ErrMismatch) {
				t.Errorf("expected ErrMismatch, got %v", err)
			}
		})
	}
}
