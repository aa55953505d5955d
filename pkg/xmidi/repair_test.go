package xmidi

import (
	"testing"
)

func cc(time uint32, ch, num, val byte) Event {
	return Event{Time: time, Status: Controller<<4 | ch, Data: [2]byte{num, val}}
}

func patch(time uint32, ch, prog byte) Event {
	return Event{Time: time, Status: ProgramChange<<4 | ch, Data: [2]byte{prog}}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
		want   [][2]byte // bank, volume, pan, patch data for the channel
	}{
		{
			name:   "defaults without controllers",
			events: []Event{patch(30, 2, 17)},
			want:   [][2]byte{{ControllerBank, 0}, {ControllerVolume, 64}, {ControllerPan, 64}, {17, 0}},
		},
		{
			name: "controllers inside the window are reused",
			events: []Event{
				cc(5, 2, ControllerBank, 1),
				patch(10, 2, 17),
				cc(15, 2, ControllerVolume, 100),
				cc(15, 2, ControllerPan, 20),
			},
			want: [][2]byte{{ControllerBank, 1}, {ControllerVolume, 100}, {ControllerPan, 20}, {17, 0}},
		},
		{
			name: "controllers outside the window fall back",
			events: []Event{
				cc(4, 2, ControllerBank, 1),
				patch(10, 2, 17),
				cc(16, 2, ControllerVolume, 100),
			},
			want: [][2]byte{{ControllerBank, 0}, {ControllerVolume, 64}, {ControllerPan, 64}, {17, 0}},
		},
		{
			name: "only the first of each is considered",
			events: []Event{
				patch(0, 2, 17),
				cc(90, 2, ControllerVolume, 1),
				patch(90, 2, 18),
				cc(91, 2, ControllerVolume, 2),
			},
			want: [][2]byte{{ControllerBank, 0}, {ControllerVolume, 64}, {ControllerPan, 64}, {17, 0}},
		},
		{
			name: "other channels do not count",
			events: []Event{
				cc(0, 3, ControllerVolume, 99),
				patch(0, 2, 17),
			},
			want: [][2]byte{{ControllerBank, 0}, {ControllerVolume, 64}, {ControllerPan, 64}, {17, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newEventList()
			for _, ev := range tt.events {
				l.insert(ev)
			}
			fixed, added := repair(l)
			if added != 4 {
				t.Fatalf("repair added %d events, want 4", added)
			}
			if l.len() != len(tt.events) {
				t.Errorf("input list changed to %d events", l.len())
			}
			evs := fixed.snapshot()
			if len(evs) != len(tt.events)+4 {
				t.Fatalf("got %d events, want %d", len(evs), len(tt.events)+4)
			}
			for i, want := range tt.want {
				ev := evs[i]
				if ev.Channel() != 2 || ev.Time != 0 || ev.Data != want {
					t.Errorf("event %d = ch %d t %d %v, want ch 2 t 0 %v", i, ev.Channel(), ev.Time, ev.Data, want)
				}
			}
			if evs[3].Kind() != ProgramChange {
				t.Errorf("fourth event kind = %x, want program change", evs[3].Kind())
			}
		})
	}
}

func TestRepairLeavesUnpatchedChannelsAlone(t *testing.T) {
	l := newEventList()
	l.insert(cc(0, 0, ControllerVolume, 90))
	l.insert(Event{Time: 3, Status: 0x90, Data: [2]byte{60, 100}})

	fixed, added := repair(l)
	if added != 0 {
		t.Errorf("repair added %d events, want 0", added)
	}
	if fixed.len() != 2 {
		t.Errorf("len() = %d, want 2", fixed.len())
	}
}

func TestRepairSeveralChannels(t *testing.T) {
	l := newEventList()
	l.insert(patch(0, 0, 1))
	l.insert(patch(0, 9, 2))

	fixed, added := repair(l)
	if added != 8 {
		t.Fatalf("repair added %d events, want 8", added)
	}
	channels := map[byte]int{}
	for _, ev := range fixed.snapshot()[:8] {
		channels[ev.Channel()]++
	}
	if channels[0] != 4 || channels[9] != 4 {
		t.Errorf("setup events per channel = %v", channels)
	}
}
