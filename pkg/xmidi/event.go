package xmidi

// MIDI status nibbles and the meta types the converter looks at.
const (
	NoteOff         byte = 0x8
	NoteOn          byte = 0x9
	Aftertouch      byte = 0xA
	Controller      byte = 0xB
	ProgramChange   byte = 0xC
	ChannelPressure byte = 0xD
	PitchWheel      byte = 0xE
	System          byte = 0xF

	StatusMeta byte = 0xFF

	MetaEndOfTrack byte = 0x2F
	MetaTempo      byte = 0x51
)

// Controller numbers touched by track repair.
const (
	ControllerBank   byte = 0
	ControllerVolume byte = 7
	ControllerPan    byte = 10
)

// Event is one timestamped MIDI event. Time is in output ticks, three per
// XMIDI tick. For meta events Data[0] holds the meta type; meta and system
// exclusive events carry their body in Payload.
type Event struct {
	Time    uint32
	Status  byte
	Data    [2]byte
	Payload []byte

	next int32
}

// Kind returns the status high nibble.
func (e *Event) Kind() byte { return e.Status >> 4 }

// Channel returns the status low nibble.
func (e *Event) Channel() byte { return e.Status & 0x0F }

// IsMeta reports whether e is a meta event.
func (e *Event) IsMeta() bool { return e.Status == StatusMeta }

// IsEndOfTrack reports whether e is the end-of-track meta event.
func (e *Event) IsEndOfTrack() bool { return e.IsMeta() && e.Data[0] == MetaEndOfTrack }

// dataLen is the number of data bytes following a channel status byte.
func dataLen(status byte) int {
	switch status >> 4 {
	case NoteOff, NoteOn, Aftertouch, Controller, PitchWheel:
		return 2
	case ProgramChange, ChannelPressure:
		return 1
	}
	return 0
}

const nilEvent int32 = -1

// eventList is a singly linked, time ordered list whose nodes live in one
// arena and refer to each other by index. cursor is the insertion point left
// by the previous insert; it belongs to the decode pass filling the list.
type eventList struct {
	events []Event
	head   int32
	cursor int32
}

func newEventList() *eventList {
	return &eventList{head: nilEvent, cursor: nilEvent}
}

// insert places ev after the last node whose time does not exceed ev.Time,
// searching forward from the cursor. The cursor only rewinds to the head when
// ev is earlier than the cursor node, so events arriving in increasing order
// cost nothing to place. Equal times go after the existing ones. When ev is
// earlier than the head it still lands right after the head.
func (l *eventList) insert(ev Event) int32 {
	idx := l.alloc(ev)
	if l.head == nilEvent {
		l.head = idx
		l.cursor = idx
		return idx
	}
	if l.cursor == nilEvent || l.events[l.cursor].Time > ev.Time {
		l.cursor = l.head
	}
	c := l.cursor
	for next := l.events[c].next; next != nilEvent && l.events[next].Time <= ev.Time; next = l.events[c].next {
		c = next
	}
	l.events[idx].next = l.events[c].next
	l.events[c].next = idx
	l.cursor = idx
	return idx
}

// prepend places ev at the head regardless of its time.
func (l *eventList) prepend(ev Event) int32 {
	idx := l.alloc(ev)
	l.events[idx].next = l.head
	l.head = idx
	l.cursor = idx
	return idx
}

func (l *eventList) alloc(ev Event) int32 {
	ev.next = nilEvent
	l.events = append(l.events, ev)
	return int32(len(l.events) - 1)
}

// each calls fn for every node from head to tail until fn returns false.
func (l *eventList) each(fn func(ev *Event) bool) {
	for i := l.head; i != nilEvent; i = l.events[i].next {
		if !fn(&l.events[i]) {
			return
		}
	}
}

// len returns the number of linked nodes.
func (l *eventList) len() int {
	n := 0
	l.each(func(*Event) bool {
		n++
		return true
	})
	return n
}

// snapshot copies the list in order. Payloads are shared with the list and
// must not be modified.
func (l *eventList) snapshot() []Event {
	out := make([]Event, 0, len(l.events))
	l.each(func(ev *Event) bool {
		e := *ev
		e.next = nilEvent
		out = append(out, e)
		return true
	})
	return out
}
