package xmidi

import "slices"

const (
	// repairWindow is how far, in output ticks, a controller may sit from
	// the program change and still count as that patch's setup.
	repairWindow = 5

	defaultVolume = 64
	defaultPan    = 64
	defaultBank   = 0
)

// channelSetup collects the first program change and setup controllers seen
// on one channel.
type channelSetup struct {
	patch, volume, pan, bank *Event
}

func (s *channelSetup) near(ev *Event) bool {
	if ev == nil {
		return false
	}
	lo := int64(s.patch.Time) - repairWindow
	hi := int64(s.patch.Time) + repairWindow
	t := int64(ev.Time)
	return t >= lo && t <= hi
}

func (s *channelSetup) value(ev *Event, def byte) byte {
	if s.near(ev) {
		return ev.Data[1]
	}
	return def
}

// repair returns a copy of l in which every channel that changes program
// opens the track with a complete setup: bank select, volume, pan and the
// patch itself, all at time zero. Controllers found within repairWindow ticks
// of the channel's first program change are reused, the rest fall back to
// defaults. l itself is left as it was. The second result is the number of
// events added.
func repair(l *eventList) (*eventList, int) {
	var setups [16]channelSetup

	l.each(func(ev *Event) bool {
		s := &setups[ev.Channel()]
		switch ev.Kind() {
		case ProgramChange:
			if s.patch == nil {
				s.patch = ev
			}
		case Controller:
			switch ev.Data[0] {
			case ControllerVolume:
				if s.volume == nil {
					s.volume = ev
				}
			case ControllerPan:
				if s.pan == nil {
					s.pan = ev
				}
			case ControllerBank:
				if s.bank == nil {
					s.bank = ev
				}
			}
		}
		return true
	})

	type setup struct {
		channel byte
		patch   byte
		volume  byte
		pan     byte
		bank    byte
	}
	var pending []setup
	for ch := range setups {
		s := &setups[ch]
		if s.patch == nil {
			continue
		}
		pending = append(pending, setup{
			channel: byte(ch),
			patch:   s.patch.Data[0],
			volume:  s.value(s.volume, defaultVolume),
			pan:     s.value(s.pan, defaultPan),
			bank:    s.value(s.bank, defaultBank),
		})
	}

	out := &eventList{
		events: slices.Clone(l.events),
		head:   l.head,
		cursor: nilEvent,
	}
	added := 0
	for _, p := range pending {
		// Prepended in reverse so the track reads bank, volume, pan, patch.
		out.prepend(Event{Status: ProgramChange<<4 | p.channel, Data: [2]byte{p.patch}})
		out.prepend(Event{Status: Controller<<4 | p.channel, Data: [2]byte{ControllerPan, p.pan}})
		out.prepend(Event{Status: Controller<<4 | p.channel, Data: [2]byte{ControllerVolume, p.volume}})
		out.prepend(Event{Status: Controller<<4 | p.channel, Data: [2]byte{ControllerBank, p.bank}})
		added += 4
	}
	return out, added
}
