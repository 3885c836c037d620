package gateway

import (
	"sync"

	"github.com/cwbudde/algo-onair/config"
	"github.com/cwbudde/algo-onair/crossfade"
)

// Notification kinds as they appear on the wire.
const (
	KindCrossfadeProgress      = "crossfade_progress"
	KindManualCrossfadeChanged = "manual_crossfade_changed"
)

// Notification is an event pushed to the control plane. Outgoing, Incoming
// and Progress are set for crossfade_progress; Position is always set.
type Notification struct {
	Kind     string           `json:"event"`
	Outgoing config.ChannelID `json:"outgoing_channel,omitempty"`
	Incoming config.ChannelID `json:"incoming_channel,omitempty"`
	Progress float64          `json:"progress"`
	Position float64          `json:"position"`
	State    string           `json:"state"`
}

// NotificationFromEvent converts a controller event.
func NotificationFromEvent(ev crossfade.Event) Notification {
	n := Notification{
		Position: ev.Position,
		Progress: ev.Progress,
		State:    ev.State.String(),
	}
	switch ev.Kind {
	case crossfade.EventManualChanged:
		n.Kind = KindManualCrossfadeChanged
	default:
		n.Kind = KindCrossfadeProgress
		n.Outgoing = deckChannel(ev.Outgoing)
		n.Incoming = deckChannel(ev.Incoming)
	}
	return n
}

func deckChannel(d crossfade.Deck) config.ChannelID {
	if d == crossfade.DeckB {
		return config.DeckB
	}
	return config.DeckA
}

// fanout delivers notifications to subscribers without blocking. A full
// subscriber loses the notification.
type fanout struct {
	mu      sync.Mutex
	subs    map[int]chan Notification
	nextID  int
	dropped uint64
}

// Subscribe returns a channel receiving every notification from now on.
// buffer below 1 is raised to 1. cancel closes the channel; it is safe to
// call more than once.
func (f *fanout) Subscribe(buffer int) (<-chan Notification, func()) {
	ch := make(chan Notification, max(buffer, 1))

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Dropped returns how many notifications subscribers lost.
func (f *fanout) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

func (f *fanout) broadcast(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- n:
		default:
			f.dropped++
		}
	}
}
