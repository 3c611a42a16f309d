package realtime

import (
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

// Subscription receives events of the names it was created with,
// or every event when created without names.
type Subscription struct {
	ch        chan Event
	names     []apigen.EventType
	closeOnce sync.Once
	bridge    *Bridge
}

// C returns the event channel. It is closed by Close or when Run returns.
func (s *Subscription) C() <-chan Event { return s.ch }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() { s.bridge.Unsubscribe(s) }

func (s *Subscription) wants(t apigen.EventType) bool {
	return len(s.names) == 0 || slices.Contains(s.names, t)
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// send never blocks; a full buffer drops the event.
func (s *Subscription) send(ev Event) bool {
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// Subscribe registers interest in the given event names.
func (b *Bridge) Subscribe(names ...apigen.EventType) *Subscription {
	sub := &Subscription{
		ch:     make(chan Event, b.bufferSize),
		names:  slices.Clone(names),
		bridge: b,
	}
	b.subMu.Lock()
	b.subs = append(b.subs, sub)
	b.subMu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (b *Bridge) Unsubscribe(sub *Subscription) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = slices.Delete(b.subs, i, i+1)
			break
		}
	}
	sub.close()
}

// publish fans ev out to matching subscribers. The read lock is held while
// sending so a concurrent Unsubscribe cannot close a channel mid-send.
func (b *Bridge) publish(ev Event) {
	b.subMu.RLock()
	defer b.subMu.RUnlock()
	for _, sub := range b.subs {
		if sub.wants(ev.Type) && !sub.send(ev) {
			logEventDropped(ev.Type)
		}
	}
}

func (b *Bridge) closeAll() {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, sub := range b.subs {
		sub.close()
	}
	b.subs = nil
}

func logEventDropped(t apigen.EventType) {
	logrus.Debugf("realtime: subscriber full, dropping %s", t)
}
