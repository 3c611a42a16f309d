package store

import "sync"

// Watcher receives state snapshots. Only the latest snapshot is buffered;
// a slow reader skips intermediate states.
type Watcher struct {
	ch    chan State
	once  sync.Once
	store *Store
}

// Subscribe returns a watcher primed with the current state.
func (s *Store) Subscribe() *Watcher {
	w := &Watcher{ch: make(chan State, 1), store: s}
	s.mu.Lock()
	defer s.mu.Unlock()
	w.offer(s.state.clone())
	s.watchers = append(s.watchers, w)
	return w
}

// C returns the snapshot channel. It is closed by Close or Store.Close.
func (w *Watcher) C() <-chan State { return w.ch }

// Close detaches the watcher.
func (w *Watcher) Close() {
	s := w.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range s.watchers {
		if x == w {
			s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
			break
		}
	}
	w.close()
}

func (w *Watcher) close() {
	w.once.Do(func() { close(w.ch) })
}

// offer replaces any unread snapshot with st. Callers hold the store lock.
func (w *Watcher) offer(st State) {
	select {
	case w.ch <- st:
		return
	default:
	}
	select {
	case <-w.ch:
	default:
	}
	select {
	case w.ch <- st:
	default:
	}
}
