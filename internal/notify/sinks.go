package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// LogSink writes toasts to logrus.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Notify(t Toast) {
	l := s.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	entry := l.WithField("title", t.Title)
	if t.Op != "" {
		entry = entry.WithField("op", t.Op)
	}
	if t.Detail != "" {
		entry = entry.WithField("detail", t.Detail)
	}
	switch t.Level {
	case LevelError:
		entry.Error(t.Message)
	case LevelWarning:
		entry.Warn(t.Message)
	default:
		entry.Info(t.Message)
	}
}

// ChanSink delivers toasts on a buffered channel and drops them when it is full.
type ChanSink struct {
	ch     chan Toast
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewChanSink returns a sink buffering up to size toasts.
func NewChanSink(size int) *ChanSink {
	if size <= 0 {
		size = 16
	}
	return &ChanSink{ch: make(chan Toast, size)}
}

// C returns the receive side.
func (s *ChanSink) C() <-chan Toast { return s.ch }

func (s *ChanSink) Notify(t Toast) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- t:
	default:
		logrus.Debugf("notify: dropping toast %q", t.Title)
	}
}

// Close closes the channel. Later toasts are discarded.
func (s *ChanSink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}
