// Package notify turns client errors and backend alerts into user-facing toasts.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/ensigniasec/cleaner-client/internal/api"
	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

// Level is the severity of a toast.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps the level names used by system alerts. Unknown names are info.
func ParseLevel(s string) Level {
	switch s {
	case "success":
		return LevelSuccess
	case "warning", "warn":
		return LevelWarning
	case "error", "critical":
		return LevelError
	default:
		return LevelInfo
	}
}

// Toast is one user-facing notification.
type Toast struct {
	Level   Level
	Title   string
	Message string
	// Op and Detail are only set for error toasts.
	Op     string
	Detail string
	Time   time.Time
}

// Sink receives toasts. Implementations must not block.
type Sink interface {
	Notify(Toast)
}

// Center maps errors to localized toasts and fans them out to sinks.
// It implements api.ErrorReporter.
type Center struct {
	catalog *Catalog

	mu    sync.RWMutex
	sinks []Sink

	now func() time.Time
}

var _ api.ErrorReporter = (*Center)(nil)

// NewCenter returns a Center speaking lang.
func NewCenter(lang string, sinks ...Sink) *Center {
	return &Center{catalog: NewCatalog(lang), sinks: sinks, now: time.Now}
}

// Catalog exposes the message catalog.
func (c *Center) Catalog() *Catalog { return c.catalog }

// AddSink registers another sink.
func (c *Center) AddSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
}

// KeyFor maps an error kind to its message key. Only the HTTP status
// categories get their own text; everything else shares the generic one.
func KeyFor(kind api.Kind) string {
	switch kind {
	case api.KindBadRequest:
		return KeyBadRequest
	case api.KindUnauthorized:
		return KeyUnauthorized
	case api.KindForbidden:
		return KeyForbidden
	case api.KindNotFound:
		return KeyNotFound
	case api.KindServer:
		return KeyServerError
	case api.KindNetwork:
		return KeyNetwork
	case api.KindRequest:
		return KeyRequest
	case api.KindOffline:
		return KeyOffline
	default:
		return KeyUnexpected
	}
}

// ReportError raises an error toast for err. Cancellations are ignored.
func (c *Center) ReportError(_ context.Context, op string, err error) {
	kind := api.Classify(err)
	if kind == api.KindNone || kind == api.KindCanceled {
		return
	}
	c.Notify(Toast{
		Level:   LevelError,
		Title:   c.catalog.Text(KeyErrorTitle),
		Message: c.catalog.Text(KeyFor(kind)),
		Op:      op,
		Detail:  err.Error(),
	})
}

// Alert raises a toast for a pushed system alert.
func (c *Center) Alert(a apigen.SystemAlert) {
	c.Notify(Toast{Level: ParseLevel(a.Level), Title: a.Title, Message: a.Message})
}

// Success raises a success toast with a catalog title and free-form message.
func (c *Center) Success(key, message string) {
	c.Notify(Toast{Level: LevelSuccess, Title: c.catalog.Text(key), Message: message})
}

// Failure raises an error toast with a catalog title and free-form message.
func (c *Center) Failure(key, message string) {
	c.Notify(Toast{Level: LevelError, Title: c.catalog.Text(key), Message: message})
}

// Notify stamps t and hands it to every sink.
func (c *Center) Notify(t Toast) {
	if t.Time.IsZero() {
		t.Time = c.now()
	}
	c.mu.RLock()
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.RUnlock()
	for _, s := range sinks {
		s.Notify(t)
	}
}
