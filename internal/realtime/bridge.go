// Package realtime keeps a WebSocket connection to the backend open and
// republishes the pushed messages to in-process subscribers by event name.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
	"github.com/ensigniasec/cleaner-client/internal/validate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	defaultBufferSize = 32
)

// ErrNotConnected is returned by Send while no connection is open.
var ErrNotConnected = errors.New("realtime: not connected")

// DefaultBackoff is the reconnect schedule. The last step repeats.
//
//nolint:gochecknoglobals // read-only schedule, copied by NewBridge.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	3 * time.Second,
	5 * time.Second,
	11 * time.Second,
	23 * time.Second,
}

// Event is one pushed message.
type Event struct {
	Type     apigen.EventType
	Data     json.RawMessage
	Received time.Time
}

// Bridge owns the WebSocket connection.
type Bridge struct {
	url        string
	dialer     *websocket.Dialer
	header     http.Header
	clientID   string
	backoff    []time.Duration
	bufferSize int

	subMu sync.RWMutex
	subs  []*Subscription

	connMu sync.Mutex
	conn   *websocket.Conn

	stateMu   sync.Mutex
	connected bool
	onState   []func(connected bool)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(b *Bridge) {
		if d != nil {
			b.dialer = d
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" on the handshake.
func WithToken(token string) Option {
	return func(b *Bridge) {
		if token != "" {
			b.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithBackoff replaces the reconnect schedule.
func WithBackoff(steps ...time.Duration) Option {
	return func(b *Bridge) {
		if len(steps) > 0 {
			b.backoff = append([]time.Duration(nil), steps...)
		}
	}
}

// WithBufferSize sets the per-subscription channel capacity.
func WithBufferSize(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithStateHook registers fn to run whenever the connection opens or drops.
func WithStateHook(fn func(connected bool)) Option {
	return func(b *Bridge) {
		if fn != nil {
			b.onState = append(b.onState, fn)
		}
	}
}

// NewBridge prepares a bridge for rawURL (ws:// or wss://). It does not dial.
func NewBridge(rawURL string, opts ...Option) (*Bridge, error) {
	if err := validate.Var(rawURL, "ws_url"); err != nil {
		return nil, fmt.Errorf("realtime: invalid url %q: %w", rawURL, err)
	}
	b := &Bridge{
		url:        rawURL,
		dialer:     websocket.DefaultDialer,
		header:     http.Header{},
		clientID:   uuid.NewString(),
		backoff:    append([]time.Duration(nil), DefaultBackoff...),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.header.Set("X-Client-Id", b.clientID)
	return b, nil
}

// ClientID identifies this bridge on the handshake.
func (b *Bridge) ClientID() string { return b.clientID }

// Connected reports whether a connection is currently open.
func (b *Bridge) Connected() bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.connected
}

// Run connects and republishes messages until ctx is done, reconnecting
// after every drop. All subscriptions are closed when Run returns.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.closeAll()

	attempt := 0
	for {
		established, err := b.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if established {
			attempt = 0
		}
		wait := b.backoffFor(attempt)
		attempt++
		logrus.WithError(err).WithField("retry_in", wait).Warn("realtime: connection lost")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (b *Bridge) backoffFor(attempt int) time.Duration {
	if attempt >= len(b.backoff) {
		return b.backoff[len(b.backoff)-1]
	}
	return b.backoff[attempt]
}

// session dials once and reads until the connection fails or ctx ends.
func (b *Bridge) session(ctx context.Context) (bool, error) {
	conn, resp, err := b.dialer.DialContext(ctx, b.url, b.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", b.url, err)
	}
	logrus.Debugf("realtime: connected to %s", b.url)

	b.connMu.Lock()
	b.conn = conn
	b.connMu.Unlock()
	b.setConnected(true)

	done := make(chan struct{})
	defer func() {
		close(done)
		b.connMu.Lock()
		b.conn = nil
		b.connMu.Unlock()
		conn.Close()
		b.setConnected(false)
	}()

	go b.keepAlive(ctx, conn, done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env apigen.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				logrus.WithError(err).Warn("realtime: dropping malformed message")
				continue
			}
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := validate.Struct(env); err != nil {
			logrus.WithError(err).Warn("realtime: dropping message without type")
			continue
		}
		b.publish(Event{Type: env.Type, Data: env.Data, Received: time.Now()})
	}
}

// keepAlive pings the server and closes conn when ctx ends.
func (b *Bridge) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			b.connMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			b.connMu.Unlock()
			conn.Close()
			return
		case <-ticker.C:
			b.connMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			b.connMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (b *Bridge) setConnected(v bool) {
	b.stateMu.Lock()
	b.connected = v
	hooks := slices.Clone(b.onState)
	b.stateMu.Unlock()
	for _, fn := range hooks {
		fn(v)
	}
}

// Send writes {type, data} on the open connection.
func (b *Bridge) Send(ctx context.Context, typ apigen.EventType, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("realtime: encode %s: %w", typ, err)
	}
	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.conn == nil {
		return ErrNotConnected
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = b.conn.SetWriteDeadline(deadline)
	return b.conn.WriteJSON(apigen.Envelope{Type: typ, Data: raw})
}

// DialURL derives the push channel URL from an HTTP API base URL:
// http://host:8000/api becomes ws://host:8000/ws.
func DialURL(apiBase string) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("realtime: unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}
