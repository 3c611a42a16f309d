package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

var upgrader = websocket.Upgrader{}

// wsServer upgrades every request and hands the connection to fn.
func wsServer(t *testing.T, fn func(n int, conn *websocket.Conn)) (string, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		fn(int(conns.Add(1)), conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", &conns
}

func push(t *testing.T, conn *websocket.Conn, typ apigen.EventType, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(apigen.Envelope{Type: typ, Data: raw}))
}

// hold blocks until the peer goes away.
func hold(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestNewBridgeRejectsHTTPURL(t *testing.T) {
	_, err := NewBridge("http://localhost:8000/ws")
	require.Error(t, err)
}

func TestRunDeliversByName(t *testing.T) {
	url, _ := wsServer(t, func(_ int, conn *websocket.Conn) {
		push(t, conn, apigen.EventSystemUpdate, apigen.SystemUpdate{CPU: 12.5, Memory: 40, DiskIO: 1.5})
		push(t, conn, apigen.EventScanProgress, apigen.ScanProgress{ScanID: 7, Status: apigen.ScanStateRunning, Progress: 0.4})
		push(t, conn, "something_new", map[string]int{"x": 1})
		hold(conn)
	})

	b, err := NewBridge(url)
	require.NoError(t, err)
	progress := b.Subscribe(apigen.EventScanProgress)
	all := b.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	ev := recv(t, progress)
	assert.Equal(t, apigen.EventScanProgress, ev.Type)
	p, err := DecodeScanProgress(ev)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ScanID)
	assert.InDelta(t, 0.4, p.Progress, 1e-9)

	assert.Equal(t, apigen.EventSystemUpdate, recv(t, all).Type)
	assert.Equal(t, apigen.EventScanProgress, recv(t, all).Type)
	assert.Equal(t, apigen.EventType("something_new"), recv(t, all).Type)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	_, ok := <-progress.C()
	assert.False(t, ok, "subscriptions close when Run returns")
}

func TestMalformedMessagesAreSkipped(t *testing.T) {
	url, _ := wsServer(t, func(_ int, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"data":{}}`))
		push(t, conn, apigen.EventSystemAlert, apigen.SystemAlert{Level: "warning", Message: "disk"})
		hold(conn)
	})

	b, err := NewBridge(url)
	require.NoError(t, err)
	sub := b.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	ev := recv(t, sub)
	require.Equal(t, apigen.EventSystemAlert, ev.Type)
	alert, err := DecodeSystemAlert(ev)
	require.NoError(t, err)
	assert.Equal(t, "disk", alert.Message)
}

func TestReconnectsAfterDrop(t *testing.T) {
	url, conns := wsServer(t, func(n int, conn *websocket.Conn) {
		push(t, conn, apigen.EventScanProgress, apigen.ScanProgress{ScanID: int64(n), Status: apigen.ScanStateRunning})
		if n == 1 {
			return // drop the first connection
		}
		hold(conn)
	})

	b, err := NewBridge(url, WithBackoff(10*time.Millisecond))
	require.NoError(t, err)
	sub := b.Subscribe(apigen.EventScanProgress)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	first, err := DecodeScanProgress(recv(t, sub))
	require.NoError(t, err)
	second, err := DecodeScanProgress(recv(t, sub))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ScanID)
	assert.Equal(t, int64(2), second.ScanID)
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}

func TestSend(t *testing.T) {
	got := make(chan apigen.Envelope, 1)
	url, _ := wsServer(t, func(_ int, conn *websocket.Conn) {
		var env apigen.Envelope
		if err := conn.ReadJSON(&env); err == nil {
			got <- env
		}
		hold(conn)
	})

	connected := make(chan struct{}, 1)
	b, err := NewBridge(url, WithStateHook(func(up bool) {
		if up {
			connected <- struct{}{}
		}
	}))
	require.NoError(t, err)
	require.ErrorIs(t, b.Send(context.Background(), "ping", nil), ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("never connected")
	}
	require.True(t, b.Connected())
	require.NoError(t, b.Send(ctx, "ping", map[string]string{"client": b.ClientID()}))

	select {
	case env := <-got:
		assert.Equal(t, apigen.EventType("ping"), env.Type)
		assert.Contains(t, string(env.Data), b.ClientID())
	case <-time.After(2 * time.Second):
		t.Fatal("server got nothing")
	}
}

func TestStateHooksSeeEveryTransition(t *testing.T) {
	url, _ := wsServer(t, func(n int, conn *websocket.Conn) {
		if n == 1 {
			return
		}
		hold(conn)
	})

	var mu sync.Mutex
	var first, second []bool
	reconnected := make(chan struct{})
	b, err := NewBridge(url,
		WithBackoff(10*time.Millisecond),
		WithStateHook(func(up bool) {
			mu.Lock()
			defer mu.Unlock()
			first = append(first, up)
		}),
		WithStateHook(func(up bool) {
			mu.Lock()
			second = append(second, up)
			n := len(second)
			mu.Unlock()
			if n == 3 {
				close(reconnected)
			}
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("never reconnected")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false, true}, first)
	assert.Equal(t, first, second)
}

func TestUnsubscribeClosesOnce(t *testing.T) {
	b, err := NewBridge("ws://localhost:8000/ws")
	require.NoError(t, err)
	sub := b.Subscribe(apigen.EventScanProgress)
	other := b.Subscribe(apigen.EventScanProgress)

	sub.Close()
	sub.Close()
	b.Unsubscribe(sub)
	_, ok := <-sub.C()
	assert.False(t, ok)

	b.publish(Event{Type: apigen.EventScanProgress})
	assert.Len(t, other.C(), 1)
}

func TestSlowSubscriberDrops(t *testing.T) {
	b, err := NewBridge("ws://localhost:8000/ws", WithBufferSize(1))
	require.NoError(t, err)
	sub := b.Subscribe()
	b.publish(Event{Type: apigen.EventSystemUpdate})
	b.publish(Event{Type: apigen.EventSystemUpdate})
	assert.Len(t, sub.C(), 1)
}

func TestBackoffSchedule(t *testing.T) {
	b, err := NewBridge("ws://localhost:8000/ws")
	require.NoError(t, err)
	assert.Equal(t, time.Second, b.backoffFor(0))
	assert.Equal(t, 5*time.Second, b.backoffFor(3))
	assert.Equal(t, 23*time.Second, b.backoffFor(5))
	assert.Equal(t, 23*time.Second, b.backoffFor(50))
}

func TestDialURL(t *testing.T) {
	u, err := DialURL("http://localhost:8000/api")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws", u)

	u, err = DialURL("https://cleaner.example.com/api?x=1")
	require.NoError(t, err)
	assert.Equal(t, "wss://cleaner.example.com/ws", u)

	_, err = DialURL("ftp://example.com")
	require.Error(t, err)
}

func TestDecodeRejectsInvalidPayload(t *testing.T) {
	_, err := DecodeScanProgress(Event{Type: apigen.EventScanProgress, Data: json.RawMessage(`{"scan_id":0,"status":"running"}`)})
	require.Error(t, err)
	_, err = DecodeScanComplete(Event{Type: apigen.EventScanComplete, Data: json.RawMessage(`{"scan_id":`)})
	require.Error(t, err)
}
