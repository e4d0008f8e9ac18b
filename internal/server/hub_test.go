package server

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

// Hub tests use clients without a socket; the hub never writes to conn.

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func startHub(t *testing.T, cfg HubConfig) *Hub {
	t.Helper()
	hub := NewHub(discard(), cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Errorf("hub did not stop")
		}
	})
	return hub
}

func testClient(hub *Hub, name string, buf int) *Client {
	return &Client{id: name, hub: hub, send: make(chan []byte, buf), remoteAddr: name, logger: hub.logger}
}

func registerClient(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, c.id+" not registered in time")
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	hub := startHub(t, HubConfig{SendBuf: 4, BroadcastBuf: 8})
	c1, c2 := testClient(hub, "c1", 4), testClient(hub, "c2", 4)
	registerClient(t, hub, c1)
	registerClient(t, hub, c2)

	msg := []byte(`{"type":"expression","data":{"expression":"heart"}}`)
	hub.broadcast <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != string(msg) {
				t.Fatalf("%s got %q, want %q", c.id, got, msg)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for %s", c.id)
		}
	}
}

func TestHubEvictsSlowClient(t *testing.T) {
	hub := startHub(t, HubConfig{SendBuf: 1, BroadcastBuf: 8})
	slow, fast := testClient(hub, "slow", 1), testClient(hub, "fast", 8)
	registerClient(t, hub, slow)
	registerClient(t, hub, fast)

	slow.send <- []byte(`"stuck"`)
	msg := []byte(`{"type":"stop","data":{"animation":"zzz"}}`)
	hub.broadcast <- msg

	select {
	case got := <-fast.send:
		if string(got) != string(msg) {
			t.Fatalf("fast client got %q", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for fast client")
	}

	<-slow.send // the stuck frame
	waitUntil(t, 750*time.Millisecond, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "slow client send queue not closed")
	if n := hub.Len(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
}

func TestHubUnregisterTwice(t *testing.T) {
	hub := startHub(t, HubConfig{})
	c := testClient(hub, "c", 1)
	registerClient(t, hub, c)

	hub.unregister <- c
	hub.unregister <- c
	waitUntil(t, 500*time.Millisecond, func() bool { return hub.Len() == 0 }, "client not removed")
}

func TestHubStopClosesClientsAndRejectsNew(t *testing.T) {
	hub := NewHub(discard(), HubConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		hub.Run(ctx)
	}()

	c := testClient(hub, "c", 1)
	registerClient(t, hub, c)
	cancel()
	<-stopped

	if _, ok := <-c.send; ok {
		t.Fatal("send queue should be closed on shutdown")
	}
	if hub.add(testClient(hub, "late", 1)) {
		t.Fatal("add after shutdown should fail")
	}
}

func TestBroadcastBytesDropsWhenFull(t *testing.T) {
	hub := NewHub(discard(), HubConfig{BroadcastBuf: 1})
	hub.BroadcastBytes([]byte("a"))
	hub.BroadcastBytes([]byte("b")) // hub not running: dropped, must not block
	if got := string(<-hub.broadcast); got != "a" {
		t.Fatalf("queued %q, want a", got)
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
