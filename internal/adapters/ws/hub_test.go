package ws

import (
	"bytes"
	"testing"
	"time"

	"github.com/dkeye/Banter/internal/app"
	"github.com/dkeye/Banter/internal/domain"
)

type fakeBlocks map[domain.UserID]domain.UserID

func (f fakeBlocks) HasBlocked(viewer, sender domain.UserID) bool {
	return f[viewer] == sender
}

func attach(h *Hub, ch domain.ChannelID, userID domain.UserID) *Client {
	sub := h.get(ch)
	c := &Client{hub: sub, userID: userID, send: make(chan []byte, 8)}
	sub.register <- c
	return c
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return nil
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitOnline(t *testing.T, h *Hub, ch domain.ChannelID, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.Online(ch) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("online count never reached %d, got %d", want, h.Online(ch))
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	h := NewHub(fakeBlocks{})
	ch := domain.ChannelID("ch-1")
	a := attach(h, ch, 1)
	b := attach(h, ch, 2)
	waitOnline(t, h, ch, 2)

	h.Publish(ch, 0, app.Event{Type: "member_joined", ChannelID: ch})
	for _, c := range []*Client{a, b} {
		if data := recv(t, c); !bytes.Contains(data, []byte("member_joined")) {
			t.Errorf("unexpected payload: %s", data)
		}
	}
}

func TestHubChannelsAreIsolated(t *testing.T) {
	h := NewHub(fakeBlocks{})
	a := attach(h, "ch-a", 1)
	b := attach(h, "ch-b", 2)
	waitOnline(t, h, "ch-a", 1)
	waitOnline(t, h, "ch-b", 1)

	h.Publish("ch-a", 0, app.Event{Type: "ping", ChannelID: "ch-a"})
	recv(t, a)
	assertSilent(t, b)
}

func TestHubHonorsBlocks(t *testing.T) {
	// Viewer 1 has blocked sender 9.
	h := NewHub(fakeBlocks{1: 9})
	ch := domain.ChannelID("ch-1")
	blocker := attach(h, ch, 1)
	other := attach(h, ch, 2)
	waitOnline(t, h, ch, 2)

	h.Publish(ch, 9, app.Event{Type: "message", ChannelID: ch, UserID: 9})
	recv(t, other)
	assertSilent(t, blocker)

	// System events (sender 0) bypass the block.
	h.Publish(ch, 0, app.Event{Type: "member_left", ChannelID: ch})
	recv(t, blocker)
	recv(t, other)
}

func TestHubEvictClosesOnlyTheTarget(t *testing.T) {
	h := NewHub(fakeBlocks{})
	ch := domain.ChannelID("ch-1")
	target := attach(h, ch, 1)
	bystander := attach(h, ch, 2)
	waitOnline(t, h, ch, 2)

	h.Evict(ch, 1, "banned")

	if data := recv(t, target); !bytes.Contains(data, []byte("banned")) {
		t.Errorf("expected eviction notice, got: %s", data)
	}
	if _, ok := <-target.send; ok {
		t.Error("target send channel should be closed after eviction")
	}
	waitOnline(t, h, ch, 1)

	h.Publish(ch, 0, app.Event{Type: "still_alive", ChannelID: ch})
	recv(t, bystander)
}

func TestHubDropTearsDownChannel(t *testing.T) {
	h := NewHub(fakeBlocks{})
	ch := domain.ChannelID("ch-1")
	c := attach(h, ch, 1)
	waitOnline(t, h, ch, 1)

	h.Drop(ch)
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed when the channel is dropped")
	}
	waitOnline(t, h, ch, 0)

	h.mu.RLock()
	_, exists := h.channels[ch]
	h.mu.RUnlock()
	if exists {
		t.Error("dropped channel must be removed from the hub map")
	}

	// A fresh sub-hub can be created for a reused channel id.
	c2 := attach(h, ch, 2)
	waitOnline(t, h, ch, 1)
	h.Publish(ch, 0, app.Event{Type: "member_joined", ChannelID: ch})
	recv(t, c2)
}

func TestHubUnregisterDropsClient(t *testing.T) {
	h := NewHub(fakeBlocks{})
	ch := domain.ChannelID("ch-1")
	c := attach(h, ch, 1)
	waitOnline(t, h, ch, 1)

	c.hub.unregister <- c
	waitOnline(t, h, ch, 0)
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed on unregister")
	}
}
