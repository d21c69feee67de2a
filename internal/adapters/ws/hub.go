// Package ws is the notification transport: a channel-sharded hub fed by
// the orchestrator's post-commit events. The engine itself never touches
// a socket.
package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Banter/internal/app"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/metrics"
)

// BlockChecker answers whether viewer has blocked sender. Backed by the
// user registry.
type BlockChecker interface {
	HasBlocked(viewer, sender domain.UserID) bool
}

// Hub manages per-channel sub-hubs, created lazily.
type Hub struct {
	mu       sync.RWMutex
	channels map[domain.ChannelID]*channelHub
	blocks   BlockChecker
}

func NewHub(blocks BlockChecker) *Hub {
	return &Hub{channels: make(map[domain.ChannelID]*channelHub), blocks: blocks}
}

func (h *Hub) get(ch domain.ChannelID) *channelHub {
	h.mu.RLock()
	sub := h.channels[ch]
	h.mu.RUnlock()
	if sub != nil {
		return sub
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sub = h.channels[ch]
	if sub != nil {
		return sub
	}
	sub = newChannelHub(ch, h.blocks)
	h.channels[ch] = sub
	go sub.run()
	return sub
}

// Publish implements app.Notifier. senderID 0 means a system event that
// bypasses block filtering.
func (h *Hub) Publish(ch domain.ChannelID, senderID domain.UserID, evt app.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Str("module", "ws.hub").Err(err).Msg("marshal event")
		return
	}
	h.get(ch).broadcast <- outbound{sender: senderID, data: data}
}

// Evict implements app.Notifier: force-closes the user's connection to
// the channel stream after a kick or ban.
func (h *Hub) Evict(ch domain.ChannelID, userID domain.UserID, reason string) {
	h.get(ch).evict <- eviction{userID: userID, reason: reason}
}

// Drop implements app.Notifier: stops and forgets the channel's sub-hub
// after the channel is deleted. Remaining clients are disconnected.
func (h *Hub) Drop(ch domain.ChannelID) {
	h.mu.Lock()
	sub := h.channels[ch]
	delete(h.channels, ch)
	h.mu.Unlock()
	if sub != nil {
		close(sub.stop)
	}
}

// Online reports the connected client count for a channel.
func (h *Hub) Online(ch domain.ChannelID) int {
	h.mu.RLock()
	sub := h.channels[ch]
	h.mu.RUnlock()
	if sub == nil {
		return 0
	}
	return sub.Online()
}

type outbound struct {
	sender domain.UserID
	data   []byte
}

type eviction struct {
	userID domain.UserID
	reason string
}

type channelHub struct {
	channelID  domain.ChannelID
	blocks     BlockChecker
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	evict      chan eviction
	stop       chan struct{}
	online     int32
}

func newChannelHub(ch domain.ChannelID, blocks BlockChecker) *channelHub {
	return &channelHub{
		channelID:  ch,
		blocks:     blocks,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
		evict:      make(chan eviction, 16),
		stop:       make(chan struct{}),
	}
}

func (ch *channelHub) run() {
	for {
		select {
		case c := <-ch.register:
			ch.clients[c] = true
			atomic.StoreInt32(&ch.online, int32(len(ch.clients)))
			metrics.WsConnections.Inc()
		case c := <-ch.unregister:
			if _, ok := ch.clients[c]; ok {
				delete(ch.clients, c)
				close(c.send)
				atomic.StoreInt32(&ch.online, int32(len(ch.clients)))
				metrics.WsConnections.Dec()
			}
		case out := <-ch.broadcast:
			for c := range ch.clients {
				if out.sender != 0 && ch.blocks != nil && ch.blocks.HasBlocked(c.userID, out.sender) {
					continue
				}
				select {
				case c.send <- out.data:
				default:
					// Slow consumer: drop the connection rather than the hub.
					delete(ch.clients, c)
					close(c.send)
					atomic.StoreInt32(&ch.online, int32(len(ch.clients)))
					metrics.WsConnections.Dec()
				}
			}
		case ev := <-ch.evict:
			notice, _ := json.Marshal(map[string]string{"type": "evicted", "reason": ev.reason})
			for c := range ch.clients {
				if c.userID != ev.userID {
					continue
				}
				select {
				case c.send <- notice:
				default:
				}
				delete(ch.clients, c)
				close(c.send)
				atomic.StoreInt32(&ch.online, int32(len(ch.clients)))
				metrics.WsConnections.Dec()
			}
		case <-ch.stop:
			for c := range ch.clients {
				close(c.send)
				metrics.WsConnections.Dec()
			}
			ch.clients = nil
			atomic.StoreInt32(&ch.online, 0)
			return
		}
	}
}

// Online returns the connected client count, reusable by REST handlers.
func (ch *channelHub) Online() int { return int(atomic.LoadInt32(&ch.online)) }
