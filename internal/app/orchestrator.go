// Package app hosts the request-facing workflows. Every operation follows
// the same shape: validate against the live registries (no I/O), write
// durably inside one transaction, and apply registry mutation plus
// notifications only after the transaction has committed. A rollback or a
// cancelled request discards the deferred mutations, so the registries
// never observe an uncommitted write.
package app

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/store"
)

// Event is a post-commit notification handed to the transport layer.
type Event struct {
	Type      string           `json:"type"`
	ChannelID domain.ChannelID `json:"channel_id"`
	UserID    domain.UserID    `json:"user_id,omitempty"`
	Nickname  string           `json:"nickname,omitempty"`
	ActorID   domain.UserID    `json:"actor_id,omitempty"`
	MessageID uint64           `json:"message_id,omitempty"`
	Content   string           `json:"content,omitempty"`
	At        time.Time        `json:"at"`
}

// Notifier delivers post-commit events. The engine performs no network
// I/O itself; delivery failures are the transport's problem.
type Notifier interface {
	// Publish fans an event out to the channel's connected clients.
	// senderID is used to honor per-user blocks; 0 means a system event
	// nobody can block.
	Publish(ch domain.ChannelID, senderID domain.UserID, evt Event)
	// Evict force-closes the target's connection to the channel stream.
	Evict(ch domain.ChannelID, userID domain.UserID, reason string)
	// Drop tears the channel's delivery stream down once the channel
	// itself is gone, so the transport holds no state for dead channels.
	Drop(ch domain.ChannelID)
}

// NopNotifier is used in tests and before the hub is wired.
type NopNotifier struct{}

func (NopNotifier) Publish(domain.ChannelID, domain.UserID, Event) {}

func (NopNotifier) Evict(domain.ChannelID, domain.UserID, string) {}

func (NopNotifier) Drop(domain.ChannelID) {}

type Orchestrator struct {
	Users    *core.UserRegistry
	Channels *core.ChannelRegistry
	Store    *store.Store
	Notifier Notifier
}

func NewOrchestrator(users *core.UserRegistry, channels *core.ChannelRegistry, st *store.Store, n Notifier) *Orchestrator {
	if n == nil {
		n = NopNotifier{}
	}
	return &Orchestrator{Users: users, Channels: channels, Store: st, Notifier: n}
}

// txn is the commit-synchronization boundary. fn performs durable writes
// on tx and registers registry mutations on post; post runs only when the
// transaction commits and is discarded on rollback or cancellation.
func (o *Orchestrator) txn(ctx context.Context, fn func(tx *gorm.DB, post *core.Deferred) error) error {
	post := core.NewDeferred()
	err := o.Store.Txn(ctx, func(tx *gorm.DB) error {
		return fn(tx, post)
	})
	if err != nil {
		post.Discard()
		return err
	}
	post.Run()
	return nil
}

// event stamps the shared fields.
func event(typ string, ch domain.ChannelID) Event {
	return Event{Type: typ, ChannelID: ch, At: time.Now()}
}
