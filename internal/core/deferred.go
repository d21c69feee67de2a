package core

import "github.com/rs/zerolog/log"

// Deferred is the post-commit action queue of the commit-synchronization
// protocol. A workflow collects registry mutations and notifications into
// it while the durable transaction is open, then calls Run after a
// confirmed commit or Discard after a rollback or cancellation. Registry
// state therefore only ever reflects committed transactions.
//
// A Deferred is owned by a single request and is not safe for concurrent
// use.
type Deferred struct {
	fns  []func()
	done bool
}

func NewDeferred() *Deferred {
	return &Deferred{}
}

// Defer schedules fn to run on commit. No-op after Run or Discard.
func (d *Deferred) Defer(fn func()) {
	if d.done {
		return
	}
	d.fns = append(d.fns, fn)
}

// Len reports the number of pending actions.
func (d *Deferred) Len() int { return len(d.fns) }

// Run drains the queue in registration order. The transaction must be
// known committed before calling.
func (d *Deferred) Run() {
	if d.done {
		return
	}
	d.done = true
	for _, fn := range d.fns {
		fn()
	}
	d.fns = nil
}

// Discard drops every pending action, leaving the registries untouched.
// Rollback and request cancellation both land here.
func (d *Deferred) Discard() {
	if d.done {
		return
	}
	d.done = true
	if len(d.fns) > 0 {
		log.Debug().Str("module", "core.deferred").Int("dropped", len(d.fns)).Msg("discarded post-commit actions")
	}
	d.fns = nil
}
