package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/errs"
	"github.com/dkeye/Banter/internal/metrics"
	"github.com/dkeye/Banter/internal/store"
)

// authorize snapshots the channel and runs the pure authority evaluator.
func (o *Orchestrator) authorize(action core.Action, chID domain.ChannelID, requesterID, targetID domain.UserID) (*core.ChannelSnapshot, error) {
	var ptr *core.ChannelSnapshot
	if snap, ok := o.Channels.FindByID(chID); ok {
		ptr = &snap
	}
	if err := core.Authorize(action, ptr, requesterID, targetID); err != nil {
		metrics.ObserveModeration(action.String(), false)
		log.Debug().Str("module", "app.moderation").Str("action", action.String()).
			Uint64("requester", uint64(requesterID)).Uint64("target", uint64(targetID)).
			Err(err).Msg("moderation denied")
		return nil, err
	}
	metrics.ObserveModeration(action.String(), true)
	return ptr, nil
}

// Promote grants admin to a member. Owner only. Promoting an admin again
// is a silent no-op: authorization runs, the durable write does not.
func (o *Orchestrator) Promote(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID, targetID domain.UserID) error {
	snap, err := o.authorize(core.ActionPromote, chID, requesterID, targetID)
	if err != nil {
		return err
	}
	if !snap.IsMember(targetID) {
		return errs.ErrTargetNotMember
	}
	if snap.RoleOf(targetID) == domain.RoleAdmin {
		return nil
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.SetMemberRole(tx, chID, targetID, domain.RoleAdmin); err != nil {
			return errs.Wrap(errs.CodeInternal, "persist promote", err)
		}
		post.Defer(func() {
			o.Channels.SetAdmin(chID, targetID)
			evt := event("promoted", chID)
			evt.UserID = targetID
			evt.ActorID = requesterID
			o.Notifier.Publish(chID, 0, evt)
		})
		return nil
	})
}

// Demote revokes admin from a member. Owner only.
func (o *Orchestrator) Demote(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID, targetID domain.UserID) error {
	snap, err := o.authorize(core.ActionDemote, chID, requesterID, targetID)
	if err != nil {
		return err
	}
	if !snap.IsMember(targetID) {
		return errs.ErrTargetNotMember
	}
	if snap.RoleOf(targetID) != domain.RoleAdmin {
		return nil
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.SetMemberRole(tx, chID, targetID, domain.RoleNormal); err != nil {
			return errs.Wrap(errs.CodeInternal, "persist demote", err)
		}
		post.Defer(func() {
			o.Channels.UnsetAdmin(chID, targetID)
			evt := event("demoted", chID)
			evt.UserID = targetID
			evt.ActorID = requesterID
			o.Notifier.Publish(chID, 0, evt)
		})
		return nil
	})
}

// Kick evicts a member. Eviction clears the channel's mute entry for the
// target, unlike a voluntary leave.
func (o *Orchestrator) Kick(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID, targetID domain.UserID) error {
	snap, err := o.authorize(core.ActionKick, chID, requesterID, targetID)
	if err != nil {
		return err
	}
	if !snap.IsMember(targetID) {
		return errs.ErrTargetNotMember
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.RemoveMember(tx, chID, targetID); err != nil {
			return errs.Wrap(errs.CodeInternal, "remove member", err)
		}
		if err := store.RemoveMute(tx, chID, targetID); err != nil {
			return errs.Wrap(errs.CodeInternal, "clear mute", err)
		}
		post.Defer(func() {
			o.Channels.Evict(targetID, chID)
			evt := event("kicked", chID)
			evt.UserID = targetID
			evt.ActorID = requesterID
			o.Notifier.Publish(chID, 0, evt)
			o.Notifier.Evict(chID, targetID, "kicked")
		})
		return nil
	})
}

// Ban excludes a user from the channel until explicitly unbanned. Banning
// works pre-emptively against non-members; a banned member is also
// evicted. Banning an already banned user is a silent no-op.
func (o *Orchestrator) Ban(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID, targetID domain.UserID) error {
	snap, err := o.authorize(core.ActionBan, chID, requesterID, targetID)
	if err != nil {
		return err
	}
	if snap.IsBanned(targetID) {
		return nil
	}
	wasMember := snap.IsMember(targetID)
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.AddBan(tx, chID, targetID, requesterID); err != nil {
			return errs.Wrap(errs.CodeInternal, "persist ban", err)
		}
		if wasMember {
			if err := store.RemoveMember(tx, chID, targetID); err != nil {
				return errs.Wrap(errs.CodeInternal, "remove banned member", err)
			}
			if err := store.RemoveMute(tx, chID, targetID); err != nil {
				return errs.Wrap(errs.CodeInternal, "clear mute", err)
			}
		}
		post.Defer(func() {
			o.Channels.SetBan(chID, targetID)
			if wasMember {
				o.Channels.Evict(targetID, chID)
			}
			evt := event("banned", chID)
			evt.UserID = targetID
			evt.ActorID = requesterID
			o.Notifier.Publish(chID, 0, evt)
			if wasMember {
				o.Notifier.Evict(chID, targetID, "banned")
			}
		})
		return nil
	})
}

// Unban lifts a ban. Deliberately membership-gated: unbanning a user who
// is not currently a member is a silent no-op, mirroring the ungated ban.
func (o *Orchestrator) Unban(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID, targetID domain.UserID) error {
	snap, err := o.authorize(core.ActionUnban, chID, requesterID, targetID)
	if err != nil {
		return err
	}
	if !snap.IsMember(targetID) || !snap.IsBanned(targetID) {
		return nil
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.RemoveBan(tx, chID, targetID); err != nil {
			return errs.Wrap(errs.CodeInternal, "remove ban", err)
		}
		post.Defer(func() { o.Channels.UnsetBan(chID, targetID) })
		return nil
	})
}

// Mute suppresses a member's messages. Muting an already muted member is
// a silent no-op.
func (o *Orchestrator) Mute(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID, targetID domain.UserID) error {
	snap, err := o.authorize(core.ActionMute, chID, requesterID, targetID)
	if err != nil {
		return err
	}
	if !snap.IsMember(targetID) {
		return errs.ErrTargetNotMember
	}
	if snap.IsMuted(targetID) {
		return nil
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.AddMute(tx, chID, targetID, requesterID); err != nil {
			return errs.Wrap(errs.CodeInternal, "persist mute", err)
		}
		post.Defer(func() {
			o.Channels.SetMute(chID, targetID)
			evt := event("muted", chID)
			evt.UserID = targetID
			evt.ActorID = requesterID
			o.Notifier.Publish(chID, 0, evt)
		})
		return nil
	})
}

// Unmute lifts a mute.
func (o *Orchestrator) Unmute(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID, targetID domain.UserID) error {
	snap, err := o.authorize(core.ActionUnmute, chID, requesterID, targetID)
	if err != nil {
		return err
	}
	if !snap.IsMember(targetID) {
		return errs.ErrTargetNotMember
	}
	if !snap.IsMuted(targetID) {
		return nil
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.RemoveMute(tx, chID, targetID); err != nil {
			return errs.Wrap(errs.CodeInternal, "remove mute", err)
		}
		post.Defer(func() {
			o.Channels.UnsetMute(chID, targetID)
			evt := event("unmuted", chID)
			evt.UserID = targetID
			evt.ActorID = requesterID
			o.Notifier.Publish(chID, 0, evt)
		})
		return nil
	})
}
