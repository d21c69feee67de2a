package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dkeye/Banter/internal/auth"
	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/errs"
	"github.com/dkeye/Banter/internal/store"
)

// Join adds the user to a channel at role normal. Access rules:
// banned users never enter; a pending invite bypasses both the password
// of a protected channel and the invite-only gate of a private one.
// Any pending invite to this channel is consumed on success.
func (o *Orchestrator) Join(ctx context.Context, userID domain.UserID, chID domain.ChannelID, password string) error {
	user, ok := o.Users.Find(userID)
	if !ok {
		return errs.ErrUserNotFound
	}
	snap, ok := o.Channels.FindByID(chID)
	if !ok {
		return errs.ErrChannelNotFound
	}
	if snap.IsMember(userID) {
		return errs.ErrAlreadyMember
	}
	if user.CurrentChannel != "" {
		return errs.ErrAlreadyInChannel
	}
	if snap.IsBanned(userID) {
		return errs.ErrBanned
	}
	if len(snap.Members) >= snap.Channel.Capacity {
		return errs.ErrChannelFull
	}
	_, invited := o.Users.PendingInvite(userID, chID)
	if !invited {
		switch snap.Channel.Access {
		case domain.AccessProtected:
			if !auth.VerifyPassword(snap.Channel.PasswordHash, password) {
				return errs.ErrBadPassword
			}
		case domain.AccessPrivate:
			return errs.ErrPrivateChannel
		}
	}

	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.AddMember(tx, chID, userID, domain.RoleNormal); err != nil {
			return errs.Wrap(errs.CodeInternal, "add member", err)
		}
		post.Defer(func() {
			o.Channels.Join(userID, chID)
			o.Users.ConsumeInvite(userID, chID)
			evt := event("member_joined", chID)
			evt.UserID = userID
			evt.Nickname = user.User.Nickname
			o.Notifier.Publish(chID, 0, evt)
		})
		return nil
	})
}

// Leave removes the user from their current channel. Ownership is not
// transferred; mute entries on the channel survive for a later rejoin.
func (o *Orchestrator) Leave(ctx context.Context, userID domain.UserID) error {
	user, ok := o.Users.Find(userID)
	if !ok {
		return errs.ErrUserNotFound
	}
	if user.CurrentChannel == "" {
		return errs.ErrNotInChannel
	}
	chID := user.CurrentChannel
	snap, ok := o.Channels.FindByID(chID)
	if !ok {
		log.Error().Str("module", "app.membership").Str("channel", string(chID)).Msg("user points at unknown channel, registry contract violated")
		return errs.ErrChannelNotFound
	}
	lastMember := len(snap.Members) == 1

	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.RemoveMember(tx, chID, userID); err != nil {
			return errs.Wrap(errs.CodeInternal, "remove member", err)
		}
		if snap.OwnerID == userID && !lastMember {
			if err := store.UpdateChannelOwner(tx, chID, 0); err != nil {
				return errs.Wrap(errs.CodeInternal, "vacate owner", err)
			}
		}
		if lastMember {
			if err := store.DeleteChannel(tx, chID); err != nil {
				return errs.Wrap(errs.CodeInternal, "delete emptied channel", err)
			}
		}
		post.Defer(func() {
			o.Channels.Leave(userID, chID)
			if lastMember {
				o.Notifier.Drop(chID)
				return
			}
			evt := event("member_left", chID)
			evt.UserID = userID
			evt.Nickname = user.User.Nickname
			o.Notifier.Publish(chID, 0, evt)
		})
		return nil
	})
}

// InviteUser stores an ephemeral invite on the target. Inviter must be a
// member of the channel. No durable write happens, so the registry is
// mutated directly.
func (o *Orchestrator) InviteUser(ctx context.Context, inviterID domain.UserID, chID domain.ChannelID, targetID domain.UserID) error {
	snap, ok := o.Channels.FindByID(chID)
	if !ok {
		return errs.ErrChannelNotFound
	}
	if !snap.IsMember(inviterID) {
		return errs.ErrNotAMember
	}
	if snap.IsMember(targetID) {
		return errs.ErrAlreadyMember
	}
	inviter, ok := o.Users.Find(inviterID)
	if !ok {
		return errs.ErrUserNotFound
	}
	if _, ok := o.Users.Find(targetID); !ok {
		return errs.ErrUserNotFound
	}
	o.Users.Invite(targetID, domain.NewInvite(chID, snap.Channel.Name, inviter.User.Nickname))
	return nil
}

// AcceptInvite joins the invited channel; the invite itself is consumed
// by the join's post-commit step.
func (o *Orchestrator) AcceptInvite(ctx context.Context, userID domain.UserID, chID domain.ChannelID) error {
	if _, ok := o.Users.PendingInvite(userID, chID); !ok {
		return errs.ErrInviteNotFound
	}
	return o.Join(ctx, userID, chID, "")
}

// RejectInvite drops a pending invite without joining.
func (o *Orchestrator) RejectInvite(ctx context.Context, userID domain.UserID, chID domain.ChannelID) error {
	if _, ok := o.Users.ConsumeInvite(userID, chID); !ok {
		return errs.ErrInviteNotFound
	}
	return nil
}

// Invites lists the user's pending invites.
func (o *Orchestrator) Invites(userID domain.UserID) ([]domain.Invite, error) {
	user, ok := o.Users.Find(userID)
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return user.Invites, nil
}
