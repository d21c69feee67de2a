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

// CreateChannel registers a channel with the creator as owner. The creator
// must not already belong to a channel.
func (o *Orchestrator) CreateChannel(ctx context.Context, ownerID domain.UserID, name string, access domain.AccessMode, password string, capacity int) (*domain.Channel, error) {
	owner, ok := o.Users.Find(ownerID)
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	if owner.CurrentChannel != "" {
		return nil, errs.ErrAlreadyInChannel
	}
	if _, taken := o.Channels.FindByName(name); taken {
		return nil, errs.ErrChannelNameTaken
	}
	var passwordHash string
	if access == domain.AccessProtected {
		h, err := auth.HashPassword(password)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "hash channel password", err)
		}
		passwordHash = h
	}
	ch, err := domain.NewChannel(name, access, passwordHash, capacity)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInvalidState, "invalid channel settings", err)
	}

	err = o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.CreateChannel(tx, ch, ownerID); err != nil {
			return errs.Wrap(errs.CodeInternal, "create channel", err)
		}
		post.Defer(func() {
			o.Channels.Create(ownerID, ch)
			log.Info().Str("module", "app.channels").Str("channel", string(ch.ID)).Str("name", ch.Name).Msg("channel created")
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// DeleteChannel removes a channel entirely. Owner only.
func (o *Orchestrator) DeleteChannel(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID) error {
	snap, ok := o.Channels.FindByID(chID)
	if !ok {
		return errs.ErrChannelNotFound
	}
	if snap.OwnerID != requesterID {
		return errs.ErrNotOwner
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.DeleteChannel(tx, chID); err != nil {
			return errs.Wrap(errs.CodeInternal, "delete channel", err)
		}
		post.Defer(func() {
			evt := event("channel_deleted", chID)
			evt.ActorID = requesterID
			o.Notifier.Publish(chID, 0, evt)
			for userID := range snap.Members {
				o.Notifier.Evict(chID, userID, "channel deleted")
			}
			o.Channels.Delete(chID)
			o.Notifier.Drop(chID)
		})
		return nil
	})
}

// UpdateAccessMode switches a channel between public, protected and
// private. Owner only; protected requires a password.
func (o *Orchestrator) UpdateAccessMode(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID, mode domain.AccessMode, password string) error {
	snap, ok := o.Channels.FindByID(chID)
	if !ok {
		return errs.ErrChannelNotFound
	}
	if snap.OwnerID != requesterID {
		return errs.ErrNotOwner
	}
	var passwordHash string
	if mode == domain.AccessProtected {
		if password == "" {
			return errs.InvalidState("protected channel requires a password")
		}
		h, err := auth.HashPassword(password)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "hash channel password", err)
		}
		passwordHash = h
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.UpdateChannelAccess(tx, chID, mode, passwordHash); err != nil {
			return errs.Wrap(errs.CodeInternal, "update access mode", err)
		}
		post.Defer(func() { o.Channels.UpdateAccessMode(chID, mode, passwordHash) })
		return nil
	})
}

// UpdatePassword rotates the password of a protected channel. Owner only.
func (o *Orchestrator) UpdatePassword(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID, password string) error {
	snap, ok := o.Channels.FindByID(chID)
	if !ok {
		return errs.ErrChannelNotFound
	}
	if snap.OwnerID != requesterID {
		return errs.ErrNotOwner
	}
	if snap.Channel.Access != domain.AccessProtected {
		return errs.InvalidState("channel is not password protected")
	}
	if password == "" {
		return errs.InvalidState("password must not be empty")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "hash channel password", err)
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.UpdateChannelPassword(tx, chID, hash); err != nil {
			return errs.Wrap(errs.CodeInternal, "update password", err)
		}
		post.Defer(func() { o.Channels.UpdatePassword(chID, hash) })
		return nil
	})
}

// TransferOwnership hands the owner slot to another current member.
func (o *Orchestrator) TransferOwnership(ctx context.Context, requesterID domain.UserID, chID domain.ChannelID, targetID domain.UserID) error {
	snap, ok := o.Channels.FindByID(chID)
	if !ok {
		return errs.ErrChannelNotFound
	}
	if snap.OwnerID != requesterID {
		return errs.ErrNotOwner
	}
	if !snap.IsMember(targetID) {
		return errs.ErrTargetNotMember
	}
	if targetID == requesterID {
		return nil
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.UpdateChannelOwner(tx, chID, targetID); err != nil {
			return errs.Wrap(errs.CodeInternal, "update owner", err)
		}
		if err := store.SetMemberRole(tx, chID, targetID, domain.RoleOwner); err != nil {
			return errs.Wrap(errs.CodeInternal, "set owner role", err)
		}
		if err := store.SetMemberRole(tx, chID, requesterID, domain.RoleNormal); err != nil {
			return errs.Wrap(errs.CodeInternal, "demote previous owner", err)
		}
		post.Defer(func() {
			o.Channels.SetOwner(chID, targetID)
			evt := event("owner_changed", chID)
			evt.UserID = targetID
			evt.ActorID = requesterID
			o.Notifier.Publish(chID, 0, evt)
		})
		return nil
	})
}

// ListChannels returns snapshots of every live channel.
func (o *Orchestrator) ListChannels() []core.ChannelSnapshot {
	return o.Channels.List()
}
