package core

import (
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/errs"
)

// Action is a moderation request kind fed to Authorize.
type Action int

const (
	ActionPromote Action = iota
	ActionDemote
	ActionKick
	ActionBan
	ActionUnban
	ActionMute
	ActionUnmute
)

func (a Action) String() string {
	switch a {
	case ActionPromote:
		return "promote"
	case ActionDemote:
		return "demote"
	case ActionKick:
		return "kick"
	case ActionBan:
		return "ban"
	case ActionUnban:
		return "unban"
	case ActionMute:
		return "mute"
	case ActionUnmute:
		return "unmute"
	default:
		return "unknown"
	}
}

// Authorize is the pure moderation decision procedure. Rules run in order
// and the first failure wins:
//
//  1. the channel must exist,
//  2. the requester must be a current member,
//  3. the requester must hold admin or owner,
//  4. the current owner may never be targeted,
//  5. requester and target must not hold the same role.
//
// Promote and demote are stricter on top: only the owner may grant or
// revoke admin. Mute, unmute, kick, ban and unban need admin or owner
// only. That asymmetry is deliberate and load-bearing.
func Authorize(action Action, ch *ChannelSnapshot, requesterID, targetID domain.UserID) error {
	if ch == nil {
		return errs.ErrChannelNotFound
	}
	if !ch.IsMember(requesterID) {
		return errs.ErrNotAMember
	}
	requesterRole := ch.RoleOf(requesterID)
	if !requesterRole.CanModerate() {
		return errs.ErrInsufficientRole
	}
	if targetID == ch.OwnerID {
		return errs.ErrOwnerImmune
	}
	if requesterRole == ch.RoleOf(targetID) {
		return errs.ErrSameRole
	}
	if action == ActionPromote || action == ActionDemote {
		if requesterRole != domain.RoleOwner {
			return errs.ErrOwnerOnly
		}
	}
	return nil
}
