package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/errs"
)

const (
	owner    = domain.UserID(1)
	adminA   = domain.UserID(2)
	adminB   = domain.UserID(3)
	memberX  = domain.UserID(4)
	memberY  = domain.UserID(5)
	stranger = domain.UserID(9)
)

// snapshotFixture builds a channel with an owner, two admins and two
// normal members.
func snapshotFixture() *ChannelSnapshot {
	set := func(ids ...domain.UserID) map[domain.UserID]struct{} {
		m := make(map[domain.UserID]struct{}, len(ids))
		for _, id := range ids {
			m[id] = struct{}{}
		}
		return m
	}
	return &ChannelSnapshot{
		Channel: domain.Channel{ID: "ch-1", Name: "general", Capacity: 10},
		OwnerID: owner,
		Members: set(owner, adminA, adminB, memberX, memberY),
		Admins:  set(adminA, adminB),
		Banned:  map[domain.UserID]struct{}{},
		Muted:   map[domain.UserID]struct{}{},
	}
}

func TestAuthorizeMissingChannel(t *testing.T) {
	err := Authorize(ActionKick, nil, owner, memberX)
	assert.ErrorIs(t, err, errs.ErrChannelNotFound)
}

func TestAuthorizeRequesterMustBeMember(t *testing.T) {
	err := Authorize(ActionKick, snapshotFixture(), stranger, memberX)
	assert.ErrorIs(t, err, errs.ErrNotAMember)
}

func TestAuthorizeNormalMembersNeverModerate(t *testing.T) {
	for _, action := range []Action{ActionPromote, ActionDemote, ActionKick, ActionBan, ActionUnban, ActionMute, ActionUnmute} {
		err := Authorize(action, snapshotFixture(), memberX, memberY)
		assert.ErrorIs(t, err, errs.ErrInsufficientRole, action.String())
	}
}

func TestAuthorizeOwnerIsImmune(t *testing.T) {
	err := Authorize(ActionBan, snapshotFixture(), adminA, owner)
	assert.ErrorIs(t, err, errs.ErrOwnerImmune)
}

func TestAuthorizeSameRoleBlocksPeers(t *testing.T) {
	// Admin versus admin is denied for every action kind.
	for _, action := range []Action{ActionKick, ActionBan, ActionMute, ActionUnmute, ActionUnban} {
		err := Authorize(action, snapshotFixture(), adminA, adminB)
		assert.ErrorIs(t, err, errs.ErrSameRole, action.String())
	}
}

func TestAuthorizePromotionIsOwnerOnly(t *testing.T) {
	snap := snapshotFixture()

	// Admin may mute or kick a normal member but never grant admin.
	require.NoError(t, Authorize(ActionMute, snap, adminA, memberX))
	require.NoError(t, Authorize(ActionKick, snap, adminA, memberX))
	assert.ErrorIs(t, Authorize(ActionPromote, snap, adminA, memberX), errs.ErrOwnerOnly)
	assert.ErrorIs(t, Authorize(ActionDemote, snap, adminA, memberX), errs.ErrOwnerOnly)

	// The owner may do both.
	assert.NoError(t, Authorize(ActionPromote, snap, owner, memberX))
	assert.NoError(t, Authorize(ActionDemote, snap, owner, adminA))
}

func TestAuthorizeAdminDemotionScenario(t *testing.T) {
	snap := snapshotFixture()

	// A different admin cannot demote a freshly promoted admin.
	err := Authorize(ActionDemote, snap, adminB, adminA)
	assert.ErrorIs(t, err, errs.ErrSameRole)

	// The owner can.
	assert.NoError(t, Authorize(ActionDemote, snap, owner, adminA))
}

func TestAuthorizeBanScenario(t *testing.T) {
	snap := snapshotFixture()

	// Admin bans admin: denied. Owner bans admin: allowed.
	assert.ErrorIs(t, Authorize(ActionBan, snap, adminA, adminB), errs.ErrSameRole)
	assert.NoError(t, Authorize(ActionBan, snap, owner, adminB))
}

func TestAuthorizePreemptiveBanOfNonMember(t *testing.T) {
	// Target outside the channel holds RoleNone, which never matches a
	// moderator's role, so pre-emptive bans pass authorization.
	assert.NoError(t, Authorize(ActionBan, snapshotFixture(), adminA, stranger))
	assert.NoError(t, Authorize(ActionBan, snapshotFixture(), owner, stranger))
}

func TestAuthorizeFirstFailureWins(t *testing.T) {
	// A non-member requester targeting the owner reports the membership
	// failure, not owner immunity: rules run in order.
	err := Authorize(ActionBan, snapshotFixture(), stranger, owner)
	assert.ErrorIs(t, err, errs.ErrNotAMember)
}
