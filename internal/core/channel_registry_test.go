package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Banter/internal/domain"
)

func newTestRegistries(t *testing.T, userCount int) (*UserRegistry, *ChannelRegistry) {
	t.Helper()
	users := NewUserRegistry()
	for i := 1; i <= userCount; i++ {
		require.True(t, users.Create(&domain.User{ID: domain.UserID(i), Nickname: fmt.Sprintf("user-%d", i)}))
	}
	return users, NewChannelRegistry(users)
}

func mustChannel(t *testing.T, name string, capacity int) *domain.Channel {
	t.Helper()
	ch, err := domain.NewChannel(name, domain.AccessPublic, "", capacity)
	require.NoError(t, err)
	return ch
}

func TestChannelCreateFoldsOwnerIn(t *testing.T) {
	users, channels := newTestRegistries(t, 1)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))

	snap, ok := channels.FindByID(ch.ID)
	require.True(t, ok)
	assert.Equal(t, domain.UserID(1), snap.OwnerID)
	assert.True(t, snap.IsMember(1))
	assert.Equal(t, domain.RoleOwner, snap.RoleOf(1))

	u, _ := users.Find(1)
	assert.Equal(t, ch.ID, u.CurrentChannel)
	assert.Equal(t, domain.RoleOwner, u.Role)

	assert.False(t, channels.Create(2, mustChannel(t, "general", 10)), "duplicate name")
}

func TestChannelMembershipPointerInvariant(t *testing.T) {
	users, channels := newTestRegistries(t, 3)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))
	require.True(t, channels.Join(2, ch.ID))
	require.True(t, channels.Join(3, ch.ID))

	// U ∈ members ⟺ U.currentChannel = channel, for every user.
	snap, _ := channels.FindByID(ch.ID)
	for i := 1; i <= 3; i++ {
		id := domain.UserID(i)
		u, _ := users.Find(id)
		assert.True(t, snap.IsMember(id))
		assert.Equal(t, ch.ID, u.CurrentChannel)
	}

	require.True(t, channels.Leave(2, ch.ID))
	snap, _ = channels.FindByID(ch.ID)
	u, _ := users.Find(2)
	assert.False(t, snap.IsMember(2))
	assert.Empty(t, u.CurrentChannel)
}

func TestChannelJoinRejectsAtCapacity(t *testing.T) {
	_, channels := newTestRegistries(t, 11)
	ch := mustChannel(t, "crowded", 10)
	require.True(t, channels.Create(1, ch))
	for i := 2; i <= 10; i++ {
		require.True(t, channels.Join(domain.UserID(i), ch.ID))
	}
	assert.Equal(t, 10, channels.MemberCount(ch.ID))

	assert.False(t, channels.Join(11, ch.ID), "11th member rejected")
	assert.Equal(t, 10, channels.MemberCount(ch.ID), "count unchanged after rejection")
}

func TestChannelJoinRejectsDoubleJoin(t *testing.T) {
	_, channels := newTestRegistries(t, 2)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))
	require.True(t, channels.Join(2, ch.ID))
	assert.False(t, channels.Join(2, ch.ID))
}

func TestMuteSurvivesLeaveAndReappliesOnRejoin(t *testing.T) {
	users, channels := newTestRegistries(t, 2)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))
	require.True(t, channels.Join(2, ch.ID))
	require.True(t, channels.SetMute(ch.ID, 2))

	u, _ := users.Find(2)
	assert.True(t, u.Muted)

	// Voluntary leave clears the user record but not the channel's set.
	require.True(t, channels.Leave(2, ch.ID))
	u, _ = users.Find(2)
	assert.False(t, u.Muted)
	snap, _ := channels.FindByID(ch.ID)
	assert.True(t, snap.IsMuted(2), "residual mute entry retained")

	// Rejoin inherits the mute from the channel.
	require.True(t, channels.Join(2, ch.ID))
	u, _ = users.Find(2)
	assert.True(t, u.Muted)
}

func TestEvictClearsMuteUnlikeLeave(t *testing.T) {
	users, channels := newTestRegistries(t, 2)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))
	require.True(t, channels.Join(2, ch.ID))
	require.True(t, channels.SetMute(ch.ID, 2))

	require.True(t, channels.Evict(2, ch.ID))
	snap, _ := channels.FindByID(ch.ID)
	assert.False(t, snap.IsMuted(2), "eviction resets channel-scoped state")

	u, _ := users.Find(2)
	assert.Empty(t, u.CurrentChannel)

	require.True(t, channels.Join(2, ch.ID))
	u, _ = users.Find(2)
	assert.False(t, u.Muted)
}

func TestLeaveDropsAdminAndVacatesOwner(t *testing.T) {
	_, channels := newTestRegistries(t, 3)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))
	require.True(t, channels.Join(2, ch.ID))
	require.True(t, channels.Join(3, ch.ID))
	require.True(t, channels.SetAdmin(ch.ID, 2))

	require.True(t, channels.Leave(2, ch.ID))
	snap, _ := channels.FindByID(ch.ID)
	_, stillAdmin := snap.Admins[2]
	assert.False(t, stillAdmin, "admin entry removed on leave")

	// Owner leaves: slot vacated, no automatic transfer.
	require.True(t, channels.Leave(1, ch.ID))
	snap, _ = channels.FindByID(ch.ID)
	assert.Equal(t, domain.UserID(0), snap.OwnerID)
	assert.True(t, snap.IsMember(3), "channel persists ownerless")
}

func TestChannelDeletedWhenEmptied(t *testing.T) {
	_, channels := newTestRegistries(t, 1)
	ch := mustChannel(t, "ephemeral", 10)
	require.True(t, channels.Create(1, ch))
	require.True(t, channels.Leave(1, ch.ID))

	_, ok := channels.FindByID(ch.ID)
	assert.False(t, ok, "emptied channel removed from registry")
	_, ok = channels.FindByName("ephemeral")
	assert.False(t, ok)

	// The name becomes available again.
	assert.True(t, channels.Create(1, mustChannel(t, "ephemeral", 10)))
}

func TestBanIsUngatedAndUnbanIsMembershipGated(t *testing.T) {
	_, channels := newTestRegistries(t, 3)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))

	// Pre-emptive ban of a user who never joined.
	assert.True(t, channels.SetBan(ch.ID, 3))
	snap, _ := channels.FindByID(ch.ID)
	assert.True(t, snap.IsBanned(3))
	assert.False(t, snap.IsMember(3), "ban does not touch membership")

	// Unban of a non-member no-ops.
	assert.False(t, channels.UnsetBan(ch.ID, 3))
	snap, _ = channels.FindByID(ch.ID)
	assert.True(t, snap.IsBanned(3))

	// Unban works once the target is a member.
	require.True(t, channels.Join(2, ch.ID))
	require.True(t, channels.SetBan(ch.ID, 2))
	assert.True(t, channels.UnsetBan(ch.ID, 2))
	snap, _ = channels.FindByID(ch.ID)
	assert.False(t, snap.IsBanned(2))
}

func TestBanNeverTargetsOwner(t *testing.T) {
	_, channels := newTestRegistries(t, 1)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))
	assert.False(t, channels.SetBan(ch.ID, 1))
	snap, _ := channels.FindByID(ch.ID)
	assert.False(t, snap.IsBanned(1))
}

func TestRoleOpsRequireMembership(t *testing.T) {
	_, channels := newTestRegistries(t, 2)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))

	assert.False(t, channels.SetAdmin(ch.ID, 2), "non-member cannot be admin")
	assert.False(t, channels.SetOwner(ch.ID, 2), "non-member cannot be owner")
	assert.False(t, channels.SetMute(ch.ID, 2), "non-member cannot be muted")
}

func TestSetOwnerDemotesPreviousOwner(t *testing.T) {
	users, channels := newTestRegistries(t, 2)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))
	require.True(t, channels.Join(2, ch.ID))

	require.True(t, channels.SetOwner(ch.ID, 2))
	snap, _ := channels.FindByID(ch.ID)
	assert.Equal(t, domain.UserID(2), snap.OwnerID)
	assert.Equal(t, domain.RoleOwner, snap.RoleOf(2))
	assert.Equal(t, domain.RoleNormal, snap.RoleOf(1))

	u1, _ := users.Find(1)
	assert.Equal(t, domain.RoleNormal, u1.Role)
}

func TestSnapshotIsDetached(t *testing.T) {
	_, channels := newTestRegistries(t, 2)
	ch := mustChannel(t, "general", 10)
	require.True(t, channels.Create(1, ch))
	snap, _ := channels.FindByID(ch.ID)

	require.True(t, channels.Join(2, ch.ID))
	assert.False(t, snap.IsMember(2), "snapshot does not track later mutations")
}

func TestRestoreOverCommittedChannelRaisesCapacity(t *testing.T) {
	_, channels := newTestRegistries(t, 4)
	ch := mustChannel(t, "packed", 2)
	members := map[domain.UserID]domain.Role{
		1: domain.RoleOwner,
		2: domain.RoleNormal,
		3: domain.RoleNormal,
	}
	require.True(t, channels.Restore(ch, 1, members, nil, nil))

	// Nobody is dropped, the bound holds and the channel is full.
	snap, ok := channels.FindByID(ch.ID)
	require.True(t, ok)
	assert.Len(t, snap.Members, 3)
	assert.Equal(t, 3, snap.Channel.Capacity)
	assert.False(t, channels.Join(4, ch.ID))
}

func TestRestoreRebuildsFullState(t *testing.T) {
	users, channels := newTestRegistries(t, 3)
	ch := mustChannel(t, "restored", 10)
	members := map[domain.UserID]domain.Role{
		1: domain.RoleOwner,
		2: domain.RoleAdmin,
		3: domain.RoleNormal,
	}
	require.True(t, channels.Restore(ch, 1, members, []domain.UserID{9}, []domain.UserID{3}))

	snap, ok := channels.FindByID(ch.ID)
	require.True(t, ok)
	assert.Equal(t, domain.RoleOwner, snap.RoleOf(1))
	assert.Equal(t, domain.RoleAdmin, snap.RoleOf(2))
	assert.Equal(t, domain.RoleNormal, snap.RoleOf(3))
	assert.True(t, snap.IsBanned(9))
	assert.True(t, snap.IsMuted(3))

	u3, _ := users.Find(3)
	assert.True(t, u3.Muted, "mute reapplied during hydration")
	assert.Equal(t, ch.ID, u3.CurrentChannel)
}
