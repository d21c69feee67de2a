package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Banter/internal/domain"
)

// channelState is the live, authoritative record for one channel.
// Invariants: admins ⊆ members; the owner is never banned; muted may keep
// entries for users who already left (residual mute, reapplied on rejoin).
type channelState struct {
	channel domain.Channel
	ownerID domain.UserID // 0 when the owner slot is vacant
	members map[domain.UserID]struct{}
	admins  map[domain.UserID]struct{}
	banned  map[domain.UserID]struct{}
	muted   map[domain.UserID]struct{}
}

// ChannelSnapshot is a by-value read of a channel's live state, with all
// sets copied. It feeds Authorize and the transport layer.
type ChannelSnapshot struct {
	Channel domain.Channel
	OwnerID domain.UserID
	Members map[domain.UserID]struct{}
	Admins  map[domain.UserID]struct{}
	Banned  map[domain.UserID]struct{}
	Muted   map[domain.UserID]struct{}
}

func (s *ChannelSnapshot) IsMember(id domain.UserID) bool {
	_, ok := s.Members[id]
	return ok
}

func (s *ChannelSnapshot) IsBanned(id domain.UserID) bool {
	_, ok := s.Banned[id]
	return ok
}

func (s *ChannelSnapshot) IsMuted(id domain.UserID) bool {
	_, ok := s.Muted[id]
	return ok
}

// RoleOf derives the channel-scoped role from the snapshot. Non-members
// have RoleNone.
func (s *ChannelSnapshot) RoleOf(id domain.UserID) domain.Role {
	if !s.IsMember(id) {
		return domain.RoleNone
	}
	if id == s.OwnerID {
		return domain.RoleOwner
	}
	if _, ok := s.Admins[id]; ok {
		return domain.RoleAdmin
	}
	return domain.RoleNormal
}

// ChannelRegistry is the process-wide authoritative map of live channel
// state. Membership side effects are propagated onto the UserRegistry;
// lock order is always channel registry first, user registry second.
type ChannelRegistry struct {
	mu     sync.RWMutex
	byID   map[domain.ChannelID]*channelState
	byName map[string]domain.ChannelID
	users  *UserRegistry
}

func NewChannelRegistry(users *UserRegistry) *ChannelRegistry {
	return &ChannelRegistry{
		byID:   make(map[domain.ChannelID]*channelState),
		byName: make(map[string]domain.ChannelID),
		users:  users,
	}
}

// Create registers a channel and folds the creator in as its owner.
// Returns false when the name is already taken.
func (r *ChannelRegistry) Create(ownerID domain.UserID, ch *domain.Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[ch.Name]; ok {
		return false
	}
	st := &channelState{
		channel: *ch,
		ownerID: ownerID,
		members: make(map[domain.UserID]struct{}),
		admins:  make(map[domain.UserID]struct{}),
		banned:  make(map[domain.UserID]struct{}),
		muted:   make(map[domain.UserID]struct{}),
	}
	r.byID[ch.ID] = st
	r.byName[ch.Name] = ch.ID
	st.members[ownerID] = struct{}{}
	r.users.JoinChannel(ownerID, ch.ID, domain.RoleOwner, false)
	log.Info().Str("module", "core.channels").Str("channel", string(ch.ID)).Str("name", ch.Name).Uint64("owner", uint64(ownerID)).Msg("channel created")
	return true
}

func (r *ChannelRegistry) FindByID(id domain.ChannelID) (ChannelSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.byID[id]
	if !ok {
		return ChannelSnapshot{}, false
	}
	return st.snapshot(), true
}

func (r *ChannelRegistry) FindByName(name string) (ChannelSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return ChannelSnapshot{}, false
	}
	return r.byID[id].snapshot(), true
}

func (r *ChannelRegistry) List() []ChannelSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ChannelSnapshot, 0, len(r.byID))
	for _, st := range r.byID {
		out = append(out, st.snapshot())
	}
	return out
}

func (r *ChannelRegistry) MemberCount(id domain.ChannelID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.byID[id]
	if !ok {
		return 0
	}
	return len(st.members)
}

// Join adds a member at role normal. Rejects when the channel is at
// capacity or the user is already a member. A residual entry in the muted
// set marks the joining user muted again.
func (r *ChannelRegistry) Join(userID domain.UserID, id domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	if _, member := st.members[userID]; member {
		return false
	}
	if len(st.members) >= st.channel.Capacity {
		return false
	}
	st.members[userID] = struct{}{}
	_, muted := st.muted[userID]
	r.users.JoinChannel(userID, id, domain.RoleNormal, muted)
	return true
}

// Leave removes a member. The owner slot is vacated without transfer; an
// ownerless channel persists until reassigned or emptied. Admin entries
// are dropped, muted entries intentionally retained. An emptied channel
// is deleted from the registry.
func (r *ChannelRegistry) Leave(userID domain.UserID, id domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	if _, member := st.members[userID]; !member {
		return false
	}
	if st.ownerID == userID {
		st.ownerID = 0
	}
	delete(st.members, userID)
	delete(st.admins, userID)
	r.users.LeaveChannel(userID)
	if len(st.members) == 0 {
		r.remove(st)
	}
	return true
}

// Evict force-removes a member after a kick or ban. Unlike a voluntary
// leave it also clears the muted entry: eviction resets channel-scoped
// state completely.
func (r *ChannelRegistry) Evict(userID domain.UserID, id domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	if _, member := st.members[userID]; !member {
		return false
	}
	if st.ownerID == userID {
		st.ownerID = 0
	}
	delete(st.members, userID)
	delete(st.admins, userID)
	delete(st.muted, userID)
	r.users.LeaveChannel(userID)
	log.Info().Str("module", "core.channels").Str("channel", string(id)).Uint64("user", uint64(userID)).Msg("member evicted")
	if len(st.members) == 0 {
		r.remove(st)
	}
	return true
}

// SetOwner reassigns the owner slot. Requires current membership. A still
// present previous owner drops back to normal.
func (r *ChannelRegistry) SetOwner(id domain.ChannelID, userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	if _, member := st.members[userID]; !member {
		return false
	}
	prev := st.ownerID
	if prev == userID {
		return true
	}
	st.ownerID = userID
	delete(st.admins, userID)
	if prev != 0 {
		if _, stillMember := st.members[prev]; stillMember {
			r.users.SetRole(prev, domain.RoleNormal)
		}
	}
	r.users.SetRole(userID, domain.RoleOwner)
	log.Info().Str("module", "core.channels").Str("channel", string(id)).Uint64("owner", uint64(userID)).Msg("owner reassigned")
	return true
}

// SetAdmin grants admin to a current member.
func (r *ChannelRegistry) SetAdmin(id domain.ChannelID, userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	if _, member := st.members[userID]; !member {
		return false
	}
	st.admins[userID] = struct{}{}
	r.users.SetRole(userID, domain.RoleAdmin)
	return true
}

// UnsetAdmin revokes admin from a current member.
func (r *ChannelRegistry) UnsetAdmin(id domain.ChannelID, userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	if _, member := st.members[userID]; !member {
		return false
	}
	delete(st.admins, userID)
	r.users.SetRole(userID, domain.RoleNormal)
	return true
}

// SetMute marks a current member muted, both on the channel set and the
// user record. The channel entry outlives a voluntary leave.
func (r *ChannelRegistry) SetMute(id domain.ChannelID, userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	if _, member := st.members[userID]; !member {
		return false
	}
	st.muted[userID] = struct{}{}
	r.users.Mute(userID)
	return true
}

func (r *ChannelRegistry) UnsetMute(id domain.ChannelID, userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(st.muted, userID)
	if _, member := st.members[userID]; member {
		r.users.Unmute(userID)
	}
	return true
}

// SetBan always succeeds for anyone but the current owner, regardless of
// membership: pre-emptive bans are allowed. It never removes the user
// from the member set; eviction is an explicit separate step.
func (r *ChannelRegistry) SetBan(id domain.ChannelID, userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	if st.ownerID == userID {
		return false
	}
	st.banned[userID] = struct{}{}
	log.Info().Str("module", "core.channels").Str("channel", string(id)).Uint64("user", uint64(userID)).Msg("user banned")
	return true
}

// UnsetBan clears a ban only for a current member. The membership gate is
// deliberate and mirrors the long-standing asymmetry with SetBan.
func (r *ChannelRegistry) UnsetBan(id domain.ChannelID, userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	if _, member := st.members[userID]; !member {
		return false
	}
	delete(st.banned, userID)
	return true
}

func (r *ChannelRegistry) UpdateAccessMode(id domain.ChannelID, mode domain.AccessMode, passwordHash string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	st.channel.Access = mode
	if mode == domain.AccessProtected {
		st.channel.PasswordHash = passwordHash
	} else {
		st.channel.PasswordHash = ""
	}
	return true
}

func (r *ChannelRegistry) UpdatePassword(id domain.ChannelID, passwordHash string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	if st.channel.Access != domain.AccessProtected {
		return false
	}
	st.channel.PasswordHash = passwordHash
	return true
}

// Delete removes a channel outright, clearing every member's user record.
func (r *ChannelRegistry) Delete(id domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return false
	}
	for userID := range st.members {
		r.users.LeaveChannel(userID)
	}
	r.remove(st)
	return true
}

// Restore installs a channel with its full persisted state at boot,
// propagating membership onto the user registry. Not for request paths.
func (r *ChannelRegistry) Restore(ch *domain.Channel, ownerID domain.UserID, members map[domain.UserID]domain.Role, banned, muted []domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[ch.Name]; ok {
		return false
	}
	st := &channelState{
		channel: *ch,
		ownerID: ownerID,
		members: make(map[domain.UserID]struct{}, len(members)),
		admins:  make(map[domain.UserID]struct{}),
		banned:  make(map[domain.UserID]struct{}, len(banned)),
		muted:   make(map[domain.UserID]struct{}, len(muted)),
	}
	for _, id := range banned {
		st.banned[id] = struct{}{}
	}
	for _, id := range muted {
		st.muted[id] = struct{}{}
	}
	for userID, role := range members {
		st.members[userID] = struct{}{}
		if role == domain.RoleAdmin {
			st.admins[userID] = struct{}{}
		}
		_, isMuted := st.muted[userID]
		r.users.JoinChannel(userID, ch.ID, role, isMuted)
	}
	// An over-committed row would break the capacity bound for the whole
	// process lifetime. Raise the limit to the stored member count; the
	// channel stays full until members leave.
	if len(st.members) > st.channel.Capacity {
		log.Warn().Str("module", "core.channels").Str("channel", string(ch.ID)).
			Int("members", len(st.members)).Int("capacity", st.channel.Capacity).
			Msg("stored membership exceeds capacity, raising limit to member count")
		st.channel.Capacity = len(st.members)
	}
	r.byID[ch.ID] = st
	r.byName[ch.Name] = ch.ID
	log.Info().Str("module", "core.channels").Str("channel", string(ch.ID)).Str("name", ch.Name).Int("members", len(st.members)).Msg("channel restored")
	return true
}

// remove expects r.mu held.
func (r *ChannelRegistry) remove(st *channelState) {
	delete(r.byID, st.channel.ID)
	delete(r.byName, st.channel.Name)
	log.Info().Str("module", "core.channels").Str("channel", string(st.channel.ID)).Str("name", st.channel.Name).Msg("channel removed")
}

func (st *channelState) snapshot() ChannelSnapshot {
	return ChannelSnapshot{
		Channel: st.channel,
		OwnerID: st.ownerID,
		Members: copySet(st.members),
		Admins:  copySet(st.admins),
		Banned:  copySet(st.banned),
		Muted:   copySet(st.muted),
	}
}

func copySet(src map[domain.UserID]struct{}) map[domain.UserID]struct{} {
	dst := make(map[domain.UserID]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}
