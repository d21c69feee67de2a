package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Banter/internal/domain"
)

// userState is the live, authoritative record for one user. Channel-scoped
// fields (CurrentChannel, Role, Muted) are mutated only through registry
// operations, never directly.
type userState struct {
	user           domain.User
	currentChannel domain.ChannelID
	role           domain.Role
	muted          bool
	online         bool
	blocked        map[domain.UserID]struct{}
	invites        map[domain.ChannelID]domain.Invite
}

// UserSnapshot is a by-value read of a user's live state. Mutating it has
// no effect on the registry.
type UserSnapshot struct {
	User           domain.User
	CurrentChannel domain.ChannelID
	Role           domain.Role
	Muted          bool
	Online         bool
	Blocked        []domain.UserID
	Invites        []domain.Invite
}

// UserRegistry is the process-wide authoritative map of live user state.
// All operations are synchronous and in-memory; none perform I/O.
type UserRegistry struct {
	mu     sync.RWMutex
	byID   map[domain.UserID]*userState
	byNick map[string]domain.UserID
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		byID:   make(map[domain.UserID]*userState),
		byNick: make(map[string]domain.UserID),
	}
}

// Create registers a user loaded from storage. Returns false when the id
// or nickname is already taken.
func (r *UserRegistry) Create(u *domain.User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; ok {
		return false
	}
	if _, ok := r.byNick[u.Nickname]; ok {
		return false
	}
	r.byID[u.ID] = &userState{
		user:    *u,
		blocked: make(map[domain.UserID]struct{}),
		invites: make(map[domain.ChannelID]domain.Invite),
	}
	r.byNick[u.Nickname] = u.ID
	log.Debug().Str("module", "core.users").Uint64("user", uint64(u.ID)).Str("nickname", u.Nickname).Msg("user registered")
	return true
}

func (r *UserRegistry) Find(id domain.UserID) (UserSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return UserSnapshot{}, false
	}
	return s.snapshot(), true
}

func (r *UserRegistry) FindByNickname(nickname string) (UserSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byNick[nickname]
	if !ok {
		return UserSnapshot{}, false
	}
	return r.byID[id].snapshot(), true
}

// JoinChannel points the user at a channel and applies the channel-scoped
// state computed by the channel registry (role, residual mute).
func (r *UserRegistry) JoinChannel(id domain.UserID, ch domain.ChannelID, role domain.Role, muted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return
	}
	s.currentChannel = ch
	s.role = role
	s.muted = muted
	log.Info().Str("module", "core.users").Uint64("user", uint64(id)).Str("channel", string(ch)).Str("role", role.String()).Msg("joined channel")
}

// LeaveChannel clears the channel pointer and, unconditionally, role and
// mute. Channel-scoped state does not survive leaving; a rejoining user
// inherits mute status from the channel's own muted set, not from here.
func (r *UserRegistry) LeaveChannel(id domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return
	}
	ch := s.currentChannel
	s.currentChannel = ""
	s.role = domain.RoleNone
	s.muted = false
	log.Info().Str("module", "core.users").Uint64("user", uint64(id)).Str("channel", string(ch)).Msg("left channel")
}

// SetRole applies a role transition. Illegal transitions are rejected.
func (r *UserRegistry) SetRole(id domain.UserID, role domain.Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return false
	}
	if !s.role.CanTransition(role) {
		return false
	}
	s.role = role
	log.Info().Str("module", "core.users").Uint64("user", uint64(id)).Str("role", role.String()).Msg("role changed")
	return true
}

func (r *UserRegistry) Mute(id domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		s.muted = true
	}
}

func (r *UserRegistry) Unmute(id domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		s.muted = false
	}
}

func (r *UserRegistry) Block(viewer, target domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[viewer]; ok {
		s.blocked[target] = struct{}{}
	}
}

func (r *UserRegistry) Unblock(viewer, target domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[viewer]; ok {
		delete(s.blocked, target)
	}
}

// HasBlocked reports whether viewer has blocked sender. Used by the
// delivery layer to filter broadcasts; blocking never affects membership.
func (r *UserRegistry) HasBlocked(viewer, sender domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[viewer]
	if !ok {
		return false
	}
	_, blocked := s.blocked[sender]
	return blocked
}

// Invite stores a pending invite, at most one per channel per user.
// A newer invite to the same channel replaces the older one.
func (r *UserRegistry) Invite(id domain.UserID, inv domain.Invite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return
	}
	s.invites[inv.ChannelID] = inv
	log.Info().Str("module", "core.users").Uint64("user", uint64(id)).Str("channel", string(inv.ChannelID)).Str("inviter", inv.Inviter).Msg("invite stored")
}

// PendingInvite peeks at the invite for a channel without consuming it.
func (r *UserRegistry) PendingInvite(id domain.UserID, ch domain.ChannelID) (domain.Invite, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return domain.Invite{}, false
	}
	inv, ok := s.invites[ch]
	return inv, ok
}

// ConsumeInvite removes and returns the pending invite for a channel.
// Invites to other channels are left untouched.
func (r *UserRegistry) ConsumeInvite(id domain.UserID, ch domain.ChannelID) (domain.Invite, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return domain.Invite{}, false
	}
	inv, ok := s.invites[ch]
	if !ok {
		return domain.Invite{}, false
	}
	delete(s.invites, ch)
	return inv, true
}

func (r *UserRegistry) SetPresence(id domain.UserID, online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		s.online = online
	}
}

func (s *userState) snapshot() UserSnapshot {
	snap := UserSnapshot{
		User:           s.user,
		CurrentChannel: s.currentChannel,
		Role:           s.role,
		Muted:          s.muted,
		Online:         s.online,
		Blocked:        make([]domain.UserID, 0, len(s.blocked)),
		Invites:        make([]domain.Invite, 0, len(s.invites)),
	}
	for id := range s.blocked {
		snap.Blocked = append(snap.Blocked, id)
	}
	for _, inv := range s.invites {
		snap.Invites = append(snap.Invites, inv)
	}
	return snap
}
