package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxChannelNameLen = 64
	DefaultCapacity   = 50
	MaxCapacity       = 1000
)

var (
	ErrChannelNameEmpty   = errors.New("channel name empty")
	ErrChannelNameTooLong = errors.New("channel name too long")
	ErrBadCapacity        = errors.New("capacity out of range")
	ErrPasswordRequired   = errors.New("protected channel requires a password")
)

// ChannelID is the opaque identity of a channel, a UUID string.
type ChannelID string

// AccessMode controls how a channel may be joined.
type AccessMode int

const (
	AccessPublic AccessMode = iota
	AccessProtected
	AccessPrivate
)

func (m AccessMode) String() string {
	switch m {
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	default:
		return "public"
	}
}

func ParseAccessMode(s string) (AccessMode, bool) {
	switch s {
	case "public":
		return AccessPublic, true
	case "protected":
		return AccessProtected, true
	case "private":
		return AccessPrivate, true
	}
	return AccessPublic, false
}

// Channel is the durable identity and settings of a chat channel.
// Membership, role sets and ban/mute sets live in the core registry.
type Channel struct {
	ID           ChannelID  `json:"id"`
	Name         string     `json:"name"`
	Access       AccessMode `json:"access"`
	PasswordHash string     `json:"-"`
	Capacity     int        `json:"capacity"`
}

// NewChannel validates settings and assigns a fresh id.
func NewChannel(name string, access AccessMode, passwordHash string, capacity int) (*Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrChannelNameEmpty
	}
	if len(name) > MaxChannelNameLen {
		return nil, ErrChannelNameTooLong
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity < 1 || capacity > MaxCapacity {
		return nil, ErrBadCapacity
	}
	if access == AccessProtected && passwordHash == "" {
		return nil, ErrPasswordRequired
	}
	return &Channel{
		ID:           ChannelID(uuid.NewString()),
		Name:         name,
		Access:       access,
		PasswordHash: passwordHash,
		Capacity:     capacity,
	}, nil
}
