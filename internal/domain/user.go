// Package domain contains entities without behavior beyond construction
// and simple validation, just meta-data.
package domain

import (
	"errors"
	"strings"
)

const (
	MaxNicknameLen = 36
	MinNicknameLen = 2
)

var (
	ErrNicknameEmpty    = errors.New("nickname empty")
	ErrNicknameTooLong  = errors.New("nickname too long")
	ErrNicknameTooShort = errors.New("nickname too short")
)

// UserID is the opaque numeric identity assigned by storage.
type UserID uint64

// User is the durable identity of an account. Live channel-scoped state
// (role, mute, presence) lives in the core registries, not here.
type User struct {
	ID       UserID `json:"id"`
	Nickname string `json:"nickname"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID, nickname string) (*User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, ErrNicknameEmpty
	}
	if len(nickname) < MinNicknameLen {
		return nil, ErrNicknameTooShort
	}
	if len(nickname) > MaxNicknameLen {
		return nil, ErrNicknameTooLong
	}
	return &User{ID: id, Nickname: nickname}, nil
}
