package store

import "time"

// Durable rows. The live registries are hydrated from these at boot and
// kept in sync post-commit; the columns here are the source of truth
// across restarts only.

type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Nickname     string    `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Channel struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Name         string    `gorm:"uniqueIndex;size:128;not null"`
	Access       string    `gorm:"size:16;not null;default:'public'"`
	PasswordHash string
	Capacity     int       `gorm:"not null"`
	OwnerID      uint64    `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChannelMember is one membership row with its channel-scoped role.
type ChannelMember struct {
	ChannelID string    `gorm:"primaryKey;size:36;autoIncrement:false"`
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false"`
	Role      string    `gorm:"size:16;not null;default:'normal'"`
	JoinedAt  time.Time
}

// ChannelBan persists a ban independently of membership; pre-emptive bans
// have no matching ChannelMember row.
type ChannelBan struct {
	ChannelID      string    `gorm:"primaryKey;size:36;autoIncrement:false"`
	UserID         uint64    `gorm:"primaryKey;autoIncrement:false"`
	BannedByUserID uint64    `gorm:"not null;index"`
	CreatedAt      time.Time
}

// ChannelMute persists the channel's muted set, including residual
// entries for users who left voluntarily.
type ChannelMute struct {
	ChannelID     string    `gorm:"primaryKey;size:36;autoIncrement:false"`
	UserID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	MutedByUserID uint64    `gorm:"not null"`
	CreatedAt     time.Time
}

type UserBlock struct {
	UserID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	BlockedUserID uint64    `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt     time.Time
}

type Message struct {
	ID        uint64    `gorm:"primaryKey"`
	ChannelID string    `gorm:"index:idx_msg_channel;size:36;not null"`
	UserID    uint64    `gorm:"index;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time
}

type RefreshToken struct {
	ID        uint64     `gorm:"primaryKey"`
	UserID    uint64     `gorm:"index;not null"`
	Token     string     `gorm:"uniqueIndex;size:128;not null"`
	ExpiresAt time.Time  `gorm:"index;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
