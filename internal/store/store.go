// Package store owns the durable side of the engine: gorm models, write
// helpers and the boot-time hydration of the live registries. Every write
// helper takes the active *gorm.DB so it composes with a surrounding
// transaction.
package store

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dkeye/Banter/internal/domain"
)

type Store struct {
	DB *gorm.DB
}

// Connect opens the postgres pool with a short retry loop so the server
// survives a database container that is still warming up.
func Connect(dsn string) (*Store, error) {
	var gdb *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err == nil {
			sqlDB, err2 := gdb.DB()
			if err2 == nil {
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetMaxOpenConns(20)
				sqlDB.SetConnMaxLifetime(time.Hour)
				return &Store{DB: gdb}, nil
			}
			err = err2
		}
		time.Sleep(time.Duration(500+i*200) * time.Millisecond)
	}
	return nil, err
}

func (s *Store) Migrate() error {
	return s.DB.AutoMigrate(
		&User{}, &Channel{}, &ChannelMember{}, &ChannelBan{},
		&ChannelMute{}, &UserBlock{}, &Message{}, &RefreshToken{},
	)
}

// Txn runs fn inside a single transaction bound to ctx. Context
// cancellation aborts the transaction, so a cancelled request rolls back
// exactly like an error.
func (s *Store) Txn(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.DB.WithContext(ctx).Transaction(fn)
}

func (s *Store) CreateUser(tx *gorm.DB, nickname, passwordHash string) (*User, error) {
	u := User{Nickname: nickname, PasswordHash: passwordHash}
	if err := tx.Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UserByNickname(tx *gorm.DB, nickname string) (*User, error) {
	var u User
	if err := tx.Where("nickname = ?", nickname).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func CreateChannel(tx *gorm.DB, ch *domain.Channel, ownerID domain.UserID) error {
	row := Channel{
		ID:           string(ch.ID),
		Name:         ch.Name,
		Access:       ch.Access.String(),
		PasswordHash: ch.PasswordHash,
		Capacity:     ch.Capacity,
		OwnerID:      uint64(ownerID),
	}
	if err := tx.Create(&row).Error; err != nil {
		return err
	}
	return AddMember(tx, ch.ID, ownerID, domain.RoleOwner)
}

func DeleteChannel(tx *gorm.DB, id domain.ChannelID) error {
	cid := string(id)
	for _, m := range []interface{}{&ChannelMember{}, &ChannelBan{}, &ChannelMute{}, &Message{}} {
		if err := tx.Where("channel_id = ?", cid).Delete(m).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&Channel{}, "id = ?", cid).Error
}

func UpdateChannelAccess(tx *gorm.DB, id domain.ChannelID, access domain.AccessMode, passwordHash string) error {
	return tx.Model(&Channel{}).Where("id = ?", string(id)).
		Updates(map[string]interface{}{"access": access.String(), "password_hash": passwordHash}).Error
}

func UpdateChannelPassword(tx *gorm.DB, id domain.ChannelID, passwordHash string) error {
	return tx.Model(&Channel{}).Where("id = ?", string(id)).Update("password_hash", passwordHash).Error
}

func UpdateChannelOwner(tx *gorm.DB, id domain.ChannelID, ownerID domain.UserID) error {
	return tx.Model(&Channel{}).Where("id = ?", string(id)).Update("owner_id", uint64(ownerID)).Error
}

func AddMember(tx *gorm.DB, ch domain.ChannelID, userID domain.UserID, role domain.Role) error {
	row := ChannelMember{ChannelID: string(ch), UserID: uint64(userID), Role: role.String(), JoinedAt: time.Now()}
	return tx.Create(&row).Error
}

func RemoveMember(tx *gorm.DB, ch domain.ChannelID, userID domain.UserID) error {
	return tx.Where("channel_id = ? AND user_id = ?", string(ch), uint64(userID)).Delete(&ChannelMember{}).Error
}

func SetMemberRole(tx *gorm.DB, ch domain.ChannelID, userID domain.UserID, role domain.Role) error {
	return tx.Model(&ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", string(ch), uint64(userID)).
		Update("role", role.String()).Error
}

func AddBan(tx *gorm.DB, ch domain.ChannelID, userID, bannedBy domain.UserID) error {
	row := ChannelBan{ChannelID: string(ch), UserID: uint64(userID), BannedByUserID: uint64(bannedBy)}
	return tx.Create(&row).Error
}

func RemoveBan(tx *gorm.DB, ch domain.ChannelID, userID domain.UserID) error {
	return tx.Where("channel_id = ? AND user_id = ?", string(ch), uint64(userID)).Delete(&ChannelBan{}).Error
}

func AddMute(tx *gorm.DB, ch domain.ChannelID, userID, mutedBy domain.UserID) error {
	row := ChannelMute{ChannelID: string(ch), UserID: uint64(userID), MutedByUserID: uint64(mutedBy)}
	return tx.Create(&row).Error
}

func RemoveMute(tx *gorm.DB, ch domain.ChannelID, userID domain.UserID) error {
	return tx.Where("channel_id = ? AND user_id = ?", string(ch), uint64(userID)).Delete(&ChannelMute{}).Error
}

func AddBlock(tx *gorm.DB, userID, blocked domain.UserID) error {
	row := UserBlock{UserID: uint64(userID), BlockedUserID: uint64(blocked)}
	return tx.Create(&row).Error
}

func RemoveBlock(tx *gorm.DB, userID, blocked domain.UserID) error {
	return tx.Where("user_id = ? AND blocked_user_id = ?", uint64(userID), uint64(blocked)).Delete(&UserBlock{}).Error
}

func CreateMessage(tx *gorm.DB, ch domain.ChannelID, userID domain.UserID, content string) (*Message, error) {
	row := Message{ChannelID: string(ch), UserID: uint64(userID), Content: content}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Messages returns up to limit rows before beforeID (0 = newest), oldest
// first, for history pagination.
func (s *Store) Messages(ch domain.ChannelID, beforeID uint64, limit int) ([]Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.DB.Where("channel_id = ?", string(ch))
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var msgs []Message
	if err := q.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
