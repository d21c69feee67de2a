package store

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/domain"
)

// Load hydrates both registries from the durable rows. Called once at
// boot, before the server accepts requests.
func (s *Store) Load(users *core.UserRegistry, channels *core.ChannelRegistry) error {
	var userRows []User
	if err := s.DB.Find(&userRows).Error; err != nil {
		return err
	}
	for _, row := range userRows {
		users.Create(&domain.User{ID: domain.UserID(row.ID), Nickname: row.Nickname})
	}

	var blockRows []UserBlock
	if err := s.DB.Find(&blockRows).Error; err != nil {
		return err
	}
	for _, row := range blockRows {
		users.Block(domain.UserID(row.UserID), domain.UserID(row.BlockedUserID))
	}

	var channelRows []Channel
	if err := s.DB.Find(&channelRows).Error; err != nil {
		return err
	}
	for _, row := range channelRows {
		access, _ := domain.ParseAccessMode(row.Access)
		ch := &domain.Channel{
			ID:           domain.ChannelID(row.ID),
			Name:         row.Name,
			Access:       access,
			PasswordHash: row.PasswordHash,
			Capacity:     row.Capacity,
		}

		var memberRows []ChannelMember
		if err := s.DB.Where("channel_id = ?", row.ID).Find(&memberRows).Error; err != nil {
			return err
		}
		members := make(map[domain.UserID]domain.Role, len(memberRows))
		for _, m := range memberRows {
			members[domain.UserID(m.UserID)] = domain.ParseRole(m.Role)
		}

		var banRows []ChannelBan
		if err := s.DB.Where("channel_id = ?", row.ID).Find(&banRows).Error; err != nil {
			return err
		}
		banned := make([]domain.UserID, 0, len(banRows))
		for _, b := range banRows {
			banned = append(banned, domain.UserID(b.UserID))
		}

		var muteRows []ChannelMute
		if err := s.DB.Where("channel_id = ?", row.ID).Find(&muteRows).Error; err != nil {
			return err
		}
		muted := make([]domain.UserID, 0, len(muteRows))
		for _, m := range muteRows {
			muted = append(muted, domain.UserID(m.UserID))
		}

		channels.Restore(ch, domain.UserID(row.OwnerID), members, banned, muted)
	}

	log.Info().Str("module", "store").Int("users", len(userRows)).Int("channels", len(channelRows)).Msg("registries hydrated")
	return nil
}
