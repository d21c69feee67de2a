package app

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/errs"
	"github.com/dkeye/Banter/internal/metrics"
	"github.com/dkeye/Banter/internal/store"
)

const maxMessageLen = 4096

// MessageDTO is the history shape handed to the transport layer.
type MessageDTO struct {
	ID        uint64           `json:"id"`
	ChannelID domain.ChannelID `json:"channel_id"`
	UserID    domain.UserID    `json:"user_id"`
	Nickname  string           `json:"nickname"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
}

// SendMessage persists a message and broadcasts it post-commit. Muted
// members are rejected before any durable write; receivers who blocked
// the sender are skipped by the notifier.
func (o *Orchestrator) SendMessage(ctx context.Context, userID domain.UserID, content string) (*MessageDTO, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxMessageLen {
		return nil, errs.InvalidState("message empty or too long")
	}
	user, ok := o.Users.Find(userID)
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	if user.CurrentChannel == "" {
		return nil, errs.ErrNotInChannel
	}
	if user.Muted {
		return nil, errs.ErrMuted
	}
	chID := user.CurrentChannel

	var dto *MessageDTO
	err := o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		row, err := store.CreateMessage(tx, chID, userID, content)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "create message", err)
		}
		dto = &MessageDTO{
			ID:        row.ID,
			ChannelID: chID,
			UserID:    userID,
			Nickname:  user.User.Nickname,
			Content:   content,
			CreatedAt: row.CreatedAt,
		}
		post.Defer(func() {
			metrics.MessagesTotal.Inc()
			evt := event("message", chID)
			evt.UserID = userID
			evt.Nickname = user.User.Nickname
			evt.MessageID = dto.ID
			evt.Content = content
			o.Notifier.Publish(chID, userID, evt)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// History pages through a channel's persisted messages, oldest first.
// Only members may read.
func (o *Orchestrator) History(userID domain.UserID, chID domain.ChannelID, beforeID uint64, limit int) ([]MessageDTO, error) {
	snap, ok := o.Channels.FindByID(chID)
	if !ok {
		return nil, errs.ErrChannelNotFound
	}
	if !snap.IsMember(userID) {
		return nil, errs.ErrNotAMember
	}
	rows, err := o.Store.Messages(chID, beforeID, limit)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list messages", err)
	}
	out := make([]MessageDTO, 0, len(rows))
	for _, m := range rows {
		nickname := ""
		if u, ok := o.Users.Find(domain.UserID(m.UserID)); ok {
			nickname = u.User.Nickname
		}
		out = append(out, MessageDTO{
			ID:        m.ID,
			ChannelID: chID,
			UserID:    domain.UserID(m.UserID),
			Nickname:  nickname,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}
