package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dkeye/Banter/internal/auth"
	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/errs"
	"github.com/dkeye/Banter/internal/store"
)

// Register creates an account and folds it into the user registry
// post-commit.
func (o *Orchestrator) Register(ctx context.Context, nickname, password string) (*domain.User, error) {
	if _, err := domain.NewUser(0, nickname); err != nil {
		return nil, errs.Wrap(errs.CodeInvalidState, "invalid nickname", err)
	}
	if _, taken := o.Users.FindByNickname(nickname); taken {
		return nil, errs.ErrNicknameTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "hash password", err)
	}

	var created *domain.User
	err = o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		row, err := o.Store.CreateUser(tx, nickname, hash)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "create user", err)
		}
		created = &domain.User{ID: domain.UserID(row.ID), Nickname: row.Nickname}
		post.Defer(func() {
			o.Users.Create(created)
			log.Info().Str("module", "app.users").Uint64("user", uint64(created.ID)).Str("nickname", created.Nickname).Msg("user registered")
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Block hides target's messages from viewer. Membership is unaffected.
func (o *Orchestrator) Block(ctx context.Context, viewerID, targetID domain.UserID) error {
	if _, ok := o.Users.Find(targetID); !ok {
		return errs.ErrUserNotFound
	}
	if o.Users.HasBlocked(viewerID, targetID) {
		return nil
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.AddBlock(tx, viewerID, targetID); err != nil {
			return errs.Wrap(errs.CodeInternal, "add block", err)
		}
		post.Defer(func() { o.Users.Block(viewerID, targetID) })
		return nil
	})
}

func (o *Orchestrator) Unblock(ctx context.Context, viewerID, targetID domain.UserID) error {
	if !o.Users.HasBlocked(viewerID, targetID) {
		return nil
	}
	return o.txn(ctx, func(tx *gorm.DB, post *core.Deferred) error {
		if err := store.RemoveBlock(tx, viewerID, targetID); err != nil {
			return errs.Wrap(errs.CodeInternal, "remove block", err)
		}
		post.Defer(func() { o.Users.Unblock(viewerID, targetID) })
		return nil
	})
}
