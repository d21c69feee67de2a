package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dkeye/Banter/internal/adapters/ws"
	"github.com/dkeye/Banter/internal/app"
	"github.com/dkeye/Banter/internal/auth"
	"github.com/dkeye/Banter/internal/config"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/errs"
)

// Handler aggregates the HTTP surface; every mutation goes through the
// orchestrator so the commit-then-apply ordering holds for REST too.
type Handler struct {
	orch *app.Orchestrator
	hub  *ws.Hub
	cfg  *config.Config
}

func NewHandler(orch *app.Orchestrator, hub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{orch: orch, hub: hub, cfg: cfg}
}

// statusOf maps the engine taxonomy onto HTTP.
func statusOf(err error) int {
	switch errs.CodeOf(err) {
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeForbidden:
		return http.StatusForbidden
	case errs.CodeConflict:
		return http.StatusConflict
	case errs.CodeInvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Str("module", "adapters.http").Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errs.CodeOf(err)})
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		Nickname string `json:"nickname"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(req.Password) < 4 || len(req.Password) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
		return
	}
	user, err := h.orch.Register(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "nickname": user.Nickname})
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Nickname string `json:"nickname"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Nickname == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	row, err := h.orch.Store.UserByNickname(h.orch.Store.DB, strings.TrimSpace(req.Nickname))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		fail(c, errs.Wrap(errs.CodeInternal, "login query", err))
		return
	}
	if !auth.VerifyPassword(row.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	userID := domain.UserID(row.ID)
	at, err := auth.GenerateAccessToken(userID, h.cfg.Secret, h.cfg.AccessTokenTTLMinutes)
	if err != nil {
		fail(c, errs.Wrap(errs.CodeInternal, "sign access token", err))
		return
	}
	rt, err := auth.GenerateRefreshToken()
	if err != nil {
		fail(c, errs.Wrap(errs.CodeInternal, "generate refresh token", err))
		return
	}
	exp := time.Now().Add(time.Duration(h.cfg.RefreshTokenTTLDays) * 24 * time.Hour)
	if err := auth.SaveRefreshToken(h.orch.Store.DB, userID, rt, exp); err != nil {
		fail(c, errs.Wrap(errs.CodeInternal, "save refresh token", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  at,
		"refresh_token": rt,
		"user":          gin.H{"id": row.ID, "nickname": row.Nickname},
	})
}

func (h *Handler) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	var accessToken, refreshToken string
	err := h.orch.Store.Txn(c.Request.Context(), func(tx *gorm.DB) error {
		rec, err := auth.ValidateRefreshToken(tx, req.RefreshToken)
		if err != nil {
			return err
		}
		if err := auth.RevokeRefreshToken(tx, req.RefreshToken); err != nil {
			return err
		}
		at, err := auth.GenerateAccessToken(domain.UserID(rec.UserID), h.cfg.Secret, h.cfg.AccessTokenTTLMinutes)
		if err != nil {
			return err
		}
		newRT, err := auth.GenerateRefreshToken()
		if err != nil {
			return err
		}
		exp := time.Now().Add(time.Duration(h.cfg.RefreshTokenTTLDays) * 24 * time.Hour)
		if err := auth.SaveRefreshToken(tx, domain.UserID(rec.UserID), newRT, exp); err != nil {
			return err
		}
		accessToken, refreshToken = at, newRT
		return nil
	})
	if err != nil {
		log.Warn().Str("module", "adapters.http").Err(err).Msg("refresh token rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": accessToken, "refresh_token": refreshToken})
}

func (h *Handler) listChannels(c *gin.Context) {
	snaps := h.orch.ListChannels()
	type channelDTO struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Access   string `json:"access"`
		Members  int    `json:"members"`
		Capacity int    `json:"capacity"`
		Online   int    `json:"online"`
	}
	out := make([]channelDTO, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, channelDTO{
			ID:       string(s.Channel.ID),
			Name:     s.Channel.Name,
			Access:   s.Channel.Access.String(),
			Members:  len(s.Members),
			Capacity: s.Channel.Capacity,
			Online:   h.hub.Online(s.Channel.ID),
		})
	}
	c.JSON(http.StatusOK, gin.H{"channels": out})
}

func (h *Handler) createChannel(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Access   string `json:"access"`
		Password string `json:"password"`
		Capacity int    `json:"capacity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	access := domain.AccessPublic
	if req.Access != "" {
		var ok bool
		if access, ok = domain.ParseAccessMode(req.Access); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid access mode"})
			return
		}
	}
	ch, err := h.orch.CreateChannel(c.Request.Context(), auth.UserID(c), req.Name, access, req.Password, req.Capacity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": ch.ID, "name": ch.Name, "access": ch.Access.String(), "capacity": ch.Capacity})
}

func (h *Handler) deleteChannel(c *gin.Context) {
	if err := h.orch.DeleteChannel(c.Request.Context(), auth.UserID(c), channelParam(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) joinChannel(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := h.orch.Join(c.Request.Context(), auth.UserID(c), channelParam(c), req.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

func (h *Handler) leaveChannel(c *gin.Context) {
	if err := h.orch.Leave(c.Request.Context(), auth.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (h *Handler) updateAccess(c *gin.Context) {
	var req struct {
		Access   string `json:"access"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	mode, ok := domain.ParseAccessMode(req.Access)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid access mode"})
		return
	}
	if err := h.orch.UpdateAccessMode(c.Request.Context(), auth.UserID(c), channelParam(c), mode, req.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) updatePassword(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.orch.UpdatePassword(c.Request.Context(), auth.UserID(c), channelParam(c), req.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) transferOwnership(c *gin.Context) {
	target, ok := targetFrom(c)
	if !ok {
		return
	}
	if err := h.orch.TransferOwnership(c.Request.Context(), auth.UserID(c), channelParam(c), target); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "transferred"})
}

func (h *Handler) invite(c *gin.Context) {
	target, ok := targetFrom(c)
	if !ok {
		return
	}
	if err := h.orch.InviteUser(c.Request.Context(), auth.UserID(c), channelParam(c), target); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "invited"})
}

func (h *Handler) listInvites(c *gin.Context) {
	invites, err := h.orch.Invites(auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

func (h *Handler) acceptInvite(c *gin.Context) {
	if err := h.orch.AcceptInvite(c.Request.Context(), auth.UserID(c), channelParam(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

func (h *Handler) rejectInvite(c *gin.Context) {
	if err := h.orch.RejectInvite(c.Request.Context(), auth.UserID(c), channelParam(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// moderate builds one handler per moderation verb; they share shape.
func (h *Handler) moderate(action func(c *gin.Context, target domain.UserID) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, ok := targetFrom(c)
		if !ok {
			return
		}
		if err := action(c, target); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (h *Handler) history(c *gin.Context) {
	beforeID, _ := strconv.ParseUint(c.Query("before_id"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	msgs, err := h.orch.History(auth.UserID(c), channelParam(c), beforeID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	msg, err := h.orch.SendMessage(c.Request.Context(), auth.UserID(c), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) block(c *gin.Context) {
	target, ok := userParam(c)
	if !ok {
		return
	}
	if err := h.orch.Block(c.Request.Context(), auth.UserID(c), target); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "blocked"})
}

func (h *Handler) unblock(c *gin.Context) {
	target, ok := userParam(c)
	if !ok {
		return
	}
	if err := h.orch.Unblock(c.Request.Context(), auth.UserID(c), target); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unblocked"})
}

func channelParam(c *gin.Context) domain.ChannelID {
	return domain.ChannelID(c.Param("id"))
}

func userParam(c *gin.Context) (domain.UserID, bool) {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return domain.UserID(id), true
}

func targetFrom(c *gin.Context) (domain.UserID, bool) {
	var req struct {
		TargetID uint64 `json:"target_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return 0, false
	}
	return domain.UserID(req.TargetID), true
}
