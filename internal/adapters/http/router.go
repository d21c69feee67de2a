package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dkeye/Banter/internal/adapters/ws"
	"github.com/dkeye/Banter/internal/app"
	"github.com/dkeye/Banter/internal/auth"
	"github.com/dkeye/Banter/internal/config"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/metrics"
)

func SetupRouter(cfg *config.Config, orch *app.Orchestrator, hub *ws.Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(RateLimit(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewHandler(orch, hub, cfg)
	api := r.Group("/api/v1")

	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.POST("/auth/refresh", h.refresh)

	authed := api.Group("")
	authed.Use(auth.Middleware(cfg.Secret))

	authed.GET("/channels", h.listChannels)
	authed.POST("/channels", h.createChannel)
	authed.DELETE("/channels/:id", h.deleteChannel)
	authed.POST("/channels/:id/join", h.joinChannel)
	authed.POST("/channels/leave", h.leaveChannel)
	authed.PATCH("/channels/:id/access", h.updateAccess)
	authed.PATCH("/channels/:id/password", h.updatePassword)
	authed.POST("/channels/:id/transfer", h.transferOwnership)

	authed.POST("/channels/:id/invites", h.invite)
	authed.GET("/invites", h.listInvites)
	authed.POST("/invites/:id/accept", h.acceptInvite)
	authed.POST("/invites/:id/reject", h.rejectInvite)

	authed.POST("/channels/:id/promote", h.moderate(func(c *gin.Context, t domain.UserID) error {
		return orch.Promote(c.Request.Context(), auth.UserID(c), channelParam(c), t)
	}))
	authed.POST("/channels/:id/demote", h.moderate(func(c *gin.Context, t domain.UserID) error {
		return orch.Demote(c.Request.Context(), auth.UserID(c), channelParam(c), t)
	}))
	authed.POST("/channels/:id/kick", h.moderate(func(c *gin.Context, t domain.UserID) error {
		return orch.Kick(c.Request.Context(), auth.UserID(c), channelParam(c), t)
	}))
	authed.POST("/channels/:id/ban", h.moderate(func(c *gin.Context, t domain.UserID) error {
		return orch.Ban(c.Request.Context(), auth.UserID(c), channelParam(c), t)
	}))
	authed.POST("/channels/:id/unban", h.moderate(func(c *gin.Context, t domain.UserID) error {
		return orch.Unban(c.Request.Context(), auth.UserID(c), channelParam(c), t)
	}))
	authed.POST("/channels/:id/mute", h.moderate(func(c *gin.Context, t domain.UserID) error {
		return orch.Mute(c.Request.Context(), auth.UserID(c), channelParam(c), t)
	}))
	authed.POST("/channels/:id/unmute", h.moderate(func(c *gin.Context, t domain.UserID) error {
		return orch.Unmute(c.Request.Context(), auth.UserID(c), channelParam(c), t)
	}))

	authed.GET("/channels/:id/messages", h.history)
	authed.POST("/messages", h.sendMessage)

	authed.POST("/blocks/:user_id", h.block)
	authed.DELETE("/blocks/:user_id", h.unblock)

	r.GET("/ws", ws.Serve(hub, orch, cfg.Secret))

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
