package http

import (
	"context"

	"github.com/dkeye/VoiceClub/internal/adapters/signal"
	"github.com/dkeye/VoiceClub/internal/app/orch"
	"github.com/dkeye/VoiceClub/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SetupRouter wires the HTTP surface. ctx bounds the lifetime of websocket
// connections, which outlive the upgrade request.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("VoiceClubSessions", store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	h := &handlers{ctx: ctx, orch: o, signal: ctl}
	gate := NewAdminGate(cfg.Admin)
	admin := gate.Middleware()

	r.GET("/healthz", h.health)

	api := r.Group("/api")

	live := api.Group("/live-sessions")
	live.GET("/sessions", h.listSessions)
	live.GET("/sessions/:id", h.getSession)
	live.POST("/sessions", admin, h.createSession)
	live.POST("/sessions/:id/start", admin, h.startSession)
	live.POST("/sessions/:id/end", admin, h.endSession)
	live.DELETE("/sessions/:id", admin, h.deleteSession)

	live.GET("/room/:id/state", h.roomState)
	live.POST("/room/:id/promote", admin, h.promote)
	live.POST("/room/:id/demote", admin, h.demote)

	live.POST("/livekit/token", h.mediaToken)
	live.GET("/ws/:session_id", h.connect)

	adm := api.Group("/admin")
	adm.GET("/check-role/:wallet", gate.checkRole)
	adm.POST("/session", admin, gate.bindWallet)
	adm.DELETE("/session", gate.clearWallet)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
