package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/samber/do/v2"

	router "github.com/dkeye/VoiceClub/internal/adapters/http"
	"github.com/dkeye/VoiceClub/internal/adapters/media"
	"github.com/dkeye/VoiceClub/internal/adapters/signal"
	"github.com/dkeye/VoiceClub/internal/adapters/store"
	"github.com/dkeye/VoiceClub/internal/app"
	"github.com/dkeye/VoiceClub/internal/app/orch"
	"github.com/dkeye/VoiceClub/internal/config"
	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/moderation"
)

// setupDI registers every component. ctx bounds websocket lifetimes.
func setupDI(ctx context.Context, cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	store.RegisterDI(injector)

	do.Provide(injector, func(i do.Injector) (*app.Registry, error) {
		s := do.MustInvoke[core.SessionStore](i)
		return app.NewRegistry(s, cfg.Stream.RTMPURL), nil
	})
	do.Provide(injector, func(i do.Injector) (core.RoomManager, error) {
		return app.NewRoomManager(), nil
	})
	do.Provide(injector, func(i do.Injector) (core.MediaTokenIssuer, error) {
		return media.NewIssuer(cfg.Media), nil
	})
	do.Provide(injector, func(i do.Injector) (core.Censor, error) {
		f, err := moderation.NewFilter(cfg.Chat.CensoredWords, []rune(cfg.Chat.CensorChar)[0])
		if err != nil {
			return nil, err
		}
		return f, nil
	})
	do.Provide(injector, func(i do.Injector) (*app.RateLimiter, error) {
		return app.NewRateLimiter(cfg.Chat.RateLimit, cfg.Chat.RateInterval), nil
	})
	do.Provide(injector, func(i do.Injector) (*orch.Orchestrator, error) {
		return &orch.Orchestrator{
			Registry: do.MustInvoke[*app.Registry](i),
			Rooms:    do.MustInvoke[core.RoomManager](i),
			Policy:   app.SimplePolicy{},
			Tokens:   do.MustInvoke[core.MediaTokenIssuer](i),
			Censor:   do.MustInvoke[core.Censor](i),
			Limiter:  do.MustInvoke[*app.RateLimiter](i),
			Opts: orch.Options{
				MaxChatLength: cfg.Chat.MaxLength,
				IdleTimeout:   cfg.WS.IdleTimeout,
				SweepInterval: cfg.WS.SweepInterval,
				EndTimeout:    cfg.WS.EndTimeout,
			},
		}, nil
	})
	do.Provide(injector, func(i do.Injector) (*signal.SignalWSController, error) {
		return signal.NewSignalWSController(do.MustInvoke[*orch.Orchestrator](i), signal.Options{
			ReadLimit:  cfg.WS.ReadLimit,
			SendBuffer: cfg.WS.SendBuffer,
			WriteWait:  cfg.WS.WriteWait,
			PingPeriod: cfg.WS.PingPeriod,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (*gin.Engine, error) {
		return router.SetupRouter(ctx, cfg, do.MustInvoke[*orch.Orchestrator](i), do.MustInvoke[*signal.SignalWSController](i)), nil
	})

	return injector
}
