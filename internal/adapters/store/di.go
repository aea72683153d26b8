package store

import (
	"context"
	"time"

	"github.com/dkeye/VoiceClub/internal/config"
	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
)

const databaseInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (core.SessionStore, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return Open(cfg.Store)
	})
}

// Open selects the backend named by cfg.Driver.
func Open(cfg config.StoreConfig) (core.SessionStore, error) {
	log.Info().Str("module", "adapters.store").Str("driver", cfg.Driver).Msg("opening session store")
	switch cfg.Driver {
	case "badger":
		s, err := OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()
		s, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return NewMemoryStore(), nil
	}
}
