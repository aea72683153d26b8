package orch

import (
	"context"
	"time"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/rs/zerolog/log"
)

// RunLiveness sweeps idle connections until ctx is done.
func (o *Orchestrator) RunLiveness(ctx context.Context) error {
	interval := o.Opts.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Str("module", "orch.liveness").Dur("interval", interval).Dur("idle_timeout", o.Opts.IdleTimeout).Msg("liveness monitor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "orch.liveness").Msg("liveness monitor stopped")
			return nil
		case <-ticker.C:
			o.SweepIdle(o.clock())
		}
	}
}

// SweepIdle evicts every connection silent since before now-IdleTimeout and
// returns how many were evicted.
func (o *Orchestrator) SweepIdle(now time.Time) int {
	if o.Opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-o.Opts.IdleTimeout)
	evicted := 0
	for _, room := range o.Rooms.Rooms() {
		for _, ms := range room.Members() {
			if !ms.LastSeen().Before(cutoff) {
				continue
			}
			if o.evict(room.SessionID(), ms.Meta().User.ID, ms.Signal(), core.CloseIdle) {
				evicted++
			}
		}
	}
	if evicted > 0 {
		log.Info().Str("module", "orch.liveness").Int("evicted", evicted).Msg("idle connections evicted")
	}
	return evicted
}
