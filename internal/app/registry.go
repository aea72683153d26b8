package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry owns session metadata and its lifecycle. Every status change is
// a compare-and-transition in the store.
type Registry struct {
	store   core.SessionStore
	rtmpURL string
	now     func() time.Time
}

func NewRegistry(store core.SessionStore, rtmpURL string) *Registry {
	return &Registry{store: store, rtmpURL: strings.TrimRight(rtmpURL, "/"), now: time.Now}
}

func (r *Registry) Create(ctx context.Context, title, description string) (*domain.Session, error) {
	s, err := domain.NewSession(title, description, r.now())
	if err != nil {
		return nil, err
	}
	s.RTMPURL = r.rtmpURL
	if err := r.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Info().Str("module", "app.registry").Str("session", string(s.ID)).Str("title", s.Title).Msg("created session")
	return s, nil
}

func (r *Registry) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return r.store.Get(ctx, id)
}

// List filters by status unless it is empty.
func (r *Registry) List(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	return r.store.List(ctx, status)
}

func (r *Registry) Start(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return r.transition(ctx, id, domain.StatusScheduled, domain.StatusLive)
}

func (r *Registry) End(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return r.transition(ctx, id, domain.StatusLive, domain.StatusEnded)
}

// Delete refuses a live session.
func (r *Registry) Delete(ctx context.Context, id domain.SessionID) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("module", "app.registry").Str("session", string(id)).Msg("deleted session")
	return nil
}

func (r *Registry) transition(ctx context.Context, id domain.SessionID, from, to domain.SessionStatus) (*domain.Session, error) {
	s, err := r.store.UpdateStatus(ctx, id, from, to, r.now())
	if err != nil {
		log.Warn().Err(err).Str("module", "app.registry").Str("session", string(id)).
			Str("from", string(from)).Str("to", string(to)).Msg("transition refused")
		return nil, err
	}
	log.Info().Str("module", "app.registry").Str("session", string(id)).Str("status", string(to)).Msg("session transitioned")
	return s, nil
}
