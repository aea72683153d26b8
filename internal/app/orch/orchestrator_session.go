package orch

import (
	"context"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) CreateSession(ctx context.Context, title, description string) (*domain.Session, error) {
	return o.Registry.Create(ctx, title, description)
}

func (o *Orchestrator) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return o.Registry.Get(ctx, id)
}

func (o *Orchestrator) ListSessions(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	return o.Registry.List(ctx, status)
}

func (o *Orchestrator) StartSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return o.Registry.Start(ctx, id)
}

// EndSession moves the session to ended, tells every participant, closes
// every connection and returns once their writers have drained.
func (o *Orchestrator) EndSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	sess, err := o.Registry.End(ctx, id)
	if err != nil {
		return nil, err
	}
	conns := o.teardown(id, core.SessionEndedEvent{SessionID: id}, core.CloseSessionEnded)
	o.awaitClosed(ctx, conns)
	log.Info().Str("module", "orch").Str("session", string(id)).Int("participants", len(conns)).Msg("session ended")
	return sess, nil
}

// DeleteSession refuses a live session and closes whoever is still
// connected to a scheduled or ended one.
func (o *Orchestrator) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if err := o.Registry.Delete(ctx, id); err != nil {
		return err
	}
	o.awaitClosed(ctx, o.teardown(id, nil, core.CloseSessionDeleted))
	return nil
}

// RoomState returns the live snapshot, or an empty one for a session nobody
// is connected to.
func (o *Orchestrator) RoomState(ctx context.Context, id domain.SessionID) (core.Snapshot, error) {
	if _, err := o.Registry.Get(ctx, id); err != nil {
		return core.Snapshot{}, err
	}
	room, ok := o.Rooms.Get(id)
	if !ok {
		return core.EmptySnapshot(id), nil
	}
	return room.Snapshot(), nil
}

func (o *Orchestrator) Promote(ctx context.Context, id domain.SessionID, user domain.UserID) (core.Snapshot, error) {
	return o.changeRole(ctx, id, user, domain.RoleSpeaker)
}

func (o *Orchestrator) Demote(ctx context.Context, id domain.SessionID, user domain.UserID) (core.Snapshot, error) {
	return o.changeRole(ctx, id, user, domain.RoleListener)
}

func (o *Orchestrator) changeRole(ctx context.Context, id domain.SessionID, user domain.UserID, role domain.Role) (core.Snapshot, error) {
	sess, err := o.Registry.Get(ctx, id)
	if err != nil {
		return core.Snapshot{}, err
	}
	if !sess.Status.AcceptsConnections() {
		return core.Snapshot{}, domain.ErrSessionEnded
	}
	room, ok := o.Rooms.Get(id)
	if !ok {
		return core.Snapshot{}, domain.ErrUnknownParticipant
	}
	var snap core.Snapshot
	res, err := room.Update(func(tx *core.Tx) error {
		var err error
		if role == domain.RoleSpeaker {
			err = tx.Promote(user)
		} else {
			err = tx.Demote(user)
		}
		if err != nil {
			return err
		}
		tx.Broadcast(core.RoleChangedEvent{UserID: user, Role: role, HandRaised: tx.HandQueue()})
		snap = tx.Snapshot()
		return nil
	})
	o.handleDropped(room, res)
	if err != nil {
		return core.Snapshot{}, err
	}
	log.Info().Str("module", "orch").Str("session", string(id)).Str("user", string(user)).Str("role", string(role)).Msg("role changed")
	return snap, nil
}
