package orch

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const joinAttempts = 3

var errRoomRecycled = errors.New("room recycled")

type JoinParams struct {
	SessionID domain.SessionID
	UserID    string
	Username  string
	Role      string
	Conn      core.SignalConnection
}

// Join registers the connection, sends the snapshot to the newcomer and
// announces it to everybody else. The session status is read after the room
// is resolved and outside its lock. EndSession closes the room only after the
// store says ended, so a stale read lands on a closed room and retries.
func (o *Orchestrator) Join(ctx context.Context, p JoinParams) (*domain.Participant, error) {
	user, err := domain.NewUser(p.UserID, p.Username)
	if err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(p.Role)
	if err != nil {
		return nil, err
	}

	for range joinAttempts {
		room := o.Rooms.GetOrCreate(p.SessionID)
		sess, err := o.Registry.Get(ctx, p.SessionID)
		if err == nil && !sess.Status.AcceptsConnections() {
			err = domain.ErrSessionEnded
		}
		if err != nil {
			o.dropIfIdle(p.SessionID)
			log.Warn().Err(err).Str("module", "orch").Str("session", string(p.SessionID)).Str("user", string(user.ID)).Msg("join refused")
			return nil, err
		}
		var meta *domain.Participant
		res, err := room.Update(func(tx *core.Tx) error {
			if tx.Closed() {
				return errRoomRecycled
			}
			meta = domain.NewParticipant(sess.ID, *user, role, o.clock())
			old, err := tx.Register(core.NewMemberSession(meta, p.Conn))
			if err != nil {
				return err
			}
			if old != nil && old.Signal() != p.Conn {
				old.Signal().Close(core.CloseReplaced)
			}
			_ = tx.Send(user.ID, core.RoomStateEvent{Snapshot: tx.Snapshot()})
			tx.Broadcast(core.UserJoinedEvent{UserID: user.ID, Username: user.Username, Role: role}, user.ID)
			return nil
		})
		o.handleDropped(room, res)
		if errors.Is(err, errRoomRecycled) {
			continue
		}
		if err != nil {
			o.dropIfIdle(p.SessionID)
			log.Warn().Err(err).Str("module", "orch").Str("session", string(p.SessionID)).Str("user", string(user.ID)).Msg("join refused")
			return nil, err
		}
		log.Info().Str("module", "orch").Str("session", string(p.SessionID)).Str("user", string(user.ID)).
			Str("role", string(role)).Msg("joined")
		return meta, nil
	}
	return nil, domain.ErrRoomClosed
}

// Leave handles a closed transport. Stale connections are ignored.
func (o *Orchestrator) Leave(id domain.SessionID, user domain.UserID, conn core.SignalConnection) {
	o.evict(id, user, conn, core.CloseNormal)
}

// Touch records inbound activity for the liveness monitor.
func (o *Orchestrator) Touch(id domain.SessionID, user domain.UserID, conn core.SignalConnection) {
	room, ok := o.Rooms.Get(id)
	if !ok {
		return
	}
	if ms, ok := room.Member(user); ok && ms.Signal() == conn {
		ms.Touch(o.clock())
	}
}

// HandleCommand applies one inbound command from the user on conn. A sender
// that is not the current participant, or a room that no longer accepts
// commands, gets its connection closed with a reason.
func (o *Orchestrator) HandleCommand(id domain.SessionID, user domain.UserID, conn core.SignalConnection, cmd core.Command) {
	room, ok := o.Rooms.Get(id)
	if !ok {
		conn.Close(core.CloseNotParticipant)
		return
	}
	now := o.clock()
	res, err := room.Update(func(tx *core.Tx) error {
		if tx.Closed() {
			return domain.ErrRoomClosed
		}
		ms, ok := tx.Member(user)
		if !ok || ms.Signal() != conn {
			return domain.ErrNotParticipant
		}
		ms.Touch(now)
		return o.apply(tx, ms, cmd, now)
	})
	o.handleDropped(room, res)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotParticipant):
		log.Warn().Str("module", "orch").Str("session", string(id)).Str("user", string(user)).Str("cmd", cmd.CommandType()).Msg("command from non-participant")
		conn.Close(core.CloseNotParticipant)
	case errors.Is(err, domain.ErrRoomClosed):
		conn.Close(core.CloseInvalidState)
	default:
		log.Error().Err(err).Str("module", "orch").Str("session", string(id)).Str("cmd", cmd.CommandType()).Msg("command failed")
	}
}

func (o *Orchestrator) apply(tx *core.Tx, ms core.MemberSession, cmd core.Command, now time.Time) error {
	meta := ms.Meta()
	u := meta.User.ID
	switch c := cmd.(type) {
	case core.ChatCommand:
		if !o.Limiter.Allow(tx.SessionID(), u) {
			return reply(tx, u, errorEvent(domain.ErrRateLimited))
		}
		text := strings.TrimSpace(c.Message)
		if text == "" {
			return reply(tx, u, core.ErrorEvent{Code: "malformed", Reason: "empty message"})
		}
		if o.Opts.MaxChatLength > 0 && utf8.RuneCountInString(text) > o.Opts.MaxChatLength {
			return reply(tx, u, core.ErrorEvent{Code: "malformed", Reason: "message too long"})
		}
		if o.Censor != nil {
			text = o.Censor.Censor(text)
		}
		tx.Broadcast(core.ChatMessageEvent{Message: core.ChatMessage{
			ID:        uuid.NewString(),
			Message:   text,
			Username:  meta.User.Username,
			UserID:    u,
			Role:      meta.Role,
			Timestamp: now.UTC(),
		}})
	case core.ReactionCommand:
		if !o.Limiter.Allow(tx.SessionID(), u) {
			return reply(tx, u, errorEvent(domain.ErrRateLimited))
		}
		tx.Broadcast(core.ReactionEvent{Emoji: c.Emoji, Username: meta.User.Username, UserID: u})
	case core.HandRaiseCommand:
		switch c.Action {
		case core.HandRaise:
			pos, err := tx.RaiseHand(u)
			if err != nil {
				return reply(tx, u, errorEvent(err))
			}
			log.Debug().Str("module", "orch").Str("session", string(tx.SessionID())).Str("user", string(u)).Int("position", pos).Msg("hand raised")
			tx.Broadcast(core.HandRaisedUpdateEvent{Action: core.HandRaise, UserID: u, HandRaised: tx.HandQueue()})
		case core.HandLower:
			if tx.LowerHand(u) {
				tx.Broadcast(core.HandRaisedUpdateEvent{Action: core.HandLower, UserID: u, HandRaised: tx.HandQueue()})
			}
		}
	case core.PingCommand:
		return reply(tx, u, core.PongEvent{})
	default:
		log.Warn().Str("module", "orch").Str("cmd", cmd.CommandType()).Msg("unhandled command")
	}
	return nil
}

// reply unicasts to the sender. Delivery failures never fail a command;
// an overflowing queue is reported through the publish result.
func reply(tx *core.Tx, user domain.UserID, evt core.Event) error {
	_ = tx.Send(user, evt)
	return nil
}

// errorEvent turns a rejected precondition into a unicast error.
func errorEvent(err error) core.ErrorEvent {
	return core.ErrorEvent{Code: ErrorCode(err), Reason: err.Error()}
}

func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrMalformed):
		return "malformed"
	default:
		return "internal"
	}
}
