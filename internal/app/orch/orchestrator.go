package orch

import (
	"context"
	"time"

	"github.com/dkeye/VoiceClub/internal/app"
	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

type Options struct {
	MaxChatLength int
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// EndTimeout bounds how long EndSession waits for writers to drain.
	EndTimeout time.Duration
}

// Orchestrator is the event dispatcher: it validates commands, mutates room
// state and fans events out, and it drives the session lifecycle.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Tokens   core.MediaTokenIssuer
	Censor   core.Censor
	Limiter  *app.RateLimiter
	Opts     Options
	Now      func() time.Time
}

func (o *Orchestrator) clock() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// handleDropped applies the backpressure policy to every member whose queue
// overflowed, including members that overflow while others are evicted.
func (o *Orchestrator) handleDropped(room core.RoomService, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	pending := res.Dropped
	for len(pending) > 0 {
		slow := pending[0]
		pending = pending[1:]
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			u := slow.Meta().User.ID
			log.Warn().Str("module", "orch").Str("session", string(room.SessionID())).Str("user", string(u)).Msg("kicking slow consumer")
			next, _ := o.removeMember(room, u, slow.Signal(), core.CloseSlowConsumer)
			pending = append(pending, next.Dropped...)
		case app.MarkSlow, app.DropFrame, app.NoAction:
		}
	}
}

// removeMember deregisters the user on conn, closes conn and tells the
// remaining members. It reports false when conn is no longer current.
func (o *Orchestrator) removeMember(room core.RoomService, user domain.UserID, conn core.SignalConnection, reason core.CloseReason) (core.PublishResult, bool) {
	removed := false
	res, _ := room.Update(func(tx *core.Tx) error {
		queued := tx.InQueue(user)
		ms, ok := tx.Deregister(user, conn)
		if !ok {
			return nil
		}
		removed = true
		ms.Signal().Close(reason)
		tx.Broadcast(core.UserLeftEvent{UserID: user})
		if queued {
			tx.Broadcast(core.HandRaisedUpdateEvent{Action: core.HandLower, UserID: user, HandRaised: tx.HandQueue()})
		}
		return nil
	})
	if removed {
		o.Limiter.Forget(room.SessionID(), user)
		log.Info().Str("module", "orch").Str("session", string(room.SessionID())).Str("user", string(user)).
			Str("reason", reason.Text).Msg("member removed")
	}
	return res, removed
}

// evict removes a member and drops the room when it empties out and the
// session is not live.
func (o *Orchestrator) evict(id domain.SessionID, user domain.UserID, conn core.SignalConnection, reason core.CloseReason) bool {
	room, ok := o.Rooms.Get(id)
	if !ok {
		return false
	}
	res, removed := o.removeMember(room, user, conn, reason)
	o.handleDropped(room, res)
	o.dropIfIdle(id)
	return removed
}

func (o *Orchestrator) dropIfIdle(id domain.SessionID) {
	room, ok := o.Rooms.Get(id)
	if !ok || room.MemberCount() > 0 {
		return
	}
	sess, err := o.Registry.Get(context.Background(), id)
	if err == nil && sess.Status == domain.StatusLive {
		return
	}
	o.Rooms.RemoveIfEmpty(id)
}

// teardown detaches the room and closes every member. Each removal is
// announced to the members still present; final goes to everybody first.
func (o *Orchestrator) teardown(id domain.SessionID, final core.Event, reason core.CloseReason) []core.SignalConnection {
	room, ok := o.Rooms.StopRoom(id)
	if !ok {
		return nil
	}
	var conns []core.SignalConnection
	_, _ = room.Update(func(tx *core.Tx) error {
		tx.Close()
		if final != nil {
			tx.Broadcast(final)
		}
		for _, ms := range tx.Members() {
			u := ms.Meta().User.ID
			tx.Deregister(u, nil)
			tx.Broadcast(core.UserLeftEvent{UserID: u})
			ms.Signal().Close(reason)
			conns = append(conns, ms.Signal())
			o.Limiter.Forget(id, u)
		}
		return nil
	})
	log.Info().Str("module", "orch").Str("session", string(id)).Int("closed", len(conns)).Str("reason", reason.Text).Msg("room torn down")
	return conns
}

// awaitClosed blocks until every connection's writer has exited or ctx ends.
func (o *Orchestrator) awaitClosed(ctx context.Context, conns []core.SignalConnection) {
	if len(conns) == 0 {
		return
	}
	if o.Opts.EndTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Opts.EndTimeout)
		defer cancel()
	}
	var wg conc.WaitGroup
	for _, c := range conns {
		done := c.Done()
		wg.Go(func() {
			select {
			case <-done:
			case <-ctx.Done():
			}
		})
	}
	wg.Wait()
}
