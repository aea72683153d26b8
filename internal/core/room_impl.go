package core

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id     domain.SessionID
	mu     sync.Mutex
	byUser map[domain.UserID]MemberSession
	queue  []domain.UserID
	closed bool
}

func NewRoomService(id domain.SessionID) RoomService {
	return &roomImpl{
		id:     id,
		byUser: make(map[domain.UserID]MemberSession),
	}
}

// Tx is the locked view of a room handed to Update callbacks.
// It must not escape the callback.
type Tx struct {
	r   *roomImpl
	res PublishResult
}

func (r *roomImpl) Update(fn func(tx *Tx) error) (PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &Tx{r: r}
	err := fn(tx)
	return tx.res, err
}

func (r *roomImpl) SessionID() domain.SessionID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

func (r *roomImpl) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *roomImpl) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.byUser) > 0 {
		return false
	}
	r.closed = true
	return true
}

func (r *roomImpl) Member(user domain.UserID) (ms MemberSession, ok bool) {
	_, _ = r.Update(func(tx *Tx) error {
		ms, ok = tx.Member(user)
		return nil
	})
	return ms, ok
}

func (r *roomImpl) Members() (out []MemberSession) {
	_, _ = r.Update(func(tx *Tx) error {
		out = tx.Members()
		return nil
	})
	return out
}

func (r *roomImpl) Snapshot() (snap Snapshot) {
	_, _ = r.Update(func(tx *Tx) error {
		snap = tx.Snapshot()
		return nil
	})
	return snap
}

func (r *roomImpl) Register(ms MemberSession) (replaced MemberSession, err error) {
	_, err = r.Update(func(tx *Tx) error {
		replaced, err = tx.Register(ms)
		return err
	})
	return replaced, err
}

func (r *roomImpl) Deregister(user domain.UserID, conn SignalConnection) (ms MemberSession, ok bool) {
	_, _ = r.Update(func(tx *Tx) error {
		ms, ok = tx.Deregister(user, conn)
		return nil
	})
	return ms, ok
}

func (r *roomImpl) RaiseHand(user domain.UserID) (pos int, err error) {
	_, err = r.Update(func(tx *Tx) error {
		pos, err = tx.RaiseHand(user)
		return err
	})
	return pos, err
}

func (r *roomImpl) LowerHand(user domain.UserID) (removed bool) {
	_, _ = r.Update(func(tx *Tx) error {
		removed = tx.LowerHand(user)
		return nil
	})
	return removed
}

func (r *roomImpl) Promote(user domain.UserID) error {
	_, err := r.Update(func(tx *Tx) error { return tx.Promote(user) })
	return err
}

func (r *roomImpl) Demote(user domain.UserID) error {
	_, err := r.Update(func(tx *Tx) error { return tx.Demote(user) })
	return err
}

func (tx *Tx) SessionID() domain.SessionID { return tx.r.id }
func (tx *Tx) Closed() bool                { return tx.r.closed }

// Close refuses further registrations. Members stay until deregistered.
func (tx *Tx) Close() { tx.r.closed = true }

func (tx *Tx) Len() int { return len(tx.r.byUser) }

// Register adds or replaces the user's member session and returns the one it
// replaced. A speaker never stays in the hand-raise queue.
func (tx *Tx) Register(ms MemberSession) (MemberSession, error) {
	r := tx.r
	if r.closed {
		return nil, domain.ErrRoomClosed
	}
	meta := ms.Meta()
	u := meta.User.ID
	old := r.byUser[u]
	r.byUser[u] = ms
	if meta.Role == domain.RoleSpeaker {
		tx.dequeue(u)
	}
	log.Info().Str("module", "core.room").Str("session", string(r.id)).Str("user", string(u)).
		Bool("replaced", old != nil).Msg("member registered")
	return old, nil
}

// Deregister removes the user and its queue entry in one step. A non-nil
// conn that is no longer the user's current connection makes it a no-op.
func (tx *Tx) Deregister(user domain.UserID, conn SignalConnection) (MemberSession, bool) {
	r := tx.r
	ms, ok := r.byUser[user]
	if !ok {
		return nil, false
	}
	if conn != nil && ms.Signal() != conn {
		return nil, false
	}
	delete(r.byUser, user)
	tx.dequeue(user)
	log.Info().Str("module", "core.room").Str("session", string(r.id)).Str("user", string(user)).Msg("member deregistered")
	return ms, true
}

func (tx *Tx) Member(user domain.UserID) (MemberSession, bool) {
	ms, ok := tx.r.byUser[user]
	return ms, ok
}

// Members returns sessions ordered by join time.
func (tx *Tx) Members() []MemberSession {
	out := lo.Values(tx.r.byUser)
	slices.SortFunc(out, func(a, b MemberSession) int {
		if c := a.Meta().JoinedAt.Compare(b.Meta().JoinedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.Meta().User.ID), string(b.Meta().User.ID))
	})
	return out
}

// RaiseHand appends the user and returns its 1-based queue position.
func (tx *Tx) RaiseHand(user domain.UserID) (int, error) {
	r := tx.r
	if _, ok := r.byUser[user]; !ok {
		return 0, domain.ErrUnknownParticipant
	}
	if slices.Contains(r.queue, user) {
		return 0, domain.ErrAlreadyInQueue
	}
	r.queue = append(r.queue, user)
	return len(r.queue), nil
}

func (tx *Tx) LowerHand(user domain.UserID) bool {
	return tx.dequeue(user)
}

func (tx *Tx) Promote(user domain.UserID) error {
	ms, ok := tx.r.byUser[user]
	if !ok {
		return domain.ErrUnknownParticipant
	}
	ms.Meta().Role = domain.RoleSpeaker
	tx.dequeue(user)
	return nil
}

func (tx *Tx) Demote(user domain.UserID) error {
	ms, ok := tx.r.byUser[user]
	if !ok {
		return domain.ErrUnknownParticipant
	}
	ms.Meta().Role = domain.RoleListener
	return nil
}

// HandQueue copies the queue; it is never nil.
func (tx *Tx) HandQueue() []domain.UserID {
	return append([]domain.UserID{}, tx.r.queue...)
}

func (tx *Tx) InQueue(user domain.UserID) bool {
	return slices.Contains(tx.r.queue, user)
}

func (tx *Tx) Snapshot() Snapshot {
	snap := EmptySnapshot(tx.r.id)
	for _, ms := range tx.Members() {
		m := ms.Meta()
		v := ParticipantView{UserID: m.User.ID, Username: m.User.Username, Role: m.Role, JoinedAt: m.JoinedAt}
		snap.Participants = append(snap.Participants, v)
	}
	snap.Speakers = lo.Filter(snap.Participants, func(v ParticipantView, _ int) bool { return v.Role == domain.RoleSpeaker })
	snap.Listeners = lo.Filter(snap.Participants, func(v ParticipantView, _ int) bool { return v.Role == domain.RoleListener })
	snap.HandRaised = append(snap.HandRaised, tx.r.queue...)
	snap.Stats = RoomStats{
		TotalParticipants: len(snap.Participants),
		SpeakersCount:     len(snap.Speakers),
		ListenersCount:    len(snap.Listeners),
		HandRaisedCount:   len(snap.HandRaised),
	}
	return snap
}

// Send enqueues evt for one participant.
func (tx *Tx) Send(user domain.UserID, evt Event) error {
	ms, ok := tx.r.byUser[user]
	if !ok {
		return domain.ErrUnknownParticipant
	}
	f, err := Encode(evt)
	if err != nil {
		return err
	}
	return tx.deliver(ms, f)
}

// SendTo enqueues evt on a member session that may already be detached.
func (tx *Tx) SendTo(ms MemberSession, evt Event) error {
	f, err := Encode(evt)
	if err != nil {
		return err
	}
	return tx.deliver(ms, f)
}

// Broadcast enqueues evt for every participant except the excluded users.
func (tx *Tx) Broadcast(evt Event, exclude ...domain.UserID) {
	f, err := Encode(evt)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("type", evt.EventType()).Msg("encode event")
		return
	}
	before := tx.res.SendTo
	for _, ms := range tx.Members() {
		if slices.Contains(exclude, ms.Meta().User.ID) {
			continue
		}
		_ = tx.deliver(ms, f)
	}
	log.Debug().Str("module", "core.room").Str("session", string(tx.r.id)).Str("type", evt.EventType()).
		Int("sent_to", tx.res.SendTo-before).Int("dropped", len(tx.res.Dropped)).Msg("broadcast result")
}

func (tx *Tx) deliver(ms MemberSession, f Frame) error {
	err := ms.Signal().TrySend(f)
	switch {
	case err == nil:
		tx.res.SendTo++
	case errors.Is(err, ErrBackpressure):
		if !slices.Contains(tx.res.Dropped, ms) {
			tx.res.Dropped = append(tx.res.Dropped, ms)
		}
	}
	return err
}

func (tx *Tx) dequeue(user domain.UserID) bool {
	i := slices.Index(tx.r.queue, user)
	if i < 0 {
		return false
	}
	tx.r.queue = slices.Delete(tx.r.queue, i, i+1)
	return true
}
