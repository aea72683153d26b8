package core_test

import (
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/core/conntest"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const sessionID = domain.SessionID("s-1")

func member(id string, role domain.Role, at time.Time) (core.MemberSession, *conntest.Conn) {
	conn := conntest.New(0)
	meta := domain.NewParticipant(sessionID, domain.User{ID: domain.UserID(id), Username: "name-" + id}, role, at)
	return core.NewMemberSession(meta, conn), conn
}

func registerN(t *testing.T, room core.RoomService, n int) []*conntest.Conn {
	t.Helper()
	base := time.Now()
	conns := make([]*conntest.Conn, n)
	for i := range n {
		ms, conn := member(fmt.Sprintf("u%03d", i), domain.RoleListener, base.Add(time.Duration(i)*time.Millisecond))
		_, err := room.Register(ms)
		require.NoError(t, err)
		conns[i] = conn
	}
	return conns
}

func Test_RaiseHand_Is_FIFO_Under_Concurrency(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	n := 64
	registerN(t, room, n)

	// When every participant raises its hand at once
	positions := make(map[domain.UserID]int, n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := domain.UserID(fmt.Sprintf("u%03d", i))
			pos, err := room.RaiseHand(u)
			req.NoError(err)
			mu.Lock()
			positions[u] = pos
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Then the queue holds each user once, in the order positions were handed out
	queue := room.Snapshot().HandRaised
	req.Len(queue, n)
	req.Len(lo.Uniq(queue), n)
	for i, u := range queue {
		req.Equal(i+1, positions[u])
	}
}

func Test_RaiseHand_Rejects_Duplicates_And_Strangers(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	registerN(t, room, 2)

	pos, err := room.RaiseHand("u000")
	req.NoError(err)
	req.Equal(1, pos)

	_, err = room.RaiseHand("u000")
	req.ErrorIs(err, domain.ErrAlreadyInQueue)
	req.ErrorIs(err, domain.ErrInvalidState)

	_, err = room.RaiseHand("ghost")
	req.ErrorIs(err, domain.ErrUnknownParticipant)

	pos, err = room.RaiseHand("u001")
	req.NoError(err)
	req.Equal(2, pos)
}

func Test_LowerHand_And_Deregister_Are_Idempotent(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	registerN(t, room, 3)
	_, err := room.RaiseHand("u001")
	req.NoError(err)

	req.True(room.LowerHand("u001"))
	before := room.Snapshot()
	req.False(room.LowerHand("u001"))
	req.Equal(before, room.Snapshot())

	_, ok := room.Deregister("u002", nil)
	req.True(ok)
	before = room.Snapshot()
	_, ok = room.Deregister("u002", nil)
	req.False(ok)
	req.Equal(before, room.Snapshot())
}

func Test_Deregister_Removes_Queue_Entry(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	registerN(t, room, 4)
	for _, u := range []domain.UserID{"u000", "u002", "u003"} {
		_, err := room.RaiseHand(u)
		req.NoError(err)
	}

	room.Deregister("u002", nil)

	snap := room.Snapshot()
	req.Equal([]domain.UserID{"u000", "u003"}, snap.HandRaised)
	ids := lo.Map(snap.Participants, func(p core.ParticipantView, _ int) domain.UserID { return p.UserID })
	for _, u := range snap.HandRaised {
		req.Contains(ids, u)
	}
}

func Test_Deregister_Ignores_Stale_Connection(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	at := time.Now()
	first, firstConn := member("alice", domain.RoleListener, at)
	second, _ := member("alice", domain.RoleListener, at.Add(time.Second))

	_, err := room.Register(first)
	req.NoError(err)
	replaced, err := room.Register(second)
	req.NoError(err)
	req.Same(first, replaced)

	// The old transport closing must not evict the new one
	_, ok := room.Deregister("alice", firstConn)
	req.False(ok)
	req.Equal(1, room.MemberCount())

	_, ok = room.Deregister("alice", second.Signal())
	req.True(ok)
	req.Equal(0, room.MemberCount())
}

func Test_Snapshot_Counts_Match_Registrations(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	at := time.Now()
	speakers := 0
	for i := range 25 {
		role := domain.RoleListener
		if i%4 == 0 {
			role = domain.RoleSpeaker
			speakers++
		}
		ms, _ := member("u"+strconv.Itoa(i), role, at.Add(time.Duration(i)))
		_, err := room.Register(ms)
		req.NoError(err)
	}

	snap := room.Snapshot()
	req.Len(snap.Participants, 25)
	req.Equal(25, snap.Stats.TotalParticipants)
	req.Equal(speakers, snap.Stats.SpeakersCount)
	req.Equal(25-speakers, snap.Stats.ListenersCount)
	req.Len(snap.Speakers, speakers)
	req.Len(snap.Listeners, 25-speakers)
	req.Equal(domain.UserID("u0"), snap.Participants[0].UserID)
}

func Test_Promote_Clears_Queue_And_Speaker_Register_Dequeues(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	registerN(t, room, 2)
	_, err := room.RaiseHand("u000")
	req.NoError(err)
	_, err = room.RaiseHand("u001")
	req.NoError(err)

	req.NoError(room.Promote("u000"))
	snap := room.Snapshot()
	req.Equal([]domain.UserID{"u001"}, snap.HandRaised)
	req.Equal(1, snap.Stats.SpeakersCount)

	// Reconnecting as a speaker drops the pending hand
	ms, _ := member("u001", domain.RoleSpeaker, time.Now())
	_, err = room.Register(ms)
	req.NoError(err)
	req.Empty(room.Snapshot().HandRaised)

	req.NoError(room.Demote("u000"))
	req.ErrorIs(room.Promote("ghost"), domain.ErrUnknownParticipant)
	snap = room.Snapshot()
	req.Equal(1, snap.Stats.SpeakersCount)
	req.Equal(domain.UserID("u001"), snap.Speakers[0].UserID)
}

func Test_Broadcast_Preserves_Order_Per_Recipient(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	conns := registerN(t, room, 5)

	// Given concurrent mutations each followed by a broadcast
	counter := 0
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = room.Update(func(tx *core.Tx) error {
				counter++
				tx.Broadcast(core.ReactionEvent{Emoji: strconv.Itoa(counter), UserID: "u000"})
				return nil
			})
		}()
	}
	wg.Wait()

	// Then every recipient sees the same increasing sequence
	for _, c := range conns {
		evts := c.Events()
		req.Len(evts, 200)
		for i, e := range evts {
			req.Equal(strconv.Itoa(i+1), e["emoji"])
		}
	}
}

func Test_Broadcast_Reports_Backpressure(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	at := time.Now()
	slowConn := conntest.New(1)
	slow := core.NewMemberSession(domain.NewParticipant(sessionID, domain.User{ID: "slow", Username: "slow"}, domain.RoleListener, at), slowConn)
	fast, _ := member("fast", domain.RoleListener, at.Add(time.Millisecond))
	_, err := room.Register(slow)
	req.NoError(err)
	_, err = room.Register(fast)
	req.NoError(err)

	res, err := room.Update(func(tx *core.Tx) error {
		tx.Broadcast(core.PongEvent{})
		tx.Broadcast(core.PongEvent{})
		tx.Broadcast(core.UserLeftEvent{UserID: "x"}, "fast")
		return nil
	})
	req.NoError(err)
	req.Equal(3, res.SendTo)
	req.Len(res.Dropped, 1)
	req.Same(slow, res.Dropped[0])
}

func Test_Closed_Room_Refuses_Register(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	req.True(room.CloseIfEmpty())
	ms, _ := member("late", domain.RoleListener, time.Now())
	_, err := room.Register(ms)
	req.ErrorIs(err, domain.ErrRoomClosed)

	other := core.NewRoomService(sessionID)
	registerN(t, other, 1)
	req.False(other.CloseIfEmpty())
	req.False(other.Closed())
}

func Test_Hand_Queue_Stays_Ordered_And_Bounded_Under_Churn(t *testing.T) {
	req := require.New(t)
	room := core.NewRoomService(sessionID)
	registerN(t, room, 90)
	id := func(i int) domain.UserID { return domain.UserID(fmt.Sprintf("u%03d", i)) }

	// Given u000..u029 raising in order while u030..u059 raise and lower
	// and u060..u089 raise while being deregistered
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 30 {
			_, err := room.RaiseHand(id(i))
			req.NoError(err)
		}
	}()
	for i := 30; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := room.RaiseHand(id(i)); err == nil {
				room.LowerHand(id(i))
			}
		}()
	}
	for i := 60; i < 90; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = room.RaiseHand(id(i))
		}()
		go func() {
			defer wg.Done()
			room.Deregister(id(i), nil)
		}()
	}
	wg.Wait()

	// Then every queued user is still present
	snap := room.Snapshot()
	present := lo.SliceToMap(snap.Participants, func(p core.ParticipantView) (domain.UserID, struct{}) { return p.UserID, struct{}{} })
	for _, u := range snap.HandRaised {
		_, ok := present[u]
		req.True(ok, "queued user %s left the room", u)
	}
	req.Len(snap.Participants, 60)
	req.Len(lo.Uniq(snap.HandRaised), len(snap.HandRaised))

	// And the survivors keep their arrival order
	want := lo.Times(30, id)
	req.Equal(want, snap.HandRaised)
}
