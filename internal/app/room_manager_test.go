package app

import (
	"testing"
	"time"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/core/conntest"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/stretchr/testify/require"
)

func Test_GetOrCreate_Returns_Same_Room(t *testing.T) {
	req := require.New(t)
	m := NewRoomManager()

	a := m.GetOrCreate("s1")
	b := m.GetOrCreate("s1")
	req.Same(a, b)
	req.Len(m.Rooms(), 1)

	_, ok := m.Get("s2")
	req.False(ok)
}

func Test_RemoveIfEmpty_Closes_Room_And_Keeps_Occupied_Ones(t *testing.T) {
	req := require.New(t)
	m := NewRoomManager()

	empty := m.GetOrCreate("empty")
	req.True(m.RemoveIfEmpty("empty"))
	req.True(empty.Closed())
	_, ok := m.Get("empty")
	req.False(ok)

	busy := m.GetOrCreate("busy")
	meta := domain.NewParticipant("busy", domain.User{ID: "amy", Username: "Amy"}, domain.RoleListener, time.Now())
	_, err := busy.Register(core.NewMemberSession(meta, conntest.New(0)))
	req.NoError(err)
	req.False(m.RemoveIfEmpty("busy"))

	infos := m.List()
	req.Len(infos, 1)
	req.Equal(core.RoomInfo{SessionID: "busy", MemberCount: 1}, infos[0])
}

func Test_StopRoom_Detaches(t *testing.T) {
	req := require.New(t)
	m := NewRoomManager()
	room := m.GetOrCreate("s1")

	got, ok := m.StopRoom("s1")
	req.True(ok)
	req.Same(room, got)
	_, ok = m.StopRoom("s1")
	req.False(ok)
	req.NotSame(room, m.GetOrCreate("s1"))
}
