package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Status_Transitions_Only_Move_Forward(t *testing.T) {
	req := require.New(t)

	cases := []struct {
		from, to SessionStatus
		ok       bool
	}{
		{StatusScheduled, StatusLive, true},
		{StatusLive, StatusEnded, true},
		{StatusScheduled, StatusEnded, false},
		{StatusLive, StatusScheduled, false},
		{StatusEnded, StatusLive, false},
		{StatusEnded, StatusScheduled, false},
		{StatusLive, StatusLive, false},
	}
	for _, c := range cases {
		req.Equal(c.ok, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func Test_Only_Ended_Refuses_Connections(t *testing.T) {
	req := require.New(t)
	req.True(StatusScheduled.AcceptsConnections())
	req.True(StatusLive.AcceptsConnections())
	req.False(StatusEnded.AcceptsConnections())
}

func Test_NewSession_Is_Scheduled_With_Media_Room(t *testing.T) {
	req := require.New(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	s, err := NewSession("  Town hall ", "weekly", now)
	req.NoError(err)
	req.Equal("Town hall", s.Title)
	req.Equal(StatusScheduled, s.Status)
	req.Equal(string(s.ID), s.MediaRoom)
	req.Len(s.StreamKey, 32)
	req.Equal(time.UTC, s.CreatedAt.Location())
	req.Nil(s.StartedAt)
	req.Nil(s.EndedAt)

	_, err = NewSession("   ", "", now)
	req.ErrorIs(err, ErrMalformed)
}

func Test_Apply_Stamps_Transition_Times(t *testing.T) {
	req := require.New(t)
	s, err := NewSession("t", "", time.Now())
	req.NoError(err)

	start := time.Now()
	s.Apply(StatusLive, start)
	req.Equal(StatusLive, s.Status)
	req.NotNil(s.StartedAt)
	req.True(s.StartedAt.Equal(start))

	end := start.Add(time.Minute)
	s.Apply(StatusEnded, end)
	req.True(s.EndedAt.Equal(end))
}

func Test_ParseStatus(t *testing.T) {
	req := require.New(t)
	st, err := ParseStatus("live")
	req.NoError(err)
	req.Equal(StatusLive, st)

	_, err = ParseStatus("paused")
	req.ErrorIs(err, ErrMalformed)
}
