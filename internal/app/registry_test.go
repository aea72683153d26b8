package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/dkeye/VoiceClub/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_Create_Stores_A_Scheduled_Session(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	ctx := context.Background()

	// Given a registry with a fixed clock
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	reg := NewRegistry(store, "rtmp://media.local/live/")
	reg.now = func() time.Time { return now }

	var stored *domain.Session
	store.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, s *domain.Session) error {
		stored = s
		return nil
	})

	// When
	s, err := reg.Create(ctx, "Weekly AMA", "questions")

	// Then
	req.NoError(err)
	req.Same(stored, s)
	req.Equal(domain.StatusScheduled, s.Status)
	req.Equal("rtmp://media.local/live", s.RTMPURL)
	req.Equal(now, s.CreatedAt)
}

func Test_Create_Rejects_Empty_Title_Without_Touching_Store(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)

	_, err := NewRegistry(store, "").Create(context.Background(), " ", "")
	req.ErrorIs(err, domain.ErrTitleEmpty)
}

func Test_Start_And_End_Are_Compare_And_Transition(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	ctx := context.Background()
	reg := NewRegistry(store, "")
	now := time.Now()
	reg.now = func() time.Time { return now }

	gomock.InOrder(
		store.EXPECT().UpdateStatus(ctx, domain.SessionID("s1"), domain.StatusScheduled, domain.StatusLive, now).
			Return(&domain.Session{ID: "s1", Status: domain.StatusLive}, nil),
		store.EXPECT().UpdateStatus(ctx, domain.SessionID("s1"), domain.StatusLive, domain.StatusEnded, now).
			Return(&domain.Session{ID: "s1", Status: domain.StatusEnded}, nil),
	)

	s, err := reg.Start(ctx, "s1")
	req.NoError(err)
	req.Equal(domain.StatusLive, s.Status)

	s, err = reg.End(ctx, "s1")
	req.NoError(err)
	req.Equal(domain.StatusEnded, s.Status)
}

func Test_Transition_Propagates_Store_Errors(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	ctx := context.Background()
	reg := NewRegistry(store, "")

	store.EXPECT().UpdateStatus(ctx, domain.SessionID("gone"), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrSessionNotFound)
	store.EXPECT().UpdateStatus(ctx, domain.SessionID("s2"), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrBadTransition)

	_, err := reg.End(ctx, "gone")
	req.ErrorIs(err, domain.ErrNotFound)

	_, err = reg.Start(ctx, "s2")
	req.ErrorIs(err, domain.ErrInvalidState)
}

func Test_Delete_Passes_Through_Live_Refusal(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	ctx := context.Background()

	store.EXPECT().Delete(ctx, domain.SessionID("live")).Return(domain.ErrSessionLive)
	store.EXPECT().Delete(ctx, domain.SessionID("done")).Return(nil)

	reg := NewRegistry(store, "")
	req.ErrorIs(reg.Delete(ctx, "live"), domain.ErrSessionLive)
	req.NoError(reg.Delete(ctx, "done"))
}

func Test_Create_Wraps_Store_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	boom := errors.New("disk full")

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(boom)

	_, err := NewRegistry(store, "").Create(context.Background(), "t", "")
	req.ErrorIs(err, boom)
}
