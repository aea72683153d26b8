package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/VoiceClub/internal/config"
	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]core.SessionStore {
	t.Helper()
	out := map[string]core.SessionStore{"memory": NewMemoryStore()}

	b, err := OpenBadger("")
	require.NoError(t, err)
	out["badger"] = b

	if dsn := os.Getenv("VOICECLUB_TEST_PG_DSN"); dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p, err := OpenPostgres(ctx, dsn)
		require.NoError(t, err)
		_, err = p.pool.Exec(ctx, `TRUNCATE live_sessions`)
		require.NoError(t, err)
		out["postgres"] = p
	}
	for _, s := range out {
		t.Cleanup(func() { _ = s.Close() })
	}
	return out
}

func newSession(t *testing.T, title string, at time.Time) *domain.Session {
	t.Helper()
	s, err := domain.NewSession(title, "about "+title, at)
	require.NoError(t, err)
	s.RTMPURL = "rtmp://localhost/live"
	return s
}

func Test_Store_Create_Get_List(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			base := time.Now().UTC().Truncate(time.Millisecond)

			older := newSession(t, "older", base)
			newer := newSession(t, "newer", base.Add(time.Minute))
			req.NoError(st.Create(ctx, older))
			req.NoError(st.Create(ctx, newer))
			req.Error(st.Create(ctx, older))

			got, err := st.Get(ctx, older.ID)
			req.NoError(err)
			req.Equal(older.Title, got.Title)
			req.Equal(older.StreamKey, got.StreamKey)
			req.Equal(domain.StatusScheduled, got.Status)
			req.True(older.CreatedAt.Equal(got.CreatedAt))

			_, err = st.Get(ctx, "missing")
			req.ErrorIs(err, domain.ErrSessionNotFound)

			all, err := st.List(ctx, "")
			req.NoError(err)
			req.Len(all, 2)
			req.Equal(newer.ID, all[0].ID)

			live, err := st.List(ctx, domain.StatusLive)
			req.NoError(err)
			req.Empty(live)
		})
	}
}

func Test_Store_UpdateStatus_Is_Compare_And_Transition(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			s := newSession(t, "cas", time.Now())
			req.NoError(st.Create(ctx, s))

			at := time.Now().UTC().Truncate(time.Millisecond)
			got, err := st.UpdateStatus(ctx, s.ID, domain.StatusScheduled, domain.StatusLive, at)
			req.NoError(err)
			req.Equal(domain.StatusLive, got.Status)
			req.NotNil(got.StartedAt)
			req.True(at.Equal(*got.StartedAt))

			_, err = st.UpdateStatus(ctx, s.ID, domain.StatusScheduled, domain.StatusLive, at)
			req.ErrorIs(err, domain.ErrBadTransition)

			_, err = st.UpdateStatus(ctx, s.ID, domain.StatusLive, domain.StatusScheduled, at)
			req.ErrorIs(err, domain.ErrInvalidState)

			_, err = st.UpdateStatus(ctx, "missing", domain.StatusLive, domain.StatusEnded, at)
			req.ErrorIs(err, domain.ErrSessionNotFound)

			ended, err := st.UpdateStatus(ctx, s.ID, domain.StatusLive, domain.StatusEnded, at.Add(time.Hour))
			req.NoError(err)
			req.Equal(domain.StatusEnded, ended.Status)
			req.NotNil(ended.StartedAt)
			req.NotNil(ended.EndedAt)
		})
	}
}

func Test_Store_Concurrent_End_Has_One_Winner(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			s := newSession(t, "race", time.Now())
			req.NoError(st.Create(ctx, s))
			_, err := st.UpdateStatus(ctx, s.ID, domain.StatusScheduled, domain.StatusLive, time.Now())
			req.NoError(err)

			var mu sync.Mutex
			wins := 0
			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := st.UpdateStatus(ctx, s.ID, domain.StatusLive, domain.StatusEnded, time.Now()); err == nil {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			req.Equal(1, wins)
		})
	}
}

func Test_Store_Delete_Refuses_Live(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			s := newSession(t, "del", time.Now())
			req.NoError(st.Create(ctx, s))
			_, err := st.UpdateStatus(ctx, s.ID, domain.StatusScheduled, domain.StatusLive, time.Now())
			req.NoError(err)

			req.ErrorIs(st.Delete(ctx, s.ID), domain.ErrSessionLive)

			_, err = st.UpdateStatus(ctx, s.ID, domain.StatusLive, domain.StatusEnded, time.Now())
			req.NoError(err)
			req.NoError(st.Delete(ctx, s.ID))
			_, err = st.Get(ctx, s.ID)
			req.ErrorIs(err, domain.ErrSessionNotFound)
			req.ErrorIs(st.Delete(ctx, s.ID), domain.ErrSessionNotFound)
		})
	}
}

func Test_Open_Selects_Driver(t *testing.T) {
	req := require.New(t)

	s, err := Open(configFor("memory", ""))
	req.NoError(err)
	req.IsType(&MemoryStore{}, s)

	s, err = Open(configFor("badger", t.TempDir()))
	req.NoError(err)
	req.IsType(&BadgerStore{}, s)
	req.NoError(s.Close())
}

func configFor(driver, path string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, BadgerPath: path}
}
