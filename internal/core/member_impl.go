package core

import (
	"sync/atomic"
	"time"

	"github.com/dkeye/VoiceClub/internal/domain"
)

// memberSession pairs meta with transport. Meta is mutated only under the
// owning room's lock; lastSeen is touched from reader goroutines.
type memberSession struct {
	meta     *domain.Participant
	conn     SignalConnection
	lastSeen atomic.Int64
}

func NewMemberSession(meta *domain.Participant, conn SignalConnection) MemberSession {
	m := &memberSession{meta: meta, conn: conn}
	m.lastSeen.Store(meta.JoinedAt.UnixNano())
	return m
}

func (m *memberSession) Meta() *domain.Participant { return m.meta }
func (m *memberSession) Signal() SignalConnection { return m.conn }

func (m *memberSession) LastSeen() time.Time {
	return time.Unix(0, m.lastSeen.Load())
}

func (m *memberSession) Touch(at time.Time) {
	m.lastSeen.Store(at.UnixNano())
}
