package core

import (
	"time"

	"github.com/dkeye/VoiceClub/internal/domain"
)

// MemberSession binds a participant and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Participant
	Signal() SignalConnection
	LastSeen() time.Time
	Touch(at time.Time)
}
