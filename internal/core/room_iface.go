package core

import (
	"github.com/dkeye/VoiceClub/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

func (r *PublishResult) Merge(o PublishResult) {
	r.SendTo += o.SendTo
	r.Dropped = append(r.Dropped, o.Dropped...)
}

// RoomService is the core-facing API of one session's room.
// It owns participants, the hand-raise queue and the connection set, but
// never closes transport resources on its own.
//
// Every method is linearizable with respect to the others. Update runs a
// whole mutation plus its fan-out under one lock so that every recipient
// observes events in mutation order.
type RoomService interface {
	SessionID() domain.SessionID
	MemberCount() int
	Member(user domain.UserID) (MemberSession, bool)
	Members() []MemberSession
	Snapshot() Snapshot
	Closed() bool

	Register(ms MemberSession) (replaced MemberSession, err error)
	Deregister(user domain.UserID, conn SignalConnection) (MemberSession, bool)
	RaiseHand(user domain.UserID) (int, error)
	LowerHand(user domain.UserID) bool
	Promote(user domain.UserID) error
	Demote(user domain.UserID) error

	Update(fn func(tx *Tx) error) (PublishResult, error)
	// CloseIfEmpty marks an empty room closed; a closed room refuses Register.
	CloseIfEmpty() bool
}

type RoomInfo struct {
	SessionID   domain.SessionID `json:"session_id"`
	MemberCount int              `json:"participant_count"`
}

type RoomManager interface {
	GetOrCreate(id domain.SessionID) RoomService
	Get(id domain.SessionID) (RoomService, bool)
	List() []RoomInfo
	Rooms() []RoomService
	// StopRoom detaches the room; the caller is responsible for closing members.
	StopRoom(id domain.SessionID) (RoomService, bool)
	RemoveIfEmpty(id domain.SessionID) bool
}
