package core

import (
	"encoding/json"
	"time"

	"github.com/dkeye/VoiceClub/internal/domain"
)

// Outbound event types.
const (
	TypeRoomState        = "room_state"
	TypeChatMessage      = "chat_message"
	TypeReaction         = "reaction"
	TypeHandRaisedUpdate = "hand_raised_update"
	TypeUserJoined       = "user_joined"
	TypeUserLeft         = "user_left"
	TypePong             = "pong"
	TypeSessionEnded     = "session_ended"
	TypeRoleChanged      = "role_changed"
	TypeError            = "error"
)

// Event is a server-to-client message. Every event encodes as a flat JSON
// object carrying its "type".
type Event interface {
	EventType() string
}

func Encode(evt Event) (Frame, error) {
	return json.Marshal(evt)
}

// tagged prepends the type discriminator to an encoded object.
func tagged(typ string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	head := `{"type":"` + typ + `"`
	if len(b) <= 2 {
		return []byte(head + "}"), nil
	}
	out := make([]byte, 0, len(head)+len(b))
	out = append(out, head...)
	out = append(out, ',')
	return append(out, b[1:]...), nil
}

type ParticipantView struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	Role     domain.Role   `json:"role"`
	JoinedAt time.Time     `json:"joined_at"`
}

type RoomStats struct {
	TotalParticipants int `json:"total_participants"`
	SpeakersCount     int `json:"speakers_count"`
	ListenersCount    int `json:"listeners_count"`
	HandRaisedCount   int `json:"hand_raised_count"`
}

// Snapshot is an immutable copy of a room's state.
type Snapshot struct {
	SessionID    domain.SessionID  `json:"session_id"`
	Participants []ParticipantView `json:"participants"`
	Speakers     []ParticipantView `json:"speakers"`
	Listeners    []ParticipantView `json:"listeners"`
	HandRaised   []domain.UserID   `json:"hand_raised"`
	Stats        RoomStats         `json:"stats"`
}

// EmptySnapshot is the state of a session nobody is connected to.
func EmptySnapshot(id domain.SessionID) Snapshot {
	return Snapshot{
		SessionID:    id,
		Participants: []ParticipantView{},
		Speakers:     []ParticipantView{},
		Listeners:    []ParticipantView{},
		HandRaised:   []domain.UserID{},
	}
}

type RoomStateEvent struct {
	Snapshot
}

func (RoomStateEvent) EventType() string { return TypeRoomState }
func (e RoomStateEvent) MarshalJSON() ([]byte, error) {
	return tagged(TypeRoomState, e.Snapshot)
}

type ChatMessage struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Username  string        `json:"username"`
	UserID    domain.UserID `json:"user_id"`
	Role      domain.Role   `json:"role"`
	Timestamp time.Time     `json:"timestamp"`
}

type ChatMessageEvent struct {
	Message ChatMessage `json:"message"`
}

func (ChatMessageEvent) EventType() string { return TypeChatMessage }
func (e ChatMessageEvent) MarshalJSON() ([]byte, error) {
	type body ChatMessageEvent
	return tagged(TypeChatMessage, body(e))
}

type ReactionEvent struct {
	Emoji    string        `json:"emoji"`
	Username string        `json:"username"`
	UserID   domain.UserID `json:"user_id"`
}

func (ReactionEvent) EventType() string { return TypeReaction }
func (e ReactionEvent) MarshalJSON() ([]byte, error) {
	type body ReactionEvent
	return tagged(TypeReaction, body(e))
}

type HandRaisedUpdateEvent struct {
	Action     HandAction      `json:"action"`
	UserID     domain.UserID   `json:"user_id"`
	HandRaised []domain.UserID `json:"hand_raised"`
}

func (HandRaisedUpdateEvent) EventType() string { return TypeHandRaisedUpdate }
func (e HandRaisedUpdateEvent) MarshalJSON() ([]byte, error) {
	type body HandRaisedUpdateEvent
	return tagged(TypeHandRaisedUpdate, body(e))
}

type UserJoinedEvent struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	Role     domain.Role   `json:"role"`
}

func (UserJoinedEvent) EventType() string { return TypeUserJoined }
func (e UserJoinedEvent) MarshalJSON() ([]byte, error) {
	type body UserJoinedEvent
	return tagged(TypeUserJoined, body(e))
}

type UserLeftEvent struct {
	UserID domain.UserID `json:"user_id"`
}

func (UserLeftEvent) EventType() string { return TypeUserLeft }
func (e UserLeftEvent) MarshalJSON() ([]byte, error) {
	type body UserLeftEvent
	return tagged(TypeUserLeft, body(e))
}

type PongEvent struct{}

func (PongEvent) EventType() string { return TypePong }
func (PongEvent) MarshalJSON() ([]byte, error) {
	return tagged(TypePong, struct{}{})
}

type SessionEndedEvent struct {
	SessionID domain.SessionID `json:"session_id"`
}

func (SessionEndedEvent) EventType() string { return TypeSessionEnded }
func (e SessionEndedEvent) MarshalJSON() ([]byte, error) {
	type body SessionEndedEvent
	return tagged(TypeSessionEnded, body(e))
}

type RoleChangedEvent struct {
	UserID     domain.UserID   `json:"user_id"`
	Role       domain.Role     `json:"role"`
	HandRaised []domain.UserID `json:"hand_raised"`
}

func (RoleChangedEvent) EventType() string { return TypeRoleChanged }
func (e RoleChangedEvent) MarshalJSON() ([]byte, error) {
	type body RoleChangedEvent
	return tagged(TypeRoleChanged, body(e))
}

// ErrorEvent reports a rejected command without closing the connection.
type ErrorEvent struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (ErrorEvent) EventType() string { return TypeError }
func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type body ErrorEvent
	return tagged(TypeError, body(e))
}
