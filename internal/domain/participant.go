package domain

import "time"

type Role string

const (
	RoleSpeaker  Role = "speaker"
	RoleListener Role = "listener"
)

// ParseRole defaults an empty value to listener.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleListener, nil
	case RoleSpeaker, RoleListener:
		return Role(s), nil
	default:
		return "", ErrInvalidRole
	}
}

// Participant is a user's presence in one session's room.
// It exists only while the user holds an open connection.
type Participant struct {
	SessionID SessionID
	User      User
	Role      Role
	JoinedAt  time.Time
}

func NewParticipant(session SessionID, user User, role Role, at time.Time) *Participant {
	return &Participant{SessionID: session, User: user, Role: role, JoinedAt: at}
}
