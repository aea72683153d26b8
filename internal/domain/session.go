package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000
)

type SessionID string

type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusLive      SessionStatus = "live"
	StatusEnded     SessionStatus = "ended"
)

func ParseStatus(s string) (SessionStatus, error) {
	switch st := SessionStatus(s); st {
	case StatusScheduled, StatusLive, StatusEnded:
		return st, nil
	default:
		return "", ErrMalformed
	}
}

// CanTransitionTo allows only scheduled -> live -> ended.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusScheduled:
		return next == StatusLive
	case StatusLive:
		return next == StatusEnded
	default:
		return false
	}
}

// AcceptsConnections reports whether clients may join or send commands.
func (s SessionStatus) AcceptsConnections() bool {
	return s == StatusScheduled || s == StatusLive
}

type Session struct {
	ID          SessionID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      SessionStatus `json:"status"`
	MediaRoom   string        `json:"media_room"`
	RTMPURL     string        `json:"rtmp_url,omitempty"`
	StreamKey   string        `json:"stream_key,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
}

// NewSession builds a scheduled session. The media room shares the session id.
func NewSession(title, description string, now time.Time) (*Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleEmpty
	}
	if len(title) > MaxTitleLen {
		return nil, ErrTitleTooLong
	}
	if len(description) > MaxDescriptionLen {
		description = description[:MaxDescriptionLen]
	}
	id := SessionID(uuid.NewString())
	return &Session{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      StatusScheduled,
		MediaRoom:   string(id),
		StreamKey:   strings.ReplaceAll(uuid.NewString(), "-", ""),
		CreatedAt:   now.UTC(),
	}, nil
}

// Apply records the timestamp that goes with a status change.
func (s *Session) Apply(next SessionStatus, at time.Time) {
	at = at.UTC()
	s.Status = next
	switch next {
	case StatusLive:
		s.StartedAt = &at
	case StatusEnded:
		s.EndedAt = &at
	}
}
