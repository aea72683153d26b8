package core

//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

import (
	"context"
	"time"

	"github.com/dkeye/VoiceClub/internal/domain"
)

// SessionStore persists session metadata.
//
// UpdateStatus is a compare-and-transition: it applies `to` only while the
// stored status equals `from`, and returns domain.ErrSessionNotFound or an
// error wrapping domain.ErrBadTransition otherwise. Delete refuses a live
// session with domain.ErrSessionLive.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	// List returns sessions newest first; an empty status means all.
	List(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error)
	UpdateStatus(ctx context.Context, id domain.SessionID, from, to domain.SessionStatus, at time.Time) (*domain.Session, error)
	Delete(ctx context.Context, id domain.SessionID) error
	Close() error
}

type MediaGrant struct {
	Room       string
	Identity   domain.UserID
	Name       string
	CanPublish bool
}

type MediaToken struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	Room     string `json:"room"`
	MockMode bool   `json:"mock_mode"`
}

// MediaTokenIssuer mints credentials for the external media-room service.
type MediaTokenIssuer interface {
	Issue(ctx context.Context, grant MediaGrant) (MediaToken, error)
}

// Censor masks disallowed words in chat text.
type Censor interface {
	Censor(text string) string
}
