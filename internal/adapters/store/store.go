// Package store holds the SessionStore backends: in-memory, badger and postgres.
package store

import (
	"fmt"
	"slices"
	"time"

	"github.com/dkeye/VoiceClub/internal/domain"
)

// transition applies the compare-and-transition rule to a loaded session.
func transition(s *domain.Session, from, to domain.SessionStatus, at time.Time) error {
	if s.Status != from || !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s, current %s", domain.ErrBadTransition, from, to, s.Status)
	}
	s.Apply(to, at)
	return nil
}

func newestFirst(list []domain.Session) {
	slices.SortFunc(list, func(a, b domain.Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
