package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	sessionPrefix   = "session:"
	conflictRetries = 5
)

type BadgerStore struct {
	db *badger.DB
}

var _ core.SessionStore = (*BadgerStore)(nil)

// OpenBadger opens a store at path; an empty path keeps everything in memory.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return NewBadgerStore(db), nil
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func sessionKey(id domain.SessionID) []byte {
	return []byte(sessionPrefix + string(id))
}

func (b *BadgerStore) Create(_ context.Context, s *domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		key := sessionKey(s.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("session %s already exists", s.ID)
		}
		return txn.Set(key, data)
	})
}

func (b *BadgerStore) Get(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	var s *domain.Session
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		s, err = loadSession(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (b *BadgerStore) List(_ context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	out := []domain.Session{}
	prefix := []byte(sessionPrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var s domain.Session
				if err := json.Unmarshal(v, &s); err != nil {
					return fmt.Errorf("failed to unmarshal session: %w", err)
				}
				if status == "" || s.Status == status {
					out = append(out, s)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	newestFirst(out)
	return out, nil
}

func (b *BadgerStore) UpdateStatus(_ context.Context, id domain.SessionID, from, to domain.SessionStatus, at time.Time) (*domain.Session, error) {
	var s *domain.Session
	err := b.retry(func(txn *badger.Txn) error {
		var err error
		if s, err = loadSession(txn, id); err != nil {
			return err
		}
		if err := transition(s, from, to, at); err != nil {
			return err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return txn.Set(sessionKey(id), data)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (b *BadgerStore) Delete(_ context.Context, id domain.SessionID) error {
	return b.retry(func(txn *badger.Txn) error {
		s, err := loadSession(txn, id)
		if err != nil {
			return err
		}
		if s.Status == domain.StatusLive {
			return domain.ErrSessionLive
		}
		return txn.Delete(sessionKey(id))
	})
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// retry reruns fn when a concurrent writer touched the same keys.
func (b *BadgerStore) retry(fn func(txn *badger.Txn) error) error {
	var err error
	for range conflictRetries {
		if err = b.db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
		log.Debug().Str("module", "adapters.store").Msg("badger txn conflict, retrying")
	}
	return err
}

func loadSession(txn *badger.Txn, id domain.SessionID) (*domain.Session, error) {
	item, err := txn.Get(sessionKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &s)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}
