package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, title, description, status, media_room, rtmp_url, stream_key, created_at, started_at, ended_at`

type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ core.SessionStore = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects, pings and migrates.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := RunMigration(ctx, p); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to run migration: %w", err)
	}
	return NewPostgresStore(p), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var status string
	err := row.Scan(&s.ID, &s.Title, &s.Description, &status, &s.MediaRoom, &s.RTMPURL, &s.StreamKey,
		&s.CreatedAt, &s.StartedAt, &s.EndedAt)
	if err != nil {
		return nil, err
	}
	s.Status = domain.SessionStatus(status)
	return &s, nil
}

func (r *PostgresStore) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO live_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.Title, s.Description, string(s.Status), s.MediaRoom, s.RTMPURL, s.StreamKey,
		s.CreatedAt, s.StartedAt, s.EndedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *PostgresStore) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM live_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return s, nil
}

func (r *PostgresStore) List(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM live_sessions
		 WHERE $1 = '' OR status = $1
		 ORDER BY created_at DESC`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	out := []domain.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpdateStatus relies on the WHERE status = from guard for atomicity.
func (r *PostgresStore) UpdateStatus(ctx context.Context, id domain.SessionID, from, to domain.SessionStatus, at time.Time) (*domain.Session, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrBadTransition, from, to)
	}
	var startedAt, endedAt *time.Time
	at = at.UTC()
	switch to {
	case domain.StatusLive:
		startedAt = &at
	case domain.StatusEnded:
		endedAt = &at
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE live_sessions
		 SET status = $3, started_at = COALESCE($4, started_at), ended_at = COALESCE($5, ended_at)
		 WHERE id = $1 AND status = $2
		 RETURNING `+sessionColumns,
		id, string(from), string(to), startedAt, endedAt)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		cur, getErr := r.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %s -> %s, current %s", domain.ErrBadTransition, from, to, cur.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("update session status: %w", err)
	}
	return s, nil
}

func (r *PostgresStore) Delete(ctx context.Context, id domain.SessionID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM live_sessions WHERE id = $1 AND status <> 'live'`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return domain.ErrSessionLive
}

func (r *PostgresStore) Close() error {
	r.pool.Close()
	return nil
}
