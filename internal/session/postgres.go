package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps sessions in the dashboard_sessions table so that a
// logout revokes the session across every server instance.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	var expiresAt *time.Time
	err := p.pool.QueryRow(ctx, `
		SELECT id, user_id, role, full_name, email, token, expires_at, created_at
		FROM dashboard_sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.Role, &s.FullName, &s.Email, &s.Token, &expiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if expiresAt != nil {
		s.ExpiresAt = *expiresAt
	}
	return &s, nil
}

func (p *PostgresStore) Put(ctx context.Context, s *Session) error {
	var expiresAt *time.Time
	if !s.ExpiresAt.IsZero() {
		expiresAt = &s.ExpiresAt
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO dashboard_sessions (id, user_id, role, full_name, email, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_id    = EXCLUDED.user_id,
			role       = EXCLUDED.role,
			full_name  = EXCLUDED.full_name,
			email      = EXCLUDED.email,
			token      = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at
	`, s.ID, s.UserID, s.Role, s.FullName, s.Email, s.Token, expiresAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM dashboard_sessions WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired deletes sessions whose token expired before now and returns
// how many were removed.
func (p *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		"DELETE FROM dashboard_sessions WHERE expires_at IS NOT NULL AND expires_at < $1", now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
