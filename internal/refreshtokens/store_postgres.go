package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"production-tracker/pkg/utils"
)

type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const (
	deleteByUserQuery  = `DELETE FROM refresh_tokens WHERE user_id = $1`
	deleteByTokenQuery = `DELETE FROM refresh_tokens WHERE token = $1`
	insertQuery        = `INSERT INTO refresh_tokens (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`
	lookupQuery        = `SELECT token, user_id, expires_at, created_at FROM refresh_tokens WHERE token = $1 AND expires_at > $2`
)

func (s *PostgresStore) Persist(ctx context.Context, token, userID string, expiresAt time.Time) error {
	now := s.clock().UTC()
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteByUserQuery, userID); err != nil {
			return fmt.Errorf("revoke prior tokens: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertQuery, token, userID, expiresAt.UTC(), now); err != nil {
			return fmt.Errorf("insert refresh token: %w", err)
		}
		return nil
	})
}

// Lookup treats expired rows as absent; they stay in the table until swept.
func (s *PostgresStore) Lookup(ctx context.Context, token string) (Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx, lookupQuery, token, s.clock().UTC()).Scan(
		&rec.Token,
		&rec.UserID,
		&rec.ExpiresAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("lookup refresh token: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, deleteByTokenQuery, token); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAll(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, deleteByUserQuery, userID); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}
