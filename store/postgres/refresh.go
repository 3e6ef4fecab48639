package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/classtape/authcore"
)

var _ authcore.RefreshTokenStore = (*RefreshTokenStore)(nil)

// RefreshTokenStore persists refresh records in the refresh_tokens table.
type RefreshTokenStore struct {
	db *DB
}

func NewRefreshTokenStore(db *DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

const (
	qRefreshInsert = `
INSERT INTO refresh_tokens (user_id, secret_hash, issued_at)
VALUES ($1, $2, $3)
RETURNING id;`

	qRefreshByID = `
SELECT id, user_id, secret_hash, issued_at
FROM refresh_tokens
WHERE id = $1;`

	qRefreshDelete = `
DELETE FROM refresh_tokens WHERE id = $1;`
)

func (s *RefreshTokenStore) SaveRefreshToken(ctx context.Context, t *authcore.RefreshToken) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	err := s.db.Pool.QueryRow(ctx, qRefreshInsert, t.UserID, t.SecretHash, t.IssuedAt).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("refresh insert: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) FindRefreshTokenByID(ctx context.Context, id int64) (*authcore.RefreshToken, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	var t authcore.RefreshToken
	err := s.db.Pool.QueryRow(ctx, qRefreshByID, id).
		Scan(&t.ID, &t.UserID, &t.SecretHash, &t.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authcore.ErrNotFound
		}
		return nil, fmt.Errorf("refresh select: %w", err)
	}
	return &t, nil
}

func (s *RefreshTokenStore) DeleteRefreshToken(ctx context.Context, id int64) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx, qRefreshDelete, id)
	if err != nil {
		return fmt.Errorf("refresh delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrNotFound
	}
	return nil
}

// DeleteExpiredRefreshTokens removes records issued before cutoff. Intended
// for a periodic janitor; redemption already rejects over-age records, so
// this only reclaims storage.
func (s *RefreshTokenStore) DeleteExpiredRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE issued_at < $1;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("refresh cleanup: %w", err)
	}
	return tag.RowsAffected(), nil
}
