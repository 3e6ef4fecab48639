// Package redisstore implements the refresh-record store on redis. It is
// the deployment-friendly alternative to store/postgres for installations
// that keep session state out of the relational database: records expire
// by key TTL and IDs come from a redis counter.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/classtape/authcore"
)

var _ authcore.RefreshTokenStore = (*RefreshTokenStore)(nil)

const (
	counterKey = "rt:next_id"
	keyPrefix  = "rt:"

	fieldUserID     = "user_id"
	fieldSecretHash = "secret_hash"
	fieldIssuedAt   = "issued_at"
)

// RefreshTokenStore keeps each record in a hash at rt:{id}. The key TTL
// mirrors the configured refresh lifetime so dead sessions vanish on their
// own; redemption still checks the issue time, so a longer key TTL is safe.
type RefreshTokenStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *RefreshTokenStore {
	return &RefreshTokenStore{rdb: rdb, ttl: ttl}
}

func (s *RefreshTokenStore) SaveRefreshToken(ctx context.Context, t *authcore.RefreshToken) error {
	id, err := s.rdb.Incr(ctx, counterKey).Result()
	if err != nil {
		return fmt.Errorf("allocate refresh id: %w", err)
	}

	key := recordKey(id)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		fieldUserID, t.UserID,
		fieldSecretHash, t.SecretHash,
		fieldIssuedAt, t.IssuedAt.UTC().Format(time.RFC3339Nano),
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save refresh record: %w", err)
	}
	t.ID = id
	return nil
}

func (s *RefreshTokenStore) FindRefreshTokenByID(ctx context.Context, id int64) (*authcore.RefreshToken, error) {
	fields, err := s.rdb.HGetAll(ctx, recordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load refresh record: %w", err)
	}
	if len(fields) == 0 {
		return nil, authcore.ErrNotFound
	}

	userID, err := strconv.ParseInt(fields[fieldUserID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("refresh record %d: bad user_id: %w", id, err)
	}
	issuedAt, err := time.Parse(time.RFC3339Nano, fields[fieldIssuedAt])
	if err != nil {
		return nil, fmt.Errorf("refresh record %d: bad issued_at: %w", id, err)
	}

	return &authcore.RefreshToken{
		ID:         id,
		UserID:     userID,
		SecretHash: fields[fieldSecretHash],
		IssuedAt:   issuedAt,
	}, nil
}

func (s *RefreshTokenStore) DeleteRefreshToken(ctx context.Context, id int64) error {
	deleted, err := s.rdb.Del(ctx, recordKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete refresh record: %w", err)
	}
	if deleted == 0 {
		return authcore.ErrNotFound
	}
	return nil
}

// Ping reports backend availability, for readiness probes.
func (s *RefreshTokenStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	return nil
}

func recordKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}
