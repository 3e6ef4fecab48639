package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/classtape/authcore"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RefreshTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, ttl), mr
}

func TestSaveAssignsSequentialIDs(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	a := &authcore.RefreshToken{UserID: 1, SecretHash: "h1", IssuedAt: time.Now().UTC()}
	b := &authcore.RefreshToken{UserID: 2, SecretHash: "h2", IssuedAt: time.Now().UTC()}
	if err := store.SaveRefreshToken(ctx, a); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := store.SaveRefreshToken(ctx, b); err != nil {
		t.Fatalf("save b: %v", err)
	}
	if a.ID == 0 || b.ID != a.ID+1 {
		t.Fatalf("expected sequential ids, got %d and %d", a.ID, b.ID)
	}
}

func TestSaveFindRoundtrip(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	issued := time.Date(2026, 3, 14, 12, 0, 0, 123456789, time.UTC)
	rec := &authcore.RefreshToken{UserID: 7, SecretHash: "$argon2id$...", IssuedAt: issued}
	if err := store.SaveRefreshToken(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.FindRefreshTokenByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.UserID != 7 || got.SecretHash != "$argon2id$..." {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.IssuedAt.Equal(issued) {
		t.Fatalf("issued_at: expected %v, got %v", issued, got.IssuedAt)
	}
}

func TestFindMissingReturnsNotFound(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	_, err := store.FindRefreshTokenByID(context.Background(), 9999)
	if !errors.Is(err, authcore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	rec := &authcore.RefreshToken{UserID: 1, SecretHash: "h", IssuedAt: time.Now().UTC()}
	if err := store.SaveRefreshToken(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.DeleteRefreshToken(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteRefreshToken(ctx, rec.ID); !errors.Is(err, authcore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRecordsExpireWithKeyTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	rec := &authcore.RefreshToken{UserID: 1, SecretHash: "h", IssuedAt: time.Now().UTC()}
	if err := store.SaveRefreshToken(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.FindRefreshTokenByID(ctx, rec.ID); !errors.Is(err, authcore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}
