package authcore_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/classtape/authcore"
	"github.com/classtape/authcore/store/redisstore"
)

var testSigningSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeClock is a movable clock shared by the service, the token codec, and
// the test body.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memUserStore is a map-backed user store. FindCalls counts every lookup
// so tests can assert that rejected requests never touched it.
type memUserStore struct {
	mu        sync.Mutex
	nextID    int64
	byID      map[int64]*authcore.User
	FindCalls int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: make(map[int64]*authcore.User)}
}

func (s *memUserStore) FindUserByIdentifier(ctx context.Context, identifier string) (*authcore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FindCalls++
	for _, u := range s.byID {
		if strings.EqualFold(u.Email, identifier) || u.Username == identifier {
			c := *u
			return &c, nil
		}
	}
	return nil, authcore.ErrNotFound
}

func (s *memUserStore) FindUserByID(ctx context.Context, id int64) (*authcore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FindCalls++
	u, ok := s.byID[id]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *memUserStore) SaveUser(ctx context.Context, u *authcore.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.ID == u.ID {
			continue
		}
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return authcore.ErrDuplicateIdentifier
		}
	}
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	}
	c := *u
	s.byID[u.ID] = &c
	return nil
}

// get returns the live record for direct inspection and mutation.
func (s *memUserStore) get(id int64) *authcore.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

func (s *memUserStore) delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// chanMailer captures delivered secrets.
type chanMailer struct {
	ch chan deliveredSecret
}

type deliveredSecret struct {
	Address string
	Secret  string
	Locale  string
}

func newChanMailer() *chanMailer {
	return &chanMailer{ch: make(chan deliveredSecret, 8)}
}

func (m *chanMailer) SendVerificationSecret(ctx context.Context, address, secret, locale string) error {
	m.ch <- deliveredSecret{Address: address, Secret: secret, Locale: locale}
	return nil
}

// wait blocks for the next delivery; delivery rides a goroutine.
func (m *chanMailer) wait(t *testing.T) deliveredSecret {
	t.Helper()
	select {
	case d := <-m.ch:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mail delivery")
		return deliveredSecret{}
	}
}

type testEnv struct {
	svc    *authcore.Service
	users  *memUserStore
	mailer *chanMailer
	clock  *fakeClock
	cfg    authcore.Config
}

// testConfig keeps hashing cheap so the suite stays fast.
func testConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.Token.SigningSecret = testSigningSecret
	cfg.Password = authcore.PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*authcore.Config)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		users:  newMemUserStore(),
		mailer: newChanMailer(),
		clock:  newFakeClock(),
		cfg:    cfg,
	}
	svc, err := authcore.New().
		WithConfig(cfg).
		WithUserStore(env.users).
		WithRefreshTokenStore(redisstore.New(rdb, cfg.Refresh.TTL)).
		WithMailer(env.mailer).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	env.svc = svc
	return env
}

// seedUser signs the user up and completes registration, returning the id.
func (env *testEnv) seedUser(t *testing.T, email, username, password string) int64 {
	t.Helper()
	u, err := env.svc.Signup(context.Background(), authcore.SignupRequest{
		Email:    email,
		Username: username,
		Password: password,
	})
	if err != nil {
		t.Fatalf("seed signup: %v", err)
	}
	env.mailer.wait(t)
	rec := env.users.get(u.ID)
	rec.Registration = 0
	return u.ID
}

func requireErrIs(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
