package authcore

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/classtape/authcore/password"
	"github.com/classtape/authcore/token"
)

// Service is the session and credential-token lifecycle core. It is
// immutable after Build and safe for concurrent use; the only shared state
// is the persistence layer behind the injected stores.
type Service struct {
	cfg     Config
	log     *zap.Logger
	users   UserStore
	refresh RefreshTokenStore
	mailer  Mailer
	hasher  *password.Hasher
	codec   *token.Codec // nil when no signing secret is configured
	metrics *metrics
	now     func() time.Time
}

// Builder assembles a Service. Required: config with Validate passing, a
// UserStore, and a RefreshTokenStore. Logger, mailer, metrics, and clock
// are optional.
type Builder struct {
	cfg      Config
	log      *zap.Logger
	users    UserStore
	refresh  RefreshTokenStore
	mailer   Mailer
	registry prometheus.Registerer
	now      func() time.Time
	built    bool
}

// New creates a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithLogger sets the structured logger. Defaults to zap.NewNop.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

// WithUserStore sets the user persistence backend.
func (b *Builder) WithUserStore(s UserStore) *Builder {
	b.users = s
	return b
}

// WithRefreshTokenStore sets the refresh-record persistence backend.
func (b *Builder) WithRefreshTokenStore(s RefreshTokenStore) *Builder {
	b.refresh = s
	return b
}

// WithMailer sets the outbound verification-secret mailer. When absent,
// secrets are issued but delivery is skipped with a warning log.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithMetrics registers the service counters on reg. When absent, nothing
// is recorded.
func (b *Builder) WithMetrics(reg prometheus.Registerer) *Builder {
	b.registry = reg
	return b
}

// WithClock replaces the service clock. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and assembles the service.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.refresh == nil {
		return nil, errors.New("refresh token store required")
	}

	svc := &Service{
		cfg:     b.cfg,
		log:     b.log,
		users:   b.users,
		refresh: b.refresh,
		mailer:  b.mailer,
		metrics: newMetrics(b.registry),
		now:     b.now,
	}
	if svc.log == nil {
		svc.log = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      b.cfg.Password.Memory,
		Time:        b.cfg.Password.Time,
		Parallelism: b.cfg.Password.Parallelism,
		SaltLength:  b.cfg.Password.SaltLength,
		KeyLength:   b.cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	svc.hasher = hasher

	// Config.Validate already rejected an empty secret in production mode.
	// Outside production the codec stays nil and every authenticated path
	// fails closed at request time.
	if len(b.cfg.Token.SigningSecret) > 0 {
		codec, err := token.NewCodec(token.Config{
			Secret: b.cfg.Token.SigningSecret,
			Issuer: b.cfg.Token.Issuer,
		})
		if err != nil {
			return nil, err
		}
		if b.now != nil {
			codec.WithClock(b.now)
		}
		svc.codec = codec
	}

	b.built = true
	return svc, nil
}
