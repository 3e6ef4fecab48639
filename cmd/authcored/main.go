// Command authcored runs the classtape session service: HTTP API, postgres
// (or redis) persistence, SMTP verification mail, and prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/classtape/authcore"
	"github.com/classtape/authcore/internal/config"
	"github.com/classtape/authcore/mail"
	"github.com/classtape/authcore/store/postgres"
	"github.com/classtape/authcore/store/redisstore"
	"github.com/classtape/authcore/web"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting authcored",
		zap.String("env", cfg.App.Env), zap.String("version", cfg.App.Version))

	db, err := postgres.New(rootCtx, cfg.DB)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	users := postgres.NewUserStore(db)

	var refreshStore authcore.RefreshTokenStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		store := redisstore.New(rdb, cfg.Auth.RefreshTTL)
		if err := store.Ping(rootCtx); err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}
		refreshStore = store
		logger.Info("refresh store: redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		pgRefresh := postgres.NewRefreshTokenStore(db)
		refreshStore = pgRefresh
		go runRefreshJanitor(rootCtx, pgRefresh, cfg.Auth.RefreshTTL, logger)
		logger.Info("refresh store: postgres")
	}

	mailer, err := mail.New(cfg.Mail)
	if err != nil {
		logger.Fatal("mail setup", zap.Error(err))
	}
	if !mailer.Enabled() {
		logger.Warn("outbound mail disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	coreCfg, err := cfg.CoreConfig()
	if err != nil {
		logger.Fatal("core config", zap.Error(err))
	}
	svc, err := authcore.New().
		WithConfig(coreCfg).
		WithLogger(logger).
		WithUserStore(users).
		WithRefreshTokenStore(refreshStore).
		WithMailer(mailer).
		WithMetrics(registry).
		Build()
	if err != nil {
		logger.Fatal("build service", zap.Error(err))
	}

	csrfKey, err := cfg.CSRFKey()
	if err != nil {
		logger.Fatal("csrf key", zap.Error(err))
	}
	server, err := web.New(svc, logger, web.Config{
		CSRFKey:          csrfKey,
		CSRFMaxAge:       cfg.Server.CSRFMaxAge,
		SecureCookies:    cfg.Server.SecureCookies,
		ReqBodySizeLimit: cfg.Server.ReqBodySizeLimit,
		BuildVersion:     cfg.App.Version,
		Metrics: promhttp.HandlerFor(registry,
			promhttp.HandlerOpts{Registry: registry}),
	})
	if err != nil {
		logger.Fatal("build server", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", zap.String("addr", cfg.Server.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)
	logger.Info("bye")
}

// runRefreshJanitor periodically deletes refresh records past the refresh
// TTL. Redemption already rejects them; this keeps the table from growing
// without bound.
func runRefreshJanitor(ctx context.Context, store *postgres.RefreshTokenStore, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpiredRefreshTokens(ctx, time.Now().Add(-ttl))
			if err != nil {
				logger.Error("refresh janitor", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("refresh janitor", zap.Int64("deleted", n))
			}
		}
	}
}
