package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"relaypolicyd/internal/ops"
	"relaypolicyd/internal/platform/config"
	"relaypolicyd/internal/platform/logger"
	"relaypolicyd/internal/platform/postgres"
	redisclient "relaypolicyd/internal/platform/redis"
	"relaypolicyd/internal/policy/account"
	"relaypolicyd/internal/policy/audit"
	"relaypolicyd/internal/policy/blacklist"
	"relaypolicyd/internal/policy/engine"
	"relaypolicyd/internal/policy/metrics"
	"relaypolicyd/internal/policy/ratelimit"
	"relaypolicyd/internal/policy/server"
)

// main wires the shared store clients, the decision engine, and the two
// listeners (policy TCP, ops HTTP). Store handles are constructed here and
// injected; nothing below holds ambient globals. Business logic lives under
// internal/policy.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres startup", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := redisclient.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis startup", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	counters := ratelimit.NewRedisCounterStore(rdb.Client)
	perSecond, err := ratelimit.New(counters, time.Second)
	if err != nil {
		log.Error("per-second limiter", "error", err)
		os.Exit(1)
	}
	perMinute, err := ratelimit.New(counters, time.Minute)
	if err != nil {
		log.Error("per-minute limiter", "error", err)
		os.Exit(1)
	}

	var sink audit.Sink = audit.NewLogSink(log)
	if len(cfg.KafkaBrokers) > 0 {
		sink, err = audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("kafka audit sink", "error", err)
			os.Exit(1)
		}
	}
	publisher := audit.NewPublisher(sink, audit.WithLogger(log))
	defer publisher.Close()

	m := metrics.New()

	eng, err := engine.New(account.NewPostgres(db), perSecond, perMinute,
		engine.WithLogger(log),
		engine.WithMetrics(m),
		engine.WithAuditPublisher(publisher),
		engine.WithPoolBindAddress(cfg.PoolBindAddress),
	)
	if err != nil {
		log.Error("engine", "error", err)
		os.Exit(1)
	}

	mode, err := server.ParseSessionMode(cfg.SessionMode)
	if err != nil {
		log.Error("session mode", "error", err)
		os.Exit(1)
	}
	srv, err := server.New(cfg.PolicyAddr, eng,
		server.WithLogger(log),
		server.WithMetrics(m),
		server.WithSessionMode(mode),
	)
	if err != nil {
		log.Error("policy server", "error", err)
		os.Exit(1)
	}

	opsSrv := ops.New(log, blacklist.NewPostgres(db),
		ops.Dependency{Name: "postgres", Check: db.PingContext},
		ops.Dependency{Name: "redis", Check: rdb.Health},
	).Server(cfg.OpsAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		log.Info("ops server listening", "addr", cfg.OpsAddr)
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return opsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
