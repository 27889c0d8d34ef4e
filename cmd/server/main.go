package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"accesshub/internal/cache"
	"accesshub/internal/catalog"
	"accesshub/internal/grant"
	"accesshub/internal/jwttoken"
	"accesshub/internal/ledger"
	"accesshub/internal/notify"
	"accesshub/internal/platform/config"
	"accesshub/internal/platform/httpserver"
	"accesshub/internal/platform/logger"
	"accesshub/internal/platform/metrics"
	platformredis "accesshub/internal/platform/redis"
	"accesshub/internal/store"
	filestore "accesshub/internal/store/file"
	"accesshub/internal/store/postgres"
	httptransport "accesshub/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Record store backend.
	var (
		grants  store.GrantStore
		history store.HistoryStore
		users   store.UserStore
		apps    store.ApplicationStore
		health  func(context.Context) error
	)
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		pg := postgres.New(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		grants, history, users, apps = pg.Grants(), pg.History(), pg.Users(), pg.Applications()
		health = pg.Health
	case config.BackendFile:
		fs, err := filestore.New(filestore.Config{
			DataDir:    cfg.DataDir,
			BackupDir:  cfg.BackupDir,
			MaxBackups: cfg.MaxBackups,
		})
		if err != nil {
			return fmt.Errorf("open file store: %w", err)
		}
		grants, history, users, apps = fs.Grants(), fs.History(), fs.Users(), fs.Applications()
		stats := fs.Stats()
		log.Info("file store opened",
			"data_dir", cfg.DataDir,
			"data_files", stats.DataFiles,
			"total_bytes", stats.TotalBytes,
			"backup_files", stats.BackupFiles,
		)
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	// Cache: Redis when configured, process-local otherwise.
	var lookaside cache.Cache
	if cfg.RedisURL != "" {
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		lookaside = cache.NewRedis(client.Client, "accesshub", log)
		// Redis joins the readiness check alongside the backend ping.
		backendHealth := health
		health = func(ctx context.Context) error {
			if backendHealth != nil {
				if err := backendHealth(ctx); err != nil {
					return err
				}
			}
			return client.Health(ctx)
		}
		log.Info("cache backend", "kind", "redis")
	} else {
		memory := cache.NewMemory()
		memory.StartJanitor(ctx, time.Minute)
		lookaside = memory
		log.Info("cache backend", "kind", "memory")
	}

	// Notification sinks. The log sink is always on; Kafka joins when
	// brokers are configured.
	sinks := []notify.Sink{notify.NewLogSink(log)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := notify.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	dispatcher := notify.NewDispatcher(cfg.NotifyBuffer, log, m, sinks...)

	ledgerSvc := ledger.NewService(history, log, m)
	grantSvc := grant.NewService(grant.Config{
		Grants:       grants,
		Users:        users,
		Applications: apps,
		Cache:        lookaside,
		CacheTTL:     cfg.GrantCacheTTL,
		Ledger:       ledgerSvc,
		Notifier:     dispatcher,
		Logger:       log,
		Metrics:      m,
	})
	catalogSvc := catalog.NewService(users, apps, lookaside, cfg.CatalogCacheTTL, log, m)
	tokens := jwttoken.NewService(cfg.JWTSigningKey, "accesshub")

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Grants:    grantSvc,
		Ledger:    ledgerSvc,
		Catalog:   catalogSvc,
		Validator: tokens,
		Logger:    log,
		Metrics:   m,
		Health:    health,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting accesshub", "addr", cfg.Addr, "backend", string(cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}
	log.Info("accesshub stopped")
	return nil
}
