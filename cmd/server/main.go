package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hls-adinsert/internal/adinsert"
	"hls-adinsert/internal/platform/config"
	"hls-adinsert/internal/platform/logger"
	"hls-adinsert/internal/platform/metrics"
	"hls-adinsert/internal/sessionstore"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

// sessionStore is what main needs from any store implementation.
type sessionStore interface {
	adinsert.SessionStore
	sessionstore.Purger
	sessionstore.Counter
	Close() error
}

func main() {
	_ = config.Load()

	bootLog := logger.New(config.GetEnv("LOG_LEVEL", "info"), config.GetEnv("LOG_FORMAT", "json"))
	cfg, err := config.FromEnv(adinsert.DefaultAdBreakTemplate, adinsert.DefaultCatalog)
	if err != nil {
		bootLog.Error("config error", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("session store error", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	switch s := store.(type) {
	case *sessionstore.SQLiteStore:
		log.Info("session store opened", "driver", cfg.StoreDriver, "name", cfg.StoreName, "path", s.Path())
	case *sessionstore.PostgresStore:
		log.Info("session store opened", "driver", cfg.StoreDriver, "name", cfg.StoreName, "max_conns", cfg.PostgresMaxConns)
	default:
		log.Info("session store opened", "driver", cfg.StoreDriver)
	}

	if cfg.SessionTTL > 0 {
		go sessionstore.RunJanitor(ctx, store, max(cfg.SessionTTL/2, time.Second), log)
	}

	origin, err := adinsert.NewOrigin(cfg.OriginURL, cfg.OriginTimeout, log)
	if err != nil {
		log.Error("origin error", "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	decider := adinsert.NewRandomDecider(cfg.AdCatalog, nil)
	binder := adinsert.NewBinder(store, decider, log, met, cfg.BindTimeout)
	svc := adinsert.NewService(origin, store, adinsert.NewIDGenerator(nil), binder, adinsert.ServiceConfig{
		Template:      cfg.AdBreakTemplate,
		Marker:        cfg.AdBreakMarker,
		SegmentPrefix: cfg.AdSegmentPrefix,
		BindMode:      adinsert.BindMode(cfg.BindMode),
		FallbackAd:    cfg.FallbackAd,
	})
	h := adinsert.NewHandler(svc, origin, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get(cfg.MetricsPath, func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			if n, err := store.Count(r.Context()); err == nil {
				met.SetStoreEntries(n)
			}
		}).ServeHTTP(w, r)
	})
	r.Handle("/*", http.HandlerFunc(h.Dispatch))

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"origin", cfg.OriginURL,
		"store_driver", cfg.StoreDriver,
		"store_name", cfg.StoreName,
		"bind_mode", cfg.BindMode,
		"ad_catalog", decider.Catalog(),
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	if err := svc.Wait(shutdownCtx); err != nil {
		log.Error("pending session binds abandoned", "error", err)
	}
	stop()

	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Settings) (sessionStore, error) {
	switch cfg.StoreDriver {
	case "memory":
		return sessionstore.NewMemoryStore(cfg.SessionTTL), nil
	case "sqlite":
		return sessionstore.OpenSQLite(ctx, cfg.SQLitePath, cfg.StoreName, cfg.SessionTTL)
	case "postgres":
		return sessionstore.OpenPostgres(ctx, cfg.PostgresDSN, cfg.StoreName, cfg.SessionTTL, cfg.PostgresMaxConns)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
