package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pribylovaa/go-media-hub/internal/cache"
	"github.com/pribylovaa/go-media-hub/internal/config"
	httpapi "github.com/pribylovaa/go-media-hub/internal/http"
	"github.com/pribylovaa/go-media-hub/internal/metrics"
	"github.com/pribylovaa/go-media-hub/internal/service"
	"github.com/pribylovaa/go-media-hub/internal/storage"
	"github.com/pribylovaa/go-media-hub/internal/storage/minio"
	"github.com/pribylovaa/go-media-hub/internal/storage/mongo"
	"github.com/pribylovaa/go-media-hub/internal/storage/postgres"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env, "storage", cfg.Storage.Driver)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	str, err := openStorage(dbCtx, cfg)
	dbCancel()
	if err != nil {
		return err
	}
	log.Info("storage_connected", slog.String("driver", cfg.Storage.Driver))

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := str.Close(closeCtx); err != nil {
			log.Warn("storage_close_failed", slog.String("err", err.Error()))
		}
	}()

	s3Ctx, s3Cancel := context.WithTimeout(ctx, 10*time.Second)
	assets, err := minio.New(s3Ctx, cfg.S3, cfg.Assets)
	s3Cancel()
	if err != nil {
		return fmt.Errorf("minio: %w", err)
	}
	log.Info("asset_store_connected", slog.String("bucket", cfg.S3.Bucket))

	// Сервис.
	srvc := service.New(str, assets, cfg.Auth)

	// Кэш refresh-токенов - опционально.
	if cfg.Redis.URL != "" {
		rcCtx, rcCancel := context.WithTimeout(ctx, 5*time.Second)
		rc, err := cache.NewRedisCache(rcCtx, cfg.Redis.URL, cfg.Redis.Prefix)
		rcCancel()
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = rc.Close() }()

		srvc.SetRefreshCache(rc)
		log.Info("refresh_cache_enabled")
	}
	log.Info("service_initialized")

	// Метрики и health-пробы на отдельном порту.
	var ready int32 // 0 - not ready; 1 - ready
	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTP(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", metrics.Handler(reg))

	metricsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// REST API.
	apiSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: httpapi.NewRouter(srvc, httpapi.Options{
			Logger:       log,
			Metrics:      httpMetrics,
			Timeout:      cfg.Timeouts.Service,
			BasePath:     cfg.HTTP.BasePath,
			BodyLimit:    cfg.HTTP.BodyLimitBytes,
			MaxAssetSize: cfg.Assets.MaxSizeBytes,
			CORSOrigins:  cfg.CORS.Origins,
			Cookie:       cfg.Cookie,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		log.Info(name+"_listen_start", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("%s: %w", name, err)
		}
	}

	go serve("metrics", metricsSrv)
	go serve("http", apiSrv)

	// Готовность определяется доступностью БД.
	atomic.StoreInt32(&ready, 1)
	startHealthProbe(ctx, str, log, cfg.Timeouts.HealthCheck, &ready)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		log.Error("http_serve_failed", slog.String("err", serveErr.Error()))
	}

	atomic.StoreInt32(&ready, 0)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = apiSrv.Close()
	} else {
		log.Info("http_stopped")
	}

	_ = metricsSrv.Shutdown(shutdownCtx)

	return serveErr
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		str, err := postgres.New(ctx, cfg.Postgres.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return str, nil
	default:
		str, err := mongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		return str, nil
	}
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// pinger - часть storage.Storage, нужная пробе готовности.
type pinger interface {
	Ping(ctx context.Context) error
}

// startHealthProbe периодически пингует хранилище и переключает флаг готовности
// для /healthz. Изменение состояния логируется один раз.
func startHealthProbe(ctx context.Context, db pinger, log *slog.Logger, period time.Duration, ready *int32) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				probe(ctx, db, log, period, ready)
			}
		}
	}()
}

func probe(ctx context.Context, db pinger, log *slog.Logger, timeout time.Duration, ready *int32) {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.Ping(pingCtx); err != nil {
		if atomic.SwapInt32(ready, 0) == 1 {
			log.Error("storage_unavailable", slog.String("err", err.Error()))
		}
		return
	}

	if atomic.SwapInt32(ready, 1) == 0 {
		log.Info("storage_available")
	}
}
