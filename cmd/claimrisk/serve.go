package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leobarcove/true-claim-insight/pkg/analyzer"
	"github.com/leobarcove/true-claim-insight/pkg/api"
	"github.com/leobarcove/true-claim-insight/pkg/assets"
	"github.com/leobarcove/true-claim-insight/pkg/audit"
	"github.com/leobarcove/true-claim-insight/pkg/config"
	"github.com/leobarcove/true-claim-insight/pkg/evidence"
	"github.com/leobarcove/true-claim-insight/pkg/logging"
	"github.com/leobarcove/true-claim-insight/pkg/media"
	"github.com/leobarcove/true-claim-insight/pkg/observability"
	"github.com/leobarcove/true-claim-insight/pkg/queue"
	"github.com/leobarcove/true-claim-insight/pkg/segment"
)

func runServer(ctx context.Context, _ io.Writer, stderr io.Writer) int {
	cfg := config.Load()
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, stderr)
	log := logging.New("server")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return err
	}

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:    "claimrisk",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        cfg.OTelEnabled,
		Insecure:       true,
	})
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(sctx)
	}()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	rdb := connectRedis(ctx, cfg.RedisAddr, log)
	if rdb != nil {
		defer rdb.Close()
	}

	src, err := assets.NewSourceFromConfig(ctx, cfg, profile.URLCache.SignTTL)
	if err != nil {
		return fmt.Errorf("asset storage: %w", err)
	}
	var urlCache assets.URLCache = assets.NewMemoryURLCache()
	var coordinator segment.Coordinator
	if rdb != nil {
		urlCache = assets.NewRedisURLCache(rdb)
		coordinator = segment.NewRedisCoordinator(rdb)
	}
	cached := assets.NewCachingSource(src, urlCache, profile.URLCache.CacheTTL)

	anOpts := analyzer.OptionsFromProfile(cfg.AnalyzerURL, profile)
	anOpts.Logger = logging.New("analyzer")
	an, err := analyzer.New(anOpts)
	if err != nil {
		return fmt.Errorf("analyzer client: %w", err)
	}

	scratch := filepath.Join(cfg.DataDir, "tmp")
	if err := os.MkdirAll(scratch, 0750); err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}
	orch := segment.New(st, cached, media.NewExtractor(scratch), an, segment.Options{
		WindowSeconds: profile.Segments.WindowSeconds,
		PoolSize:      profile.Segments.PoolSize,
		Coordinator:   coordinator,
		Observability: obs,
	})

	validator, err := evidence.NewValidator()
	if err != nil {
		return err
	}
	auditor := audit.New(st, validator, audit.WithObservability(obs))

	docs := queue.New(st, auditor, queue.Options{Observability: obs})
	if err := docs.Start(ctx); err != nil {
		return err
	}
	defer docs.Stop()

	srv := &api.Server{
		Audits:    auditor,
		Documents: docs,
		Segments:  orch,
		Assets:    st,
		Checks:    map[string]api.HealthCheck{"analyzer": an.Health},
		Version:   version,
		Logger:    logging.New("api"),
	}
	handler := srv.Handler()
	if cfg.APIRatePerSecond > 0 {
		handler = api.NewRateLimiter(ctx, cfg.APIRatePerSecond, cfg.APIRateBurst).Middleware(handler)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", httpServer.Addr, "profile", profile.Name, "storage", cfg.AssetStorageType)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	orch.Wait()
	return nil
}

// connectRedis returns nil when no address is configured or the server is
// unreachable; callers fall back to single-instance behaviour.
func connectRedis(ctx context.Context, addr string, log *slog.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		log.Warn("redis unavailable, running single-instance", "addr", addr, "error", err)
		_ = rdb.Close()
		return nil
	}
	log.Info("redis connected", "addr", addr)
	return rdb
}
