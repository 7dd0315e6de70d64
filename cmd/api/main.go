package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-pricing/internal/config"
	"github.com/noah-isme/checkout-pricing/internal/health"
	"github.com/noah-isme/checkout-pricing/internal/obs"
	"github.com/noah-isme/checkout-pricing/internal/quote"
	"github.com/noah-isme/checkout-pricing/internal/ratelimit"
)

const serviceName = "checkout-pricing"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	if cfg.EnableTracing {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   serviceName,
			Endpoint:      cfg.OTLPEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			cfg.EnableTracing = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	limiter, probes, closeStore := rateLimitStore(cfg, logger)
	defer closeStore()

	deps := routerDeps{
		Config:  cfg,
		Logger:  logger,
		Quotes:  quote.NewService(cfg.DefaultCurrency, cfg.MaxLineItems, logger),
		Limiter: limiter,
		Health:  health.Handler{Probes: probes},
	}
	if cfg.EnablePrometheus {
		deps.HTTPMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsMS), nil)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

// rateLimitStore picks the shared Redis store when configured and falls back
// to a per-process memory store otherwise.
func rateLimitStore(cfg *config.Config, logger zerolog.Logger) (ratelimit.Limiter, map[string]health.Probe, func()) {
	const prefix = "pricing:rl"
	if cfg.RateLimitRedisURL == "" {
		return ratelimit.NewMemoryLimiter(prefix), nil, func() {}
	}

	opts, err := redis.ParseURL(cfg.RateLimitRedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.EnablePrometheus {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	limiter, err := ratelimit.NewRedisLimiter(client, prefix)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise redis rate limiter")
	}
	probes := map[string]health.Probe{
		"ratelimit_store": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
	return limiter, probes, func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}
}
