package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-pricing/internal/config"
	"github.com/noah-isme/checkout-pricing/internal/health"
	"github.com/noah-isme/checkout-pricing/internal/obs"
	"github.com/noah-isme/checkout-pricing/internal/quote"
	"github.com/noah-isme/checkout-pricing/internal/ratelimit"
	"github.com/noah-isme/checkout-pricing/internal/security"
)

type routerDeps struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Quotes      *quote.Service
	Limiter     ratelimit.Limiter
	Health      health.Handler
	HTTPMetrics *obs.HTTPMetrics
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.EnableTracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{Enable: cfg.SecureHeaders, EnableHSTS: cfg.AppEnv == "production"}.Middleware)

	if d.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)

	quotes := &quote.Handler{Svc: d.Quotes}
	limit := ratelimit.Handler{
		Limiter: d.Limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.KeyByClientIP("quotes:"),
			Window: time.Minute,
			Max:    cfg.QuotesPerMinute,
		},
		OnError: func(err error) {
			d.Logger.Warn().Err(err).Msg("rate limit store unavailable")
		},
		OnReject: func(*http.Request) {
			if obs.QuoteRateLimited != nil {
				obs.QuoteRateLimited.Inc()
			}
		},
	}
	r.Route("/api/v1", func(v chi.Router) {
		v.With(
			limit.Middleware,
			security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware,
			security.RequireJSON,
		).Post("/quotes", quotes.Create)
	})
	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
