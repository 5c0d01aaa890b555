// Package api exposes the health engine, endpoint selection and notification
// inbox over HTTP.
//
// Read endpoints are public. Endpoints that change state or cost a probe
// cycle require a bearer token with the operator role, and manual refreshes
// are rate limited per client IP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/notify"
	"github.com/jonwraymond/healthops/observe"
)

// Config wires the router's collaborators.
type Config struct {
	Engine   *health.Engine
	Verifier *auth.Verifier

	// Preferences and Inbox enable the notification routes when set.
	Preferences *notify.Preferences
	Inbox       notify.Inbox

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	Logger observe.Logger

	// RefreshLimit manual refreshes are allowed per RefreshWindow per IP.
	// Default: 6 per minute
	RefreshLimit  int
	RefreshWindow time.Duration

	// EventsKeepAlive is the SSE comment interval.
	// Default: 15 seconds
	EventsKeepAlive time.Duration
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = observe.NopLogger()
	}
	if c.RefreshLimit <= 0 {
		c.RefreshLimit = 6
	}
	if c.RefreshWindow <= 0 {
		c.RefreshWindow = time.Minute
	}
	if c.EventsKeepAlive <= 0 {
		c.EventsKeepAlive = 15 * time.Second
	}
	return c
}

// NewRouter builds the HTTP router.
func NewRouter(cfg Config) (*chi.Mux, error) {
	if cfg.Engine == nil {
		return nil, ErrNilEngine
	}
	if cfg.Verifier == nil {
		return nil, ErrNilVerifier
	}
	cfg = cfg.withDefaults()

	h := &handlers{
		engine: cfg.Engine,
		prefs:  cfg.Preferences,
		inbox:  cfg.Inbox,
		logger: cfg.Logger,
	}
	operator := auth.Require(cfg.Verifier, auth.RoleOperator)
	refreshLimit := httprate.Limit(
		cfg.RefreshLimit,
		cfg.RefreshWindow,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "refresh rate limit exceeded")
		}),
	)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(cfg.Logger))
	r.Use(Recovery(cfg.Logger))

	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", health.ReadinessHandler(cfg.Engine))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/", health.SnapshotHandler(cfg.Engine))
			r.Get("/history", health.HistoryHandler(cfg.Engine))
			r.Get("/thresholds", health.ThresholdsHandler(cfg.Engine))
			r.Get("/events", health.EventsHandler(cfg.Engine, cfg.EventsKeepAlive))
			r.With(refreshLimit, operator).Post("/refresh", h.refresh)

			r.Get("/selection", h.getSelection)
			r.With(operator).Put("/selection", h.putSelection)
		})

		if cfg.Preferences != nil && cfg.Inbox != nil {
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.listNotifications)
				r.With(operator).Post("/{id}/read", h.markRead)
				r.Get("/preferences", h.getPreferences)
				r.With(operator).Put("/preferences", h.putPreferences)
			})
		}
	})

	return r, nil
}
