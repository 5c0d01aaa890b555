// Command healthd runs the health aggregation engine behind its HTTP API.
//
// Usage:
//
//	healthd -config healthd.yaml
//
// The config path may also be given with HEALTHOPS_CONFIG. See package config
// for the file format and environment overrides.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/healthops/api"
	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/config"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/kv"
	"github.com/jonwraymond/healthops/notify"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/probe"
	"github.com/jonwraymond/healthops/resilience"
	"github.com/jonwraymond/healthops/selection"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.Path(*configPath)); err != nil {
		fmt.Fprintf(os.Stderr, "healthd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Service.Version == "dev" {
		cfg.Service.Version = Version
	}

	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	tel, err := observe.TelemetryFromObserver(obs)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	logger := tel.Logger

	var closers []func() error
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			err = errors.Join(err, closers[i]())
		}
		err = errors.Join(err, obs.Shutdown(shutdownCtx))
	}()

	store, sinks, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	signer, err := auth.NewSigner(cfg.JWTConfig())
	if err != nil {
		return fmt.Errorf("signer: %w", err)
	}
	verifier, err := auth.NewVerifier(cfg.JWTConfig())
	if err != nil {
		return fmt.Errorf("verifier: %w", err)
	}
	tokens := auth.NewTokenSource(signer, cfg.Service.Name, auth.RoleProbe)

	probes, gauges, err := probe.Build(cfg.Probes.Endpoints, func(name string) probe.Doer {
		cc := cfg.ClientConfig(name)
		cc.Transport = &auth.Transport{Source: tokens}
		cc.CircuitBreaker.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn(ctx, "probe circuit breaker state changed",
				observe.String("upstream", name),
				observe.String("from", from.String()),
				observe.String("to", to.String()))
		}
		return resilience.NewClient(cc)
	})
	if err != nil {
		return fmt.Errorf("probes: %w", err)
	}
	if gauges == nil {
		logger.Info(ctx, "no gauge endpoint configured, reporting process memory only")
		gauges = health.NewRuntimeGauges(health.RuntimeGaugesConfig{})
	}

	engine, err := health.NewEngine(
		selection.NewPersistentStore(store, selection.WithLogger(logger)),
		health.WithConfig(cfg.EngineConfig()),
		health.WithProbes(probes...),
		health.WithGaugeSource(gauges),
		health.WithTelemetry(tel),
		health.WithSinks(sinks...),
	)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	closers = append(closers, engine.Close)

	inbox := notify.NewMemoryInbox(cfg.Notify.InboxSize)
	prefs := notify.NewPreferences(store, "")
	notifier, err := notify.NewNotifier(engine, prefs, inbox, notify.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}

	routerCfg := api.Config{
		Engine:          engine,
		Verifier:        verifier,
		Preferences:     prefs,
		Inbox:           inbox,
		Logger:          logger,
		RefreshLimit:    cfg.HTTP.RefreshLimit,
		RefreshWindow:   cfg.HTTP.RefreshWindow,
		EventsKeepAlive: cfg.HTTP.EventsKeepAlive,
	}
	if cfg.Telemetry.MetricsExporter == "prometheus" {
		routerCfg.Metrics = promhttp.Handler()
	}
	router, err := api.NewRouter(routerCfg)
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	// Subscribe before the first cycle so a startup status change reaches
	// the inbox.
	consumeEvents := notifier.Subscribe()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumeEvents(gctx)
	})

	g.Go(func() error {
		snap, err := engine.Init(gctx)
		if err != nil {
			if gctx.Err() != nil || errors.Is(err, health.ErrEngineClosed) {
				return nil
			}
			return fmt.Errorf("initial cycle: %w", err)
		}
		logger.Info(gctx, "initial cycle complete",
			observe.String("overall", snap.OverallStatus.String()),
			observe.Int("failures", snap.Failures()))
		if err := engine.Start(gctx); err != nil && !errors.Is(err, health.ErrEngineClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info(gctx, "http server listening",
			observe.String("addr", server.Addr),
			observe.String("version", cfg.Service.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		// Closing the engine ends SSE streams so Shutdown does not wait on them.
		closeErr := engine.Close()
		return errors.Join(closeErr, server.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

// openStore returns the preference store and, when Redis is configured, the
// pub/sub event sink.
func openStore(ctx context.Context, cfg *config.Config, logger observe.Logger) (kv.Store, []health.EventSink, func() error, error) {
	redisCfg, ok := cfg.RedisConfig()
	if !ok {
		logger.Warn(ctx, "redis not configured, preferences will not survive restarts")
		return kv.NewMemoryStore(), nil, func() error { return nil }, nil
	}

	client, err := kv.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	sink, err := notify.NewRedisSink(client, cfg.Redis.Channel)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}

	logger.Info(ctx, "redis connected",
		observe.String("address", redisCfg.Address),
		observe.String("channel", sink.Channel()))

	var store kv.Store = kv.NewRedisStore(client)
	if cfg.Redis.KeyPrefix != "" {
		store = kv.Namespace(store, cfg.Redis.KeyPrefix)
	}
	return store, []health.EventSink{sink}, closeRedis(client), nil
}

func closeRedis(client *redis.Client) func() error {
	return func() error { return client.Close() }
}
