package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/pawswipe/internal/api"
	"github.com/TimurManjosov/pawswipe/internal/audit"
	"github.com/TimurManjosov/pawswipe/internal/auth"
	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/config"
	"github.com/TimurManjosov/pawswipe/internal/logging"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/store"
	"github.com/TimurManjosov/pawswipe/internal/telemetry"
	"github.com/TimurManjosov/pawswipe/internal/version"
	"github.com/TimurManjosov/pawswipe/internal/webhook"
)

const (
	shutdownTimeout = 10 * time.Second
	auditRingSize   = 1000
	auditQueueSize  = 512
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.TracingEndpoint,
		ServiceName: "pawswipe",
		SampleRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(shutCtx)
	}()

	st, err := store.NewStore(ctx, cfg.StoreType, cfg.StoreDSN())
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	src, watch, err := openCatalog(cfg, log)
	if err != nil {
		return err
	}

	authn, err := auth.NewAuthenticator(cfg.AdminAPIKey, cfg.APIKeys)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if !authn.Enabled() {
		log.Warn().Msg("no API keys configured; decision and admin routes are open")
	}

	ring := audit.NewRingSink(auditRingSize)
	auditSvc := audit.NewService(audit.MultiSink{audit.NewLogSink(log), ring}, log, auditQueueSize)
	defer auditSvc.Close()

	hooks := webhook.NewDispatcher(cfg.WebhookEndpoints(), log)
	hooks.Start()
	defer hooks.Close()

	mgr := session.NewManager(session.Config{
		Engine:  cfg.SwipeOptions(log),
		IdleTTL: cfg.SessionIdleTTL,
	}, src, st, log, session.WithWebhooks(hooks), session.WithAudit(auditSvc))
	// Closed after the HTTP server so in-flight handlers never see a closed manager.
	defer mgr.Close()

	srvAPI := api.NewServer(mgr, src, st, log,
		api.WithAuth(authn),
		api.WithAudit(auditSvc, ring),
		api.WithRateLimit(cfg.RateLimitPerIP),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srvAPI.Router(),
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      0, // streams are long-lived
		IdleTimeout:       60 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 3 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Run(gctx) })
	if watch != nil {
		g.Go(func() error { return watch(gctx) })
	}
	g.Go(func() error { return serve(srv, "api", log) })
	g.Go(func() error { return serve(metricsSrv, "metrics", log) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(shutCtx), metricsSrv.Shutdown(shutCtx))
	})

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("metrics_addr", cfg.MetricsAddr).
		Str("store", cfg.StoreType).
		Str("env", cfg.AppEnv).
		Str("version", version.Version).
		Bool("webhooks", hooks.Enabled()).
		Msg("pawswipe listening")

	return g.Wait()
}

// openCatalog returns the candidate source and, for file catalogs, the
// watcher to run alongside the servers.
func openCatalog(cfg *config.Config, log zerolog.Logger) (catalog.Source, func(context.Context) error, error) {
	if cfg.CatalogPath == "" {
		log.Info().Msg("serving the built-in catalog")
		return catalog.NewEmbeddedSource(), nil, nil
	}
	fs, err := catalog.NewFileSource(cfg.CatalogPath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: %w", err)
	}
	return fs, fs.Watch, nil
}

func serve(srv *http.Server, name string, log zerolog.Logger) error {
	log.Debug().Str("server", name).Str("addr", srv.Addr).Msg("listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
