package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"shopgrid/internal/pkg/config"
	"shopgrid/internal/pkg/logger"
	"shopgrid/internal/pkg/registry"
	"shopgrid/internal/pkg/tracing"
)

// App is handed to each service's setup hook so it can wire handlers and
// share the infrastructure bootstrap already built.
type App struct {
	Config   *config.Config
	Registry registry.Registry
	Mux      *http.ServeMux
}

// Options describe one service binary.
type Options struct {
	ServiceName string
	// Setup registers routes and builds service dependencies. The returned
	// cleanup runs during graceful shutdown, after the HTTP server stops.
	Setup func(app *App) (cleanup func(), err error)
}

// Run carries a service through its whole lifecycle: configuration, logging,
// tracing, registry registration, HTTP serving and graceful shutdown with
// deregistration. Every cmd/ binary funnels through here.
func Run(opts Options) {
	cfgPath := os.Getenv("SHOPGRID_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("load config")
	}
	cfg.Server.Name = opts.ServiceName

	logger.Init(opts.ServiceName, cfg.Log.Level)

	tp, err := tracing.InitTracerProvider(opts.ServiceName, cfg.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracer provider")
	}

	reg, err := registry.New(&cfg.Registry)
	if err != nil {
		log.Fatal().Err(err).Msg("init service registry")
	}

	app := &App{
		Config:   cfg,
		Registry: reg,
		Mux:      http.NewServeMux(),
	}

	cleanup, err := opts.Setup(app)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup")
	}

	inst := registry.Instance{
		Name: opts.ServiceName,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	regCtx, regCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := reg.Register(regCtx, inst); err != nil {
		regCancel()
		log.Fatal().Err(err).Msg("register service instance")
	}
	regCancel()
	log.Info().Str("addr", inst.Addr()).Msg("service registered")

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: app.Mux,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		log.Error().Err(err).Msg("http server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := reg.Deregister(ctx, inst); err != nil {
		log.Error().Err(err).Msg("deregister service instance")
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown http server")
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown tracer provider")
	}
	if cleanup != nil {
		cleanup()
	}
	if err := reg.Close(); err != nil {
		log.Error().Err(err).Msg("close registry")
	}

	log.Info().Msg("service stopped")
}
