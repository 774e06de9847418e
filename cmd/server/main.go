package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"zwavenet/internal/config"
	"zwavenet/internal/handler"
	"zwavenet/internal/hass"
	"zwavenet/internal/hub"
	"zwavenet/internal/logging"
	"zwavenet/internal/metrics"
	"zwavenet/internal/poller"
	"zwavenet/internal/repository/sqlite"
	"zwavenet/internal/service"
	"zwavenet/internal/watcher"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Config file path (default: search ZWAVENET_CONFIG, ./zwavenet.yaml, XDG, /etc)")
	addr := flag.String("addr", "", "HTTP listen address, overrides the configured bind and port")
	flag.Parse()

	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	// Load configuration: file, then environment
	var (
		cfg    *config.Config
		loaded string
		err    error
	)
	if *configPath != "" {
		cfg, loaded, err = config.LoadFromPath(*configPath)
	} else {
		cfg, loaded, err = config.Load()
	}
	if err != nil {
		boot.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		boot.Fatal().Err(err).Msg("Invalid environment")
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("Invalid configuration")
	}

	log, logOutput, err := logging.New(cfg.Log)
	if err != nil {
		boot.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logOutput.Close()

	if loaded != "" {
		log.Info().Str("path", loaded).Msg("Config loaded")
	}
	log.Info().Msg("Starting zwavenet server...")
	for _, line := range strings.Split(cfg.Summary(), "\n") {
		log.Info().Msg(line)
	}

	// Initialize SQLite repository
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer repo.Close()
	repo.SetHistory(cfg.Database.History)
	log.Info().Str("path", cfg.Database.Path).Msg("Database opened")

	registry := metrics.NewRegistry()

	// Initialize event bus
	eventBus := service.NewEventBus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize SSE hub
	sseHub := hub.New(registry.SSEClients, log)
	go sseHub.Run(ctx)

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for {
			select {
			case event := <-eventChan:
				sseHub.Broadcast(event)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Hub source: live websocket polling or cached payload replay
	var source poller.Source
	if cfg.Mode.IsLocal() {
		source = poller.NewCacheSource(repo, log)
	} else {
		dialer := &hass.WebsocketDialer{
			InsecureSkipVerify: cfg.InsecureSkipVerify(),
			HandshakeTimeout:   cfg.Poll.HandshakeTimeout.Duration(),
			ReadTimeout:        cfg.Poll.ReadTimeout.Duration(),
		}
		client := hass.NewClient(cfg.WebSocketURL(), cfg.Hub.Token, dialer, log)
		source = poller.NewHubSource(client, repo, registry, log)
	}

	engine := poller.New(poller.Config{
		Interval: cfg.Poll.Interval.Duration(),
		Mode:     string(cfg.Mode),
	}, source, repo, registry, log)

	if err := engine.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to restore last snapshot")
	}

	// REST client backs the states proxy when the hub speaks http(s)
	var states service.StatesFetcher
	if strings.HasPrefix(cfg.Hub.URL, "http://") || strings.HasPrefix(cfg.Hub.URL, "https://") {
		states = hass.NewRESTClient(cfg.Hub.URL, cfg.Hub.Token, cfg.InsecureSkipVerify())
	}

	// Initialize services
	topologySvc := service.NewTopologyService(engine, repo, states, eventBus)
	engine.SetEventHandler(topologySvc.PublishPollEvent)

	limiter := rate.NewLimiter(rate.Every(cfg.API.RefreshInterval.Duration()), cfg.API.RefreshBurst)
	topologyHandler := handler.NewTopologyHandler(topologySvc, limiter, log)

	// Setup routes
	mux := http.NewServeMux()
	topologyHandler.Register(mux)
	mux.Handle("GET /metrics", registry.Handler())
	mux.Handle("GET /events", sseHub)

	// Apply middleware
	finalHandler := handler.Chain(mux,
		handler.Recover(log),
		handler.CORS,
		handler.Metrics(registry),
		handler.Logger(log),
	)

	// Reload log level and refresh throttling when the config file changes
	if loaded != "" {
		w := watcher.New(loaded, func() {
			next, _, err := config.LoadFromPath(loaded)
			if err == nil {
				err = next.ApplyEnv(os.Getenv)
			}
			if err != nil {
				log.Warn().Err(err).Msg("Ignoring invalid config change")
				return
			}
			level := logOutput.SetLevel(next.Log.Level)
			limiter.SetLimit(rate.Every(next.API.RefreshInterval.Duration()))
			limiter.SetBurst(next.API.RefreshBurst)
			log.Info().Str("level", level.String()).Msg("Config reloaded")
		}, log)
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("Config watcher stopped")
			}
		}()
	}

	listen := cfg.Addr()
	if *addr != "" {
		listen = *addr
	}

	// WriteTimeout stays unset so /events streams are not cut off
	server := &http.Server{
		Addr:              listen,
		Handler:           finalHandler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start polling
	engine.Start(ctx)

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", listen).Bool("tls", cfg.TLSEnabled()).Msg("Server listening")

		var err error
		if cfg.TLSEnabled() {
			err = server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop the SSE streams and the poll loop context, then drain HTTP
	// handlers before closing the hub connection
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	if err := engine.Stop(); err != nil {
		log.Warn().Err(err).Msg("Poller shutdown error")
	}

	log.Info().Msg("Server stopped")
}
