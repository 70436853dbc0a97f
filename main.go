package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"city-weather/api"
	"city-weather/datasource"
	"city-weather/query"
	"city-weather/web"

	"github.com/robfig/cron/v3"
)

func main() {
	// Parse command line arguments
	configFile := flag.String("config", envOr("CONFIG_FILE", "config.yaml"), "Path to YAML configuration file")
	port := flag.Int("port", 0, "Port to run the server on (overrides HTTP_PORT)")
	flag.Parse()

	// Load configuration
	config, err := datasource.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		config.Server.Port = *port
	}

	logger := newLogger(config.LogLevel)
	slog.SetDefault(logger)

	loc, err := config.Location()
	if err != nil {
		log.Fatalf("Failed to resolve display timezone: %v", err)
	}

	// Upstream client: bounded timeout behind a circuit breaker, no retries
	client := datasource.NewClient(
		&http.Client{Timeout: config.Query.Timeout},
		"openweathermap",
		config.OpenWeatherMap.BreakerMaxFailures,
		30*time.Second,
	)
	provider := datasource.NewOpenWeatherMapProvider(config.OpenWeatherMap, client, logger)

	renderer, err := web.NewRenderer(web.Options{
		IconBaseURL: config.OpenWeatherMap.IconBaseURL,
		Units:       config.OpenWeatherMap.Units,
		Lang:        config.OpenWeatherMap.Lang,
		Location:    loc,
	})
	if err != nil {
		log.Fatalf("Failed to load page templates: %v", err)
	}

	sessions := api.NewSessionStore(config.Session.IdleTTL, logger)
	limiter := api.NewClientLimiter(config.Server.SearchRatePerIP, config.Server.SearchBurst)

	server, err := api.NewServer(api.Dependencies{
		Searcher:     query.NewSearcher(provider, config.Query.Timeout, config.Query.MaxCityChars, logger),
		Sessions:     sessions,
		Renderer:     renderer,
		Limiter:      limiter,
		Logger:       logger,
		BreakerState: func() string { return client.State().String() },
	}, config.Server.Port)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Periodically forget idle sessions and throttle entries
	scheduler := cron.New()
	if err := sessions.SchedulePrune(scheduler, config.Session.PruneSchedule); err != nil {
		log.Fatalf("Invalid session prune schedule %q: %v", config.Session.PruneSchedule, err)
	}
	if _, err := scheduler.AddFunc(config.Session.PruneSchedule, func() {
		if removed := limiter.Prune(config.Session.IdleTTL); removed > 0 {
			logger.Debug("pruned idle throttle entries", slog.Int("removed", removed))
		}
	}); err != nil {
		log.Fatalf("Invalid session prune schedule %q: %v", config.Session.PruneSchedule, err)
	}
	scheduler.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the API server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("server stopped", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	<-scheduler.Stop().Done()

	logger.Info("shutdown complete")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
