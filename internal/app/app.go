package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/spf13/viper"

	"superchat/client/internal/api"
	"superchat/client/internal/backend"
	"superchat/client/internal/config"
	"superchat/client/internal/database"
	"superchat/client/internal/repository"
	"superchat/client/internal/service"
)

func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger here.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)
	logConfigSource()

	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		slog.Error("Failed to initialize local history cache", "error", err)
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()
	slog.Info("Successfully opened local history cache.")

	cache := repository.NewSQLiteRepository(db)
	client := backend.NewHTTPClient(cfg.BackendURL)

	ready := service.NewReadiness()
	sessions := service.NewSessionStore(client, cache, ready)
	stream := service.NewStreamCoordinator(sessions, client, ready, cfg.HistorySize)
	files := service.NewFileCoordinator(client, ready)
	workflows := service.NewWorkflowSelector(ready, defaultModel())
	mcp := service.NewMcpRegistry(client)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	if err := routeEvents(ctx, bus, stream, files); err != nil {
		slog.Error("Failed to subscribe to event topics", "error", err)
		return 1
	}
	events := backend.NewEventStream(eventStreamURL(cfg.BackendURL), bus)
	go events.Run(ctx)

	prober := NewProber(client, cfg.ModelHubPath, requiredModels(),
		cfg.StartupRetries, time.Duration(cfg.StartupInterval)*time.Second)
	go func() {
		if err := prober.Run(ctx); err != nil {
			slog.Error("Startup probe failed, backend features stay disabled", "error", err)
			return
		}
		ready.SetBackendReady(true)
		if err := sessions.LoadHistory(ctx); err != nil {
			slog.Error("Failed to load chat history", "error", err)
		}
		if err := files.RefreshTable(ctx); err != nil {
			slog.Warn("Failed to load file table", "error", err)
		}
		if err := mcp.Refresh(ctx); err != nil {
			slog.Warn("Failed to load MCP records", "error", err)
		}
	}()

	handler := api.NewTriggerHandler(sessions, stream, workflows, ready)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:              cfg.TriggerAddr,
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting local trigger server", "addr", cfg.TriggerAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Trigger server shutdown failed", "error", err)
		}
		if err := bus.Close(); err != nil {
			slog.Error("Event bus close failed", "error", err)
		}
		return 0
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Trigger server failed", "error", err)
			return 1
		}
		return 0
	}
}

// defaultModel is the model the first listed workflow recommends.
func defaultModel() string {
	return service.Workflows()[0].RecommendedModel
}

// requiredModels collects the distinct models the workflow catalog needs.
func requiredModels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range service.Workflows() {
		if w.RecommendedModel == "" || seen[w.RecommendedModel] {
			continue
		}
		seen[w.RecommendedModel] = true
		out = append(out, w.RecommendedModel)
	}
	return out
}

// eventStreamURL turns the backend's HTTP base URL into its websocket
// event feed URL.
func eventStreamURL(backendURL string) string {
	ws := strings.Replace(backendURL, "http://", "ws://", 1)
	ws = strings.Replace(ws, "https://", "wss://", 1)
	return strings.TrimRight(ws, "/") + "/api/events"
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
