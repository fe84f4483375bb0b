// Honeypot - conversational scam engagement server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/honeypot/internal/agent"
	"github.com/ashureev/honeypot/internal/api"
	"github.com/ashureev/honeypot/internal/config"
	"github.com/ashureev/honeypot/internal/detection"
	"github.com/ashureev/honeypot/internal/honeypot"
	"github.com/ashureev/honeypot/internal/intel"
	"github.com/ashureev/honeypot/internal/lexicon"
	"github.com/ashureev/honeypot/internal/llm"
	"github.com/ashureev/honeypot/internal/middleware"
	"github.com/ashureev/honeypot/internal/report"
	"github.com/ashureev/honeypot/internal/store"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)

	slog.Info("Starting server",
		"port", cfg.Port,
		"store", cfg.Store.Backend,
		"session_ttl", cfg.Store.SessionTTL,
		"score_threshold", cfg.Detection.ScoreThreshold)

	tables := lexicon.Default()
	if cfg.LexiconPath != "" {
		tables, err = lexicon.Load(cfg.LexiconPath)
		if err != nil {
			slog.Error("Failed to load lexicon", "path", cfg.LexiconPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Lexicon loaded", "path", cfg.LexiconPath)
	}

	sessions, err := openStore(cfg.Store)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	if err := sessions.Ping(context.Background()); err != nil {
		slog.Error("Session store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Session store connected", "backend", cfg.Store.Backend)

	// Optional model backends.
	var chat *llm.ChatClient
	if cfg.LLM.APIKey != "" {
		chat, err = llm.NewChatClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
		if err != nil {
			slog.Error("Failed to initialize LLM client", "error", err)
			os.Exit(1)
		}
		slog.Info("LLM client initialized", "base_url", cfg.LLM.BaseURL, "model", chat.Model())
	}

	engineOpts := []detection.Option{detection.WithLogger(logger)}
	//nolint:nestif // Startup wiring is intentionally sequential to keep dependency setup explicit.
	if cfg.ClassifierEnabled() {
		switch {
		case cfg.LLM.ClassifierAddr != "":
			slog.Info("Connecting to classifier service via gRPC", "address", cfg.LLM.ClassifierAddr)
			grpcClassifier, err := llm.NewGrpcClassifier(llm.DefaultGrpcClassifierConfig(cfg.LLM.ClassifierAddr), logger)
			if err != nil {
				slog.Warn("Failed to connect to classifier service, using heuristic scoring only", "error", err)
			} else {
				defer grpcClassifier.Close()
				engineOpts = append(engineOpts, detection.WithClassifier(grpcClassifier, cfg.Detection.LLMWeight))
			}
		case chat != nil:
			engineOpts = append(engineOpts, detection.WithClassifier(llm.NewClassifier(chat), cfg.Detection.LLMWeight))
			slog.Info("LLM classifier enabled", "weight", cfg.Detection.LLMWeight)
		}
	} else {
		slog.Info("No classifier configured, using heuristic scoring only")
	}

	agentOpts := []agent.Option{agent.WithLogger(logger)}
	if chat != nil {
		agentOpts = append(agentOpts, agent.WithGenerator(llm.NewGenerator(chat)))
	} else {
		slog.Info("Reply generation disabled, using canned replies")
	}

	var reporter honeypot.Reporter
	if cfg.Callback.URL != "" {
		reporter = report.New(cfg.Callback.URL,
			report.WithTimeout(cfg.Callback.Timeout),
			report.WithLogger(logger))
		slog.Info("Final result reporting enabled", "url", cfg.Callback.URL)
	} else {
		slog.Info("CALLBACK_URL not set, final results will not be reported")
	}

	orch := honeypot.New(
		sessions,
		detection.NewEngine(tables, engineOpts...),
		intel.NewExtractor(tables),
		agent.New(tables, agentOpts...),
		reporter,
		honeypot.Config{
			ScoreThreshold: cfg.Detection.ScoreThreshold,
			MaxMessages:    cfg.MaxMessagesPerSession,
			SessionLocking: cfg.SessionLocking,
		},
		honeypot.WithLogger(logger),
	)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	if cfg.RateLimit.RPS > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware)
		slog.Info("Rate limiting enabled", "rps", cfg.RateLimit.RPS, "burst", cfg.RateLimit.Burst)
	}

	api.NewHandler(orch, logger).RegisterRoutes(r, middleware.RequireAPIKey(cfg.APISecretKey))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeperDone := store.StartSweeper(ctx, sessions, cfg.Store.SweepInterval, logger)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Waiting for in-flight messages and pending result reports")
	orch.Close()
	<-sweeperDone

	slog.Info("Server stopped successfully")
}

// shutdownTimeout lets a handler that calls both the classifier and the
// generator finish before the server stops waiting for it.
func shutdownTimeout(cfg *config.Config) time.Duration {
	return max(10*time.Second, 2*cfg.LLM.Timeout+5*time.Second)
}

func openStore(cfg config.StoreConfig) (store.SessionStore, error) {
	opts := []store.Option{store.WithTTL(cfg.SessionTTL)}
	switch cfg.Backend {
	case config.StoreMemory:
		return store.NewMemory(opts...), nil
	case config.StoreSQLite:
		return store.NewSQLite(cfg.DBPath, opts...)
	case config.StorePostgres:
		return store.NewPostgres(cfg.PostgresDSN, opts...)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
