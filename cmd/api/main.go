// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ecletika/leadscope/internal/agent"
	"github.com/ecletika/leadscope/internal/config"
	"github.com/ecletika/leadscope/internal/handler"
	"github.com/ecletika/leadscope/internal/llm"
	"github.com/ecletika/leadscope/internal/mail"
	"github.com/ecletika/leadscope/internal/middleware"
	natsclient "github.com/ecletika/leadscope/internal/nats"
	"github.com/ecletika/leadscope/internal/pipeline"
	"github.com/ecletika/leadscope/internal/postgres"
	"github.com/ecletika/leadscope/internal/service"
	"github.com/ecletika/leadscope/internal/store"
	"github.com/ecletika/leadscope/pkg/logger"
	"github.com/ecletika/leadscope/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "leadscope", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS and ensure the run event stream exists
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	streamManager := natsclient.NewStreamManager(natsClient)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Postgres is the persisted copy; without it the service still runs on
	// the in-memory store alone.
	var (
		archive   pipeline.Archiver = pipeline.NopArchiver{}
		persister service.Persister = service.NopPersister{}
		users     service.UserLoader     // nil without a database
		campaigns service.CampaignLoader // nil without a database
		leads     service.LeadLoader     // nil without a database
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Warn("failed to connect to Postgres, running without persistence", zap.Error(err))
		} else {
			defer db.Close()
			pgArchive := postgres.NewArchive(db)
			archive = pgArchive
			persister = pgArchive
			users = pgArchive.Users
			campaigns = pgArchive.Campaigns
			leads = pgArchive.Leads
		}
	} else {
		log.Warn("DATABASE_URL not set, running without persistence")
	}

	// Initialize LLM client
	provider := llm.Provider(cfg.DefaultLLM)
	apiKey := cfg.AnthropicAPIKey
	if provider == llm.ProviderOpenAI || (apiKey == "" && cfg.OpenAIAPIKey != "") {
		provider = llm.ProviderOpenAI
		apiKey = cfg.OpenAIAPIKey
	}
	if apiKey == "" {
		log.Error("no LLM API key configured")
		os.Exit(1)
	}
	llmClient, err := llm.NewClient(provider, apiKey)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("LLM client ready", zap.String("provider", llmClient.Name()))

	gateway := agent.NewLLMGateway(llmClient, "", log)

	// Initialize the store, pipeline and services
	st := store.New()
	manager := pipeline.NewManager(gateway, st, streamManager, archive, log,
		pipeline.WithRunTimeout(cfg.RunTimeout),
		pipeline.WithMaxLeadLimit(cfg.MaxLeadLimit),
	)
	sender := mail.NewSender(cfg.MailFromName, cfg.MailFromEmail)
	leadSvc := service.NewLeadService(gateway, st, leads, campaigns, persister, sender, log)
	userSvc := service.NewUserService(st, users, persister, log)

	// Without a database nothing else creates accounts; seed one so the
	// service is usable out of the box.
	if users == nil && cfg.BootstrapUserID != "" {
		userSvc.Bootstrap(cfg.BootstrapUserID, cfg.BootstrapUserCredits)
	}

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	runHandler := handler.NewRunHandler(manager, st, streamManager, cfg.MaxLeadLimit, log)
	campaignHandler := handler.NewCampaignHandler(st, campaigns, log)
	leadHandler := handler.NewLeadHandler(leadSvc, log)
	userHandler := handler.NewUserHandler(userSvc, mail.NewTester(), log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/me", userHandler.Me)
		r.Get("/plans", userHandler.Plans)

		// Campaign pipeline
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/runs", runHandler.Start)
			r.Get("/", campaignHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", campaignHandler.Get)
				r.Get("/leads", campaignHandler.Leads)
			})
		})

		r.Route("/runs/{id}", func(r chi.Router) {
			r.Get("/", runHandler.Get)
			r.Get("/events", runHandler.Events)
		})

		// Lead actions
		r.Route("/leads/{id}", func(r chi.Router) {
			r.Get("/", leadHandler.Get)
			r.Post("/investigate", leadHandler.Investigate)
			r.Post("/proposal", leadHandler.Proposal)
			r.Post("/outreach", leadHandler.Outreach)
			r.Post("/outreach/send", leadHandler.SendDraft)
			r.Post("/site", leadHandler.GenerateSite)
			r.Post("/site/refine", leadHandler.RefineSite)
			r.Post("/chat", leadHandler.Chat)
		})

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))

			r.Get("/users", userHandler.List)
			r.Put("/users/{id}", userHandler.Update)

			r.Get("/plans", userHandler.Plans)
			r.Post("/plans", userHandler.SavePlan)
			r.Delete("/plans/{id}", userHandler.DeletePlan)

			r.Post("/smtp/test", userHandler.TestSMTP)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
